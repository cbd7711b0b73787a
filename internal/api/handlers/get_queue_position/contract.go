package get_queue_position

import "context"

type QueueService interface {
	Position(ctx context.Context, bookingID int64) (int, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
