package get_shop_queue_stats

import (
	"context"

	"github.com/overlinehq/booking-service/internal/domain"
)

type QueueService interface {
	GetShopStats(ctx context.Context, shopID int64) (*domain.QueueStats, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
