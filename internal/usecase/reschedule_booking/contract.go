package reschedule_booking

import (
	"context"
	"time"

	"github.com/overlinehq/booking-service/internal/domain"
	"github.com/overlinehq/booking-service/internal/integrations/notifyservice"
	"github.com/overlinehq/booking-service/internal/integrations/shopservice"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	// GetActiveByShopAndWindow получает активные бронирования, пересекающиеся с окном.
	// Внутри транзакции блокирует строки (FOR UPDATE) - admission check.
	GetActiveByShopAndWindow(ctx context.Context, shopID int64, from, to time.Time, staffID *int64, excludeBookingID *int64) ([]*domain.Booking, error)
	// UpdateSchedule атомарно заменяет окно бронирования. Переносит только
	// PENDING/CONFIRMED; иначе возвращает booking.ErrStatusConflict.
	UpdateSchedule(ctx context.Context, id int64, start, end time.Time, now time.Time) error
}

// ScheduleRepository интерфейс репозитория календарных правил
type ScheduleRepository interface {
	GetForDate(ctx context.Context, shopID int64, date time.Time) (domain.DaySchedule, error)
}

// ShopServiceClient интерфейс клиента для ShopService
type ShopServiceClient interface {
	GetShop(ctx context.Context, shopID int64) (*shopservice.Shop, error)
}

// NotifyServiceClient интерфейс клиента для NotificationService
type NotifyServiceClient interface {
	BookingStatusChanged(ctx context.Context, event notifyservice.BookingEvent) error
}

// SlotCache интерфейс для инвалидации кэша слотов
type SlotCache interface {
	Invalidate(ctx context.Context, shopID int64, date *string) error
}

// QueueRefresher интерфейс для пересчета статистики очереди магазина
type QueueRefresher interface {
	RefreshShopStats(ctx context.Context, shopID int64) error
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
