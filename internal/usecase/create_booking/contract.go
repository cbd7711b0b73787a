package create_booking

import (
	"context"
	"time"

	"github.com/overlinehq/booking-service/internal/domain"
	"github.com/overlinehq/booking-service/internal/integrations/notifyservice"
	"github.com/overlinehq/booking-service/internal/integrations/shopservice"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error)
	// GetActiveByShopAndWindow получает активные бронирования, пересекающиеся с окном.
	// Внутри транзакции блокирует строки (FOR UPDATE) - admission check.
	GetActiveByShopAndWindow(ctx context.Context, shopID int64, from, to time.Time, staffID *int64, excludeBookingID *int64) ([]*domain.Booking, error)
	// CountActiveEarlier считает активные бронирования дня с более ранним началом
	CountActiveEarlier(ctx context.Context, shopID int64, dayStart, before time.Time) (int, error)
}

// ScheduleRepository интерфейс репозитория календарных правил
type ScheduleRepository interface {
	GetForDate(ctx context.Context, shopID int64, date time.Time) (domain.DaySchedule, error)
}

// ShopServiceClient интерфейс клиента для ShopService
type ShopServiceClient interface {
	GetShop(ctx context.Context, shopID int64) (*shopservice.Shop, error)
	GetServices(ctx context.Context, shopID int64, serviceIDs []int64) ([]*shopservice.Service, error)
}

// NotifyServiceClient интерфейс клиента для NotificationService
type NotifyServiceClient interface {
	BookingCreated(ctx context.Context, event notifyservice.BookingEvent) error
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
