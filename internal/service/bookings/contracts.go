package bookings

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
	GetByUserID(ctx context.Context, userID int64, status *domain.BookingStatus) ([]*domain.Booking, error)
	GetByShopWithFilter(ctx context.Context, filter domain.ShopBookingsFilter) ([]*domain.Booking, error)
	// UpdateStatus переводит бронирование из статуса from в status.
	// Возвращает booking.ErrStatusConflict, если статус сменился конкурентно.
	UpdateStatus(ctx context.Context, id int64, from, status domain.BookingStatus, now time.Time) error
}

// ShopServiceClient интерфейс клиента для ShopService
type ShopServiceClient interface {
	GetShop(ctx context.Context, shopID int64) (*shopservice.Shop, error)
}

// QueueService интерфейс сервиса очереди для живой позиции
type QueueService interface {
	Position(ctx context.Context, bookingID int64) (int, error)
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
