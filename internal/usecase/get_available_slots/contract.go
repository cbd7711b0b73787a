package get_available_slots

import (
	"context"
	"time"

	"github.com/overlinehq/booking-service/internal/domain"
	"github.com/overlinehq/booking-service/internal/integrations/shopservice"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	// GetActiveByShopAndWindow получает активные бронирования магазина, пересекающиеся с окном
	GetActiveByShopAndWindow(ctx context.Context, shopID int64, from, to time.Time, staffID *int64, excludeBookingID *int64) ([]*domain.Booking, error)
}

// ScheduleRepository интерфейс репозитория календарных правил
type ScheduleRepository interface {
	// GetForDate получает разрешенное расписание магазина на дату
	GetForDate(ctx context.Context, shopID int64, date time.Time) (domain.DaySchedule, error)
}

// ShopServiceClient интерфейс клиента для ShopService
type ShopServiceClient interface {
	GetShop(ctx context.Context, shopID int64) (*shopservice.Shop, error)
	GetServices(ctx context.Context, shopID int64, serviceIDs []int64) ([]*shopservice.Service, error)
}

// SlotCache интерфейс кэша результатов генерации слотов.
// Ошибки кэша не фатальны: usecase логирует их и пересчитывает слоты заново.
type SlotCache interface {
	Get(ctx context.Context, key string) ([]domain.TimeSlot, bool, error)
	Put(ctx context.Context, key string, slots []domain.TimeSlot) error
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
