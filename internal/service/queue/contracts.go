package queue

import (
	"context"
	"time"

	"github.com/overlinehq/booking-service/internal/domain"
	"github.com/overlinehq/booking-service/internal/integrations/shopservice"
	"github.com/overlinehq/booking-service/internal/usecase/get_next_available_slot"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	// CountActiveEarlier считает активные бронирования дня с более ранним началом
	CountActiveEarlier(ctx context.Context, shopID int64, dayStart, before time.Time) (int, error)
	// CountWaitingFrom считает ожидающие бронирования (PENDING/CONFIRMED) с началом не раньше from
	CountWaitingFrom(ctx context.Context, shopID int64, from time.Time) (int, error)
	// GetActiveStartingBy получает активные бронирования с началом не позже cutoff
	GetActiveStartingBy(ctx context.Context, shopID int64, cutoff time.Time) ([]*domain.Booking, error)
}

// StatsRepository интерфейс хранилища снапшотов статистики очереди
type StatsRepository interface {
	Upsert(ctx context.Context, stats *domain.QueueStats) error
	GetByShopID(ctx context.Context, shopID int64) (*domain.QueueStats, error)
}

// StatsCache интерфейс Redis кэша статистики очереди
type StatsCache interface {
	Get(ctx context.Context, shopID int64) (*domain.QueueStats, bool, error)
	Put(ctx context.Context, stats *domain.QueueStats) error
}

// ShopServiceClient интерфейс клиента для ShopService
type ShopServiceClient interface {
	GetShop(ctx context.Context, shopID int64) (*shopservice.Shop, error)
	ListActiveServices(ctx context.Context, shopID int64) ([]*shopservice.Service, error)
}

// NextSlotProvider интерфейс поиска ближайшего доступного слота
type NextSlotProvider interface {
	Execute(ctx context.Context, req *get_next_available_slot.Request) (*get_next_available_slot.Response, error)
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
