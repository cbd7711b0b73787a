package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/overlinehq/booking-service/internal/domain"
	bookingRepo "github.com/overlinehq/booking-service/internal/infra/storage/booking"
	queuestatsRepo "github.com/overlinehq/booking-service/internal/infra/storage/queuestats"
	shopClient "github.com/overlinehq/booking-service/internal/integrations/shopservice"
	"github.com/overlinehq/booking-service/internal/usecase/get_next_available_slot"
)

// PositionNotInQueue возвращается из Position, когда бронирование
// отсутствует или больше не стоит в очереди
const PositionNotInQueue = -1

// Service сервис очереди: живая позиция бронирования, оценка ожидания и
// снапшоты статистики магазина.
//
// Все величины - производные от реестра бронирований. Снапшот в Redis и в
// таблице queue_stats существует только для быстрых витринных чтений;
// источником истины остается реестр.
type Service struct {
	bookingRepo  BookingRepository
	statsRepo    StatsRepository
	statsCache   StatsCache
	shopClient   ShopServiceClient
	nextSlot     NextSlotProvider
	timeProvider TimeProvider
	logger       Logger
}

// NewService создает новый экземпляр сервиса очереди
func NewService(
	bookingRepository BookingRepository,
	statsRepo StatsRepository,
	statsCache StatsCache,
	shopServiceClient ShopServiceClient,
	nextSlot NextSlotProvider,
	logger Logger,
) *Service {
	return &Service{
		bookingRepo:  bookingRepository,
		statsRepo:    statsRepo,
		statsCache:   statsCache,
		shopClient:   shopServiceClient,
		nextSlot:     nextSlot,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Position возвращает живую позицию бронирования в очереди его дня:
// количество активных бронирований того же магазина с более ранним началом
// плюс один. Для отсутствующего или неактивного бронирования возвращается
// PositionNotInQueue, не ошибка.
func (s *Service) Position(ctx context.Context, bookingID int64) (int, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			return PositionNotInQueue, nil
		}
		s.logger.Error("Position: failed to get booking id=%d: %v", bookingID, err)
		return 0, fmt.Errorf("%w: Position - failed to get booking: %v", ErrInternal, err)
	}

	if !booking.IsActive() {
		return PositionNotInQueue, nil
	}

	loc := s.shopLocation(ctx, booking.ShopID)
	startLocal := booking.StartTime.In(loc)
	dayStart := time.Date(startLocal.Year(), startLocal.Month(), startLocal.Day(), 0, 0, 0, 0, loc)

	earlier, err := s.bookingRepo.CountActiveEarlier(ctx, booking.ShopID, dayStart, booking.StartTime)
	if err != nil {
		s.logger.Error("Position: failed to count earlier bookings for shop=%d: %v", booking.ShopID, err)
		return 0, fmt.Errorf("%w: Position - failed to count earlier bookings: %v", ErrInternal, err)
	}

	return earlier + 1, nil
}

// EstimatedWaitMinutes оценивает время ожидания нового посетителя магазина:
// суммарная длительность активных бронирований, начинающихся в ближайшие
// четыре часа, деленная на вместимость магазина, с округлением вверх.
func (s *Service) EstimatedWaitMinutes(ctx context.Context, shopID int64) (int, error) {
	shop, err := s.getShop(ctx, shopID, "EstimatedWaitMinutes")
	if err != nil {
		return 0, err
	}

	now := s.timeProvider.Now()
	return s.estimateWait(ctx, shop, now)
}

// RefreshShopStats пересчитывает статистику очереди магазина из реестра и
// записывает снапшот в Redis и в таблицу queue_stats
func (s *Service) RefreshShopStats(ctx context.Context, shopID int64) error {
	_, err := s.refresh(ctx, shopID)
	return err
}

// GetShopStats возвращает статистику очереди магазина: из Redis, при
// промахе - из таблицы снапшотов, при отсутствии снапшота - живым
// пересчетом из реестра
func (s *Service) GetShopStats(ctx context.Context, shopID int64) (*domain.QueueStats, error) {
	if shopID <= 0 {
		return nil, fmt.Errorf("%w: shopID must be positive", ErrInvalidInput)
	}

	stats, hit, err := s.statsCache.Get(ctx, shopID)
	if err != nil {
		s.logger.Warn("GetShopStats: cache get failed for shop=%d: %v", shopID, err)
	} else if hit {
		return stats, nil
	}

	stored, err := s.statsRepo.GetByShopID(ctx, shopID)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, queuestatsRepo.ErrStatsNotFound) {
		s.logger.Warn("GetShopStats: stats repository failed for shop=%d: %v", shopID, err)
	}

	// Снапшота нет нигде - пересчитываем из реестра
	return s.refresh(ctx, shopID)
}

// refresh пересчитывает и сохраняет статистику, возвращая свежий снапшот
func (s *Service) refresh(ctx context.Context, shopID int64) (*domain.QueueStats, error) {
	shop, err := s.getShop(ctx, shopID, "RefreshShopStats")
	if err != nil {
		return nil, err
	}

	now := s.timeProvider.Now()

	waiting, err := s.bookingRepo.CountWaitingFrom(ctx, shopID, now)
	if err != nil {
		s.logger.Error("RefreshShopStats: failed to count waiting bookings for shop=%d: %v", shopID, err)
		return nil, fmt.Errorf("%w: failed to count waiting bookings: %v", ErrInternal, err)
	}

	waitMinutes, err := s.estimateWait(ctx, shop, now)
	if err != nil {
		return nil, err
	}

	stats := &domain.QueueStats{
		ShopID:               shopID,
		WaitingCount:         waiting,
		EstimatedWaitMinutes: waitMinutes,
		NextAvailableSlot:    s.findNextSlot(ctx, shop),
		LastUpdatedAt:        now,
	}

	// Кэш - оптимизация: его отказ не мешает записать снапшот в БД
	if err := s.statsCache.Put(ctx, stats); err != nil {
		s.logger.Warn("RefreshShopStats: cache put failed for shop=%d: %v", shopID, err)
	}

	if err := s.statsRepo.Upsert(ctx, stats); err != nil {
		s.logger.Error("RefreshShopStats: failed to upsert stats for shop=%d: %v", shopID, err)
		return nil, fmt.Errorf("%w: failed to upsert stats: %v", ErrInternal, err)
	}

	s.logger.Info("RefreshShopStats: shop=%d waiting=%d wait=%dmin", shopID, waiting, waitMinutes)
	return stats, nil
}

// estimateWait вычисляет оценку ожидания по активным бронированиям
// ближайших часов
func (s *Service) estimateWait(ctx context.Context, shop *shopClient.Shop, now time.Time) (int, error) {
	cutoff := now.Add(domain.WaitEstimateHorizonHours * time.Hour)

	bookings, err := s.bookingRepo.GetActiveStartingBy(ctx, shop.ID, cutoff)
	if err != nil {
		s.logger.Error("estimateWait: failed to get bookings for shop=%d: %v", shop.ID, err)
		return 0, fmt.Errorf("%w: failed to get bookings: %v", ErrInternal, err)
	}

	total := 0
	for _, b := range bookings {
		total += b.TotalDurationMinutes
	}

	capacity := shop.MaxConcurrentBookings
	if capacity < 1 {
		capacity = 1
	}

	// Округление вверх: очередь из одного короткого бронирования - это
	// все равно ожидание
	return (total + capacity - 1) / capacity, nil
}

// findNextSlot ищет ближайший доступный слот для самой короткой активной
// услуги магазина. Отсутствие слота или услуг - не ошибка: в снапшоте
// просто не будет подсказки.
func (s *Service) findNextSlot(ctx context.Context, shop *shopClient.Shop) *time.Time {
	services, err := s.shopClient.ListActiveServices(ctx, shop.ID)
	if err != nil {
		s.logger.Warn("findNextSlot: failed to list services for shop=%d: %v", shop.ID, err)
		return nil
	}
	if len(services) == 0 {
		return nil
	}

	shortest := services[0].DurationMinutes
	for _, svc := range services[1:] {
		if svc.DurationMinutes < shortest {
			shortest = svc.DurationMinutes
		}
	}

	resp, err := s.nextSlot.Execute(ctx, &get_next_available_slot.Request{
		ShopID:          shop.ID,
		DurationMinutes: &shortest,
	})
	if err != nil {
		s.logger.Warn("findNextSlot: scan failed for shop=%d: %v", shop.ID, err)
		return nil
	}
	if resp.Slot == nil {
		return nil
	}

	return &resp.Slot.StartTime
}

// getShop загружает магазин, унифицируя обработку NotFound
func (s *Service) getShop(ctx context.Context, shopID int64, op string) (*shopClient.Shop, error) {
	shop, err := s.shopClient.GetShop(ctx, shopID)
	if err != nil {
		if errors.Is(err, shopClient.ErrShopNotFound) {
			s.logger.Warn("%s: shop id=%d not found", op, shopID)
			return nil, ErrShopNotFound
		}
		s.logger.Error("%s: failed to get shop id=%d: %v", op, shopID, err)
		return nil, fmt.Errorf("%w: %s - failed to get shop: %v", ErrInternal, op, err)
	}
	return shop, nil
}

// shopLocation возвращает таймзону магазина с откатом на UTC
func (s *Service) shopLocation(ctx context.Context, shopID int64) *time.Location {
	shop, err := s.shopClient.GetShop(ctx, shopID)
	if err != nil {
		return time.UTC
	}
	loc, err := time.LoadLocation(shop.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
