package get_available_slots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/overlinehq/booking-service/internal/domain"
	slotscache "github.com/overlinehq/booking-service/internal/infra/cache/slots"
	shopClient "github.com/overlinehq/booking-service/internal/integrations/shopservice"
)

// UseCase use case для получения доступных слотов для бронирования
type UseCase struct {
	bookingRepo  BookingRepository
	scheduleRepo ScheduleRepository
	shopClient   ShopServiceClient
	slotCache    SlotCache
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	scheduleRepo ScheduleRepository,
	shopClient ShopServiceClient,
	slotCache SlotCache,
	logger Logger,
) *UseCase {
	return &UseCase{
		bookingRepo:  bookingRepo,
		scheduleRepo: scheduleRepo,
		shopClient:   shopClient,
		slotCache:    slotCache,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Execute выполняет use case получения доступных слотов
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GetAvailableSlots: shop=%d, date=%s, services=%v, staff=%v",
		req.ShopID, req.Date.Format(domain.DateFormat), req.ServiceIDs, req.StaffID)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("GetAvailableSlots: validation failed: %v", err)
		return nil, err
	}

	// 2. Получаем текущее время
	now := uc.timeProvider.Now()

	// 3. Получаем магазин (вместимость, таймзона, автоподтверждение)
	shop, err := uc.shopClient.GetShop(ctx, req.ShopID)
	if err != nil {
		if errors.Is(err, shopClient.ErrShopNotFound) {
			uc.logger.Warn("GetAvailableSlots: shop id=%d not found", req.ShopID)
			return nil, ErrShopNotFound
		}
		uc.logger.Error("GetAvailableSlots: failed to get shop id=%d: %v", req.ShopID, err)
		return nil, fmt.Errorf("%w: failed to get shop: %v", ErrInternal, err)
	}

	loc, err := time.LoadLocation(shop.Timezone)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: invalid timezone %q for shop id=%d: %v",
			shop.Timezone, req.ShopID, err)
		return nil, fmt.Errorf("%w: invalid shop timezone: %v", ErrInternal, err)
	}

	// 4. Разрешаем длительность слота: сумма длительностей услуг или явная длительность
	totalDuration, err := uc.resolveDuration(ctx, req)
	if err != nil {
		return nil, err
	}

	// 5. Проверяем кэш
	cacheKey := slotscache.Key(req.ShopID, req.Date.Format(domain.DateFormat), req.ServiceIDs, req.StaffID)
	if cached, hit, cacheErr := uc.slotCache.Get(ctx, cacheKey); cacheErr != nil {
		uc.logger.Warn("GetAvailableSlots: cache get failed: %v", cacheErr)
	} else if hit {
		uc.logger.Info("GetAvailableSlots: cache hit for %s", cacheKey)
		return &Response{
			ShopID:               req.ShopID,
			Date:                 req.Date,
			Slots:                cached,
			TotalDurationMinutes: totalDuration,
			FromCache:            true,
		}, nil
	}

	// 6. Получаем расписание на дату
	day, err := uc.scheduleRepo.GetForDate(ctx, req.ShopID, req.Date)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get schedule for shop id=%d: %v", req.ShopID, err)
		return nil, fmt.Errorf("%w: failed to get schedule: %v", ErrInternal, err)
	}

	if day.IsClosed {
		uc.logger.Info("GetAvailableSlots: shop id=%d is closed on %s",
			req.ShopID, req.Date.Format(domain.DateFormat))
		return &Response{
			ShopID:               req.ShopID,
			Date:                 req.Date,
			Slots:                []domain.TimeSlot{},
			TotalDurationMinutes: totalDuration,
		}, nil
	}

	// 7. Генерируем кандидатов начала слота
	starts, err := generateCandidateStarts(day, req.Date, loc, totalDuration, now)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to generate slots: %v", err)
		return nil, fmt.Errorf("%w: failed to generate slots: %v", ErrInternal, err)
	}

	// 8. Получаем активные бронирования дня и вычисляем доступность
	dayStart := time.Date(req.Date.Year(), req.Date.Month(), req.Date.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	bookings, err := uc.bookingRepo.GetActiveByShopAndWindow(ctx, req.ShopID, dayStart, dayEnd, req.StaffID, nil)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get bookings for shop id=%d: %v", req.ShopID, err)
		return nil, fmt.Errorf("%w: failed to get bookings: %v", ErrInternal, err)
	}

	capacity := shop.MaxConcurrentBookings
	if req.StaffID != nil {
		capacity = 1
	}

	slots := buildSlots(starts, totalDuration, bookings, capacity, req.StaffID)

	// 9. Кладем результат в кэш; ошибка кэша не фатальна
	if cacheErr := uc.slotCache.Put(ctx, cacheKey, slots); cacheErr != nil {
		uc.logger.Warn("GetAvailableSlots: cache put failed: %v", cacheErr)
	}

	uc.logger.Info("GetAvailableSlots: generated %d slots for shop=%d, date=%s",
		len(slots), req.ShopID, req.Date.Format(domain.DateFormat))

	return &Response{
		ShopID:               req.ShopID,
		Date:                 req.Date,
		Slots:                slots,
		TotalDurationMinutes: totalDuration,
	}, nil
}

// resolveDuration вычисляет длину слота: сумма длительностей выбранных услуг
// либо явная длительность из запроса, когда услуги не выбраны.
func (uc *UseCase) resolveDuration(ctx context.Context, req *Request) (int, error) {
	if len(req.ServiceIDs) == 0 {
		return *req.DurationMinutes, nil
	}

	services, err := uc.shopClient.GetServices(ctx, req.ShopID, req.ServiceIDs)
	if err != nil {
		if errors.Is(err, shopClient.ErrServiceNotFound) {
			uc.logger.Warn("GetAvailableSlots: services %v not found in shop id=%d", req.ServiceIDs, req.ShopID)
			return 0, ErrServiceNotFound
		}
		uc.logger.Error("GetAvailableSlots: failed to get services %v: %v", req.ServiceIDs, err)
		return 0, fmt.Errorf("%w: failed to get services: %v", ErrInternal, err)
	}

	total := 0
	for _, svc := range services {
		total += svc.DurationMinutes
	}
	if total <= 0 {
		return 0, fmt.Errorf("%w: services have zero total duration", ErrInvalidDuration)
	}

	return total, nil
}
