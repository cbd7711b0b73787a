package create_booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/overlinehq/booking-service/internal/domain"
	"github.com/overlinehq/booking-service/internal/integrations/notifyservice"
	shopClient "github.com/overlinehq/booking-service/internal/integrations/shopservice"
)

// postCommitTimeout ограничивает побочные эффекты после коммита
const postCommitTimeout = 5 * time.Second

// UseCase use case для создания бронирования.
// Проверка доступности и вставка выполняются одной сериализуемой
// транзакцией - это защита от гонки, когда два конкурентных запроса
// одновременно видят окно свободным.
type UseCase struct {
	bookingRepo  BookingRepository
	scheduleRepo ScheduleRepository
	shopClient   ShopServiceClient
	notifyClient NotifyServiceClient
	slotCache    SlotCache
	queueRefresh QueueRefresher
	txManager    TransactionManager
	timeProvider TimeProvider
	logger       Logger

	// spawn запускает побочные эффекты после коммита; в тестах заменяется
	// на синхронный вызов
	spawn func(fn func())
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	scheduleRepo ScheduleRepository,
	shopClient ShopServiceClient,
	notifyClient NotifyServiceClient,
	slotCache SlotCache,
	queueRefresh QueueRefresher,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		bookingRepo:  bookingRepo,
		scheduleRepo: scheduleRepo,
		shopClient:   shopClient,
		notifyClient: notifyClient,
		slotCache:    slotCache,
		queueRefresh: queueRefresh,
		txManager:    txManager,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
		spawn:        func(fn func()) { go fn() },
	}
}

// Execute выполняет use case создания бронирования
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateBooking: shop=%d, start=%s, services=%v, staff=%v",
		req.ShopID, req.StartTime.Format(time.RFC3339), req.ServiceIDs, req.StaffID)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("CreateBooking: validation failed: %v", err)
		return nil, err
	}

	// 2. Получаем текущее время; начало должно быть строго в будущем
	now := uc.timeProvider.Now()
	if !req.StartTime.After(now) {
		uc.logger.Warn("CreateBooking: start time %s is not in the future", req.StartTime.Format(time.RFC3339))
		return nil, ErrStartTimeInPast
	}

	// 3. Получаем магазин (вместимость, таймзона, автоподтверждение, валюта)
	shop, err := uc.shopClient.GetShop(ctx, req.ShopID)
	if err != nil {
		if errors.Is(err, shopClient.ErrShopNotFound) {
			uc.logger.Warn("CreateBooking: shop id=%d not found", req.ShopID)
			return nil, ErrShopNotFound
		}
		uc.logger.Error("CreateBooking: failed to get shop id=%d: %v", req.ShopID, err)
		return nil, fmt.Errorf("%w: failed to get shop: %v", ErrInternal, err)
	}

	loc, err := time.LoadLocation(shop.Timezone)
	if err != nil {
		uc.logger.Error("CreateBooking: invalid timezone %q for shop id=%d: %v", shop.Timezone, req.ShopID, err)
		return nil, fmt.Errorf("%w: invalid shop timezone: %v", ErrInternal, err)
	}

	// 4. Разрешаем услуги: длительность окна, сумма, денормализованные названия
	details, err := uc.resolveServices(ctx, req)
	if err != nil {
		return nil, err
	}

	start := req.StartTime
	end := start.Add(time.Duration(details.durationMinutes) * time.Minute)

	// 5. Проверяем окно против календаря магазина
	day, err := uc.scheduleRepo.GetForDate(ctx, req.ShopID, start.In(loc))
	if err != nil {
		uc.logger.Error("CreateBooking: failed to get schedule for shop id=%d: %v", req.ShopID, err)
		return nil, fmt.Errorf("%w: failed to get schedule: %v", ErrInternal, err)
	}
	if day.IsClosed {
		uc.logger.Warn("CreateBooking: shop id=%d is closed on %s",
			req.ShopID, start.In(loc).Format(domain.DateFormat))
		return nil, ErrShopClosed
	}
	if err := validateWindowFits(day, start, end, loc); err != nil {
		uc.logger.Warn("CreateBooking: window check failed: %v", err)
		return nil, err
	}

	capacity := shop.MaxConcurrentBookings
	if req.StaffID != nil {
		// Конкретный мастер не может обслуживать двоих
		capacity = 1
	}

	startLocal := start.In(loc)
	dayStart := time.Date(startLocal.Year(), startLocal.Month(), startLocal.Day(), 0, 0, 0, 0, loc)

	var result *domain.Booking

	// 6. Admission check и вставка в одной сериализуемой транзакции
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 6.1. Перечитываем активные бронирования окна с блокировкой (FOR UPDATE)
		bookings, err := uc.bookingRepo.GetActiveByShopAndWindow(txCtx, req.ShopID, start, end, req.StaffID, nil)
		if err != nil {
			uc.logger.Error("CreateBooking: failed to get bookings: %v", err)
			// Внутри транзакции цепочка сохраняется, чтобы txmanager
			// распознал serialization failure и повторил попытку
			return fmt.Errorf("%w: failed to get bookings: %w", ErrInternal, err)
		}

		// 6.2. Проверяем вместимость окна
		overlapping := countOverlapping(bookings, start, end)
		if overlapping >= capacity {
			uc.logger.Warn("CreateBooking: slot not available, %d/%d spots taken", overlapping, capacity)
			return ErrSlotNotAvailable
		}

		// 6.3. Позиция в очереди дня на момент создания (снимок для истории)
		earlier, err := uc.bookingRepo.CountActiveEarlier(txCtx, req.ShopID, dayStart, start)
		if err != nil {
			uc.logger.Error("CreateBooking: failed to count earlier bookings: %v", err)
			return fmt.Errorf("%w: failed to count earlier bookings: %w", ErrInternal, err)
		}

		status := domain.StatusPending
		if shop.AutoAcceptBookings {
			status = domain.StatusConfirmed
		}

		booking := &domain.Booking{
			BookingNumber:        generateBookingNumber(now),
			ShopID:               req.ShopID,
			StaffID:              req.StaffID,
			UserID:               req.UserID,
			CustomerName:         req.CustomerName,
			CustomerPhone:        req.CustomerPhone,
			CustomerEmail:        req.CustomerEmail,
			StartTime:            start,
			EndTime:              end,
			TotalDurationMinutes: details.durationMinutes,
			TotalAmount:          details.totalAmount,
			Currency:             shop.Currency,
			ServiceIDs:           details.serviceIDs,
			ServiceNames:         details.serviceNames,
			Status:               status,
			QueuePosition:        earlier + 1,
			Notes:                req.Notes,
		}

		created, err := uc.bookingRepo.Create(txCtx, booking)
		if err != nil {
			uc.logger.Error("CreateBooking: failed to create booking: %v", err)
			return fmt.Errorf("%w: failed to create booking: %w", ErrInternal, err)
		}

		result = created
		return nil
	})

	if err != nil {
		return nil, err
	}

	uc.logger.Info("CreateBooking: created booking id=%d number=%s status=%s",
		result.ID, result.BookingNumber, result.Status)

	// 7. Побочные эффекты после коммита: инвалидация кэша, пересчет очереди,
	// уведомление. Ошибки только логируются - бронирование уже создано.
	uc.spawn(func() { uc.postCommit(result, loc) })

	return &Response{Booking: result}, nil
}

// serviceDetails разрешенный набор услуг бронирования
type serviceDetails struct {
	serviceIDs      []int64
	serviceNames    []string
	durationMinutes int
	totalAmount     float64
}

// resolveServices вычисляет окно и сумму: из каталога услуг магазина
// либо из явной длительности, когда услуги не выбраны.
func (uc *UseCase) resolveServices(ctx context.Context, req *Request) (*serviceDetails, error) {
	if len(req.ServiceIDs) == 0 {
		return &serviceDetails{
			serviceIDs:      []int64{},
			serviceNames:    []string{},
			durationMinutes: *req.DurationMinutes,
		}, nil
	}

	services, err := uc.shopClient.GetServices(ctx, req.ShopID, req.ServiceIDs)
	if err != nil {
		if errors.Is(err, shopClient.ErrServiceNotFound) {
			uc.logger.Warn("CreateBooking: services %v not found in shop id=%d", req.ServiceIDs, req.ShopID)
			return nil, ErrServiceNotFound
		}
		uc.logger.Error("CreateBooking: failed to get services %v: %v", req.ServiceIDs, err)
		return nil, fmt.Errorf("%w: failed to get services: %v", ErrInternal, err)
	}

	details := &serviceDetails{
		serviceIDs:   make([]int64, 0, len(services)),
		serviceNames: make([]string, 0, len(services)),
	}
	for _, svc := range services {
		details.serviceIDs = append(details.serviceIDs, svc.ID)
		details.serviceNames = append(details.serviceNames, svc.Name)
		details.durationMinutes += svc.DurationMinutes
		details.totalAmount += svc.Price
	}
	if details.durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: services have zero total duration", ErrInvalidDuration)
	}

	return details, nil
}

// postCommit выполняет побочные эффекты созданного бронирования
func (uc *UseCase) postCommit(b *domain.Booking, loc *time.Location) {
	ctx, cancel := context.WithTimeout(context.Background(), postCommitTimeout)
	defer cancel()

	date := b.StartTime.In(loc).Format(domain.DateFormat)
	if err := uc.slotCache.Invalidate(ctx, b.ShopID, &date); err != nil {
		uc.logger.Warn("CreateBooking: slot cache invalidation failed for shop=%d date=%s: %v",
			b.ShopID, date, err)
	}

	if err := uc.queueRefresh.RefreshShopStats(ctx, b.ShopID); err != nil {
		uc.logger.Warn("CreateBooking: queue stats refresh failed for shop=%d: %v", b.ShopID, err)
	}

	event := notifyservice.BookingEvent{
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		ShopID:        b.ShopID,
		UserID:        b.UserID,
		Status:        string(b.Status),
		StartTime:     b.StartTime.Format(time.RFC3339),
	}
	if err := uc.notifyClient.BookingCreated(ctx, event); err != nil {
		uc.logger.Warn("CreateBooking: notification failed for booking=%d: %v", b.ID, err)
	}
}
