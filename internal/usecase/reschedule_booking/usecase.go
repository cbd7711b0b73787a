package reschedule_booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/overlinehq/booking-service/internal/domain"
	bookingRepo "github.com/overlinehq/booking-service/internal/infra/storage/booking"
	"github.com/overlinehq/booking-service/internal/integrations/notifyservice"
	shopClient "github.com/overlinehq/booking-service/internal/integrations/shopservice"
)

// postCommitTimeout ограничивает побочные эффекты после коммита
const postCommitTimeout = 5 * time.Second

// UseCase use case переноса бронирования.
// Новое окно проходит тот же admission check, что и создание, в одной
// сериализуемой транзакции; собственная строка бронирования исключается
// из подсчета конфликтов, чтобы старое окно не конфликтовало само с собой.
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

	spawn func(fn func())
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepository BookingRepository,
	scheduleRepo ScheduleRepository,
	shopServiceClient ShopServiceClient,
	notifyClient NotifyServiceClient,
	slotCache SlotCache,
	queueRefresh QueueRefresher,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		bookingRepo:  bookingRepository,
		scheduleRepo: scheduleRepo,
		shopClient:   shopServiceClient,
		notifyClient: notifyClient,
		slotCache:    slotCache,
		queueRefresh: queueRefresh,
		txManager:    txManager,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
		spawn:        func(fn func()) { go fn() },
	}
}

// Execute выполняет use case переноса бронирования
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("RescheduleBooking: booking=%d, newStart=%s",
		req.BookingID, req.NewStartTime.Format(time.RFC3339))

	// 1. Валидация входных данных
	if req.BookingID <= 0 {
		return nil, fmt.Errorf("%w: bookingID must be positive", ErrInvalidInput)
	}
	if req.NewStartTime.IsZero() {
		return nil, fmt.Errorf("%w: newStartTime is required", ErrInvalidInput)
	}

	now := uc.timeProvider.Now()
	if !req.NewStartTime.After(now) {
		uc.logger.Warn("RescheduleBooking: new start %s is not in the future",
			req.NewStartTime.Format(time.RFC3339))
		return nil, ErrStartTimeInPast
	}

	// 2. Получаем бронирование
	booking, err := uc.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			uc.logger.Warn("RescheduleBooking: booking id=%d not found", req.BookingID)
			return nil, ErrBookingNotFound
		}
		uc.logger.Error("RescheduleBooking: failed to get booking id=%d: %v", req.BookingID, err)
		return nil, fmt.Errorf("%w: failed to get booking: %v", ErrInternal, err)
	}

	// 3. Перенос допустим только из PENDING и CONFIRMED
	if !booking.CanBeRescheduled() {
		uc.logger.Warn("RescheduleBooking: booking id=%d in status %s cannot be rescheduled",
			booking.ID, booking.Status)
		return nil, ErrNotReschedulable
	}

	// 4. Получаем магазин (вместимость, таймзона)
	shop, err := uc.shopClient.GetShop(ctx, booking.ShopID)
	if err != nil {
		if errors.Is(err, shopClient.ErrShopNotFound) {
			uc.logger.Warn("RescheduleBooking: shop id=%d not found", booking.ShopID)
			return nil, ErrShopNotFound
		}
		uc.logger.Error("RescheduleBooking: failed to get shop id=%d: %v", booking.ShopID, err)
		return nil, fmt.Errorf("%w: failed to get shop: %v", ErrInternal, err)
	}

	loc, err := time.LoadLocation(shop.Timezone)
	if err != nil {
		uc.logger.Error("RescheduleBooking: invalid timezone %q for shop id=%d: %v",
			shop.Timezone, booking.ShopID, err)
		return nil, fmt.Errorf("%w: invalid shop timezone: %v", ErrInternal, err)
	}

	// 5. Окно переносится целиком: длительность остается прежней
	newStart := req.NewStartTime
	newEnd := newStart.Add(time.Duration(booking.TotalDurationMinutes) * time.Minute)

	// 6. Проверяем новое окно против календаря магазина
	day, err := uc.scheduleRepo.GetForDate(ctx, booking.ShopID, newStart.In(loc))
	if err != nil {
		uc.logger.Error("RescheduleBooking: failed to get schedule for shop id=%d: %v", booking.ShopID, err)
		return nil, fmt.Errorf("%w: failed to get schedule: %v", ErrInternal, err)
	}
	if day.IsClosed {
		uc.logger.Warn("RescheduleBooking: shop id=%d is closed on %s",
			booking.ShopID, newStart.In(loc).Format(domain.DateFormat))
		return nil, ErrShopClosed
	}
	if err := validateWindowFits(day, newStart, newEnd, loc); err != nil {
		uc.logger.Warn("RescheduleBooking: window check failed: %v", err)
		return nil, err
	}

	capacity := shop.MaxConcurrentBookings
	if booking.StaffID != nil {
		capacity = 1
	}

	// 7. Admission check и обновление в одной сериализуемой транзакции
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		conflicts, err := uc.bookingRepo.GetActiveByShopAndWindow(
			txCtx, booking.ShopID, newStart, newEnd, booking.StaffID, &booking.ID)
		if err != nil {
			uc.logger.Error("RescheduleBooking: failed to get bookings: %v", err)
			// Внутри транзакции цепочка сохраняется, чтобы txmanager
			// распознал serialization failure и повторил попытку
			return fmt.Errorf("%w: failed to get bookings: %w", ErrInternal, err)
		}

		overlapping := 0
		for _, b := range conflicts {
			if b.IsActive() && b.Overlaps(newStart, newEnd) {
				overlapping++
			}
		}
		if overlapping >= capacity {
			uc.logger.Warn("RescheduleBooking: slot not available, %d/%d spots taken", overlapping, capacity)
			return ErrSlotNotAvailable
		}

		// Guarded UPDATE: бронирование, отмененное между чтением до
		// транзакции и этой записью, перенесено не будет
		if err := uc.bookingRepo.UpdateSchedule(txCtx, booking.ID, newStart, newEnd, now); err != nil {
			if errors.Is(err, bookingRepo.ErrStatusConflict) {
				uc.logger.Warn("RescheduleBooking: booking id=%d changed status concurrently", booking.ID)
				return ErrNotReschedulable
			}
			uc.logger.Error("RescheduleBooking: failed to update booking id=%d: %v", booking.ID, err)
			return fmt.Errorf("%w: failed to update booking: %w", ErrInternal, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	oldStart := booking.StartTime
	booking.StartTime = newStart
	booking.EndTime = newEnd
	booking.UpdatedAt = now

	uc.logger.Info("RescheduleBooking: booking id=%d moved %s -> %s",
		booking.ID, oldStart.Format(time.RFC3339), newStart.Format(time.RFC3339))

	// 8. Побочные эффекты после коммита: инвалидация обеих дат, пересчет
	// очереди, уведомление. Ошибки только логируются.
	uc.spawn(func() { uc.postCommit(booking, oldStart, loc) })

	return &Response{Booking: booking}, nil
}

// validateWindowFits проверяет, что окно [start, end) лежит внутри рабочего
// дня и не пересекает перерывы
func validateWindowFits(day domain.DaySchedule, start, end time.Time, loc *time.Location) error {
	openMin, err := day.OpenTime.Minutes()
	if err != nil {
		return fmt.Errorf("%w: bad open time: %v", ErrInternal, err)
	}
	closeMin, err := day.CloseTime.Minutes()
	if err != nil {
		return fmt.Errorf("%w: bad close time: %v", ErrInternal, err)
	}

	startLocal := start.In(loc)
	startMin := startLocal.Hour()*60 + startLocal.Minute()
	endMin := startMin + int(end.Sub(start).Minutes())

	if startMin < openMin || endMin > closeMin {
		return fmt.Errorf("%w: window is outside working hours", ErrInvalidTimeSlot)
	}

	for _, br := range day.Breaks {
		bs, err := br.Start.Minutes()
		if err != nil {
			continue
		}
		be, err := br.End.Minutes()
		if err != nil {
			continue
		}
		if startMin < be && endMin > bs {
			return fmt.Errorf("%w: window overlaps a break", ErrInvalidTimeSlot)
		}
	}

	return nil
}

// postCommit выполняет побочные эффекты переноса
func (uc *UseCase) postCommit(b *domain.Booking, oldStart time.Time, loc *time.Location) {
	ctx, cancel := context.WithTimeout(context.Background(), postCommitTimeout)
	defer cancel()

	// Обе даты затронуты: слоты старого дня освободились, нового - заняты
	oldDate := oldStart.In(loc).Format(domain.DateFormat)
	newDate := b.StartTime.In(loc).Format(domain.DateFormat)

	if err := uc.slotCache.Invalidate(ctx, b.ShopID, &oldDate); err != nil {
		uc.logger.Warn("RescheduleBooking: slot cache invalidation failed for shop=%d date=%s: %v",
			b.ShopID, oldDate, err)
	}
	if newDate != oldDate {
		if err := uc.slotCache.Invalidate(ctx, b.ShopID, &newDate); err != nil {
			uc.logger.Warn("RescheduleBooking: slot cache invalidation failed for shop=%d date=%s: %v",
				b.ShopID, newDate, err)
		}
	}

	if err := uc.queueRefresh.RefreshShopStats(ctx, b.ShopID); err != nil {
		uc.logger.Warn("RescheduleBooking: queue stats refresh failed for shop=%d: %v", b.ShopID, err)
	}

	event := notifyservice.BookingEvent{
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		ShopID:        b.ShopID,
		UserID:        b.UserID,
		Status:        string(b.Status),
		StartTime:     b.StartTime.Format(time.RFC3339),
	}
	if err := uc.notifyClient.BookingStatusChanged(ctx, event); err != nil {
		uc.logger.Warn("RescheduleBooking: notification failed for booking=%d: %v", b.ID, err)
	}
}
