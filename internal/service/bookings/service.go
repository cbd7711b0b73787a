package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/overlinehq/booking-service/internal/domain"
	bookingRepo "github.com/overlinehq/booking-service/internal/infra/storage/booking"
	"github.com/overlinehq/booking-service/internal/integrations/notifyservice"
	"github.com/overlinehq/booking-service/internal/service/bookings/models"
)

// sideEffectTimeout ограничивает побочные эффекты смены статуса
const sideEffectTimeout = 5 * time.Second

// Service сервис для работы с бронированиями: чтение и смена статусов.
// Создание и перенос живут в отдельных usecase с сериализуемой транзакцией.
type Service struct {
	bookingRepo  BookingRepository
	shopClient   ShopServiceClient
	queueService QueueService
	notifyClient NotifyServiceClient
	slotCache    SlotCache
	queueRefresh QueueRefresher
	timeProvider TimeProvider
	logger       Logger

	spawn func(fn func())
}

// NewService создает новый экземпляр сервиса бронирований
func NewService(
	bookingRepository BookingRepository,
	shopClient ShopServiceClient,
	queueService QueueService,
	notifyClient NotifyServiceClient,
	slotCache SlotCache,
	queueRefresh QueueRefresher,
	logger Logger,
) *Service {
	return &Service{
		bookingRepo:  bookingRepository,
		shopClient:   shopClient,
		queueService: queueService,
		notifyClient: notifyClient,
		slotCache:    slotCache,
		queueRefresh: queueRefresh,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
		spawn:        func(fn func()) { go fn() },
	}
}

// GetByID получает бронирование по ID с живой позицией в очереди дня
func (s *Service) GetByID(ctx context.Context, id int64) (*models.BookingResponse, error) {
	s.logger.Info("GetByID: fetching booking id=%d", id)

	booking, err := s.getBooking(ctx, id, "GetByID")
	if err != nil {
		return nil, err
	}

	resp := models.FromDomainBooking(booking)

	// Живая позиция пересчитывается из летописи; ошибка пересчета не
	// мешает отдать само бронирование
	position, err := s.queueService.Position(ctx, id)
	if err != nil {
		s.logger.Warn("GetByID: failed to compute queue position for booking id=%d: %v", id, err)
	} else {
		resp.QueuePosition = position
	}

	return resp, nil
}

// GetUserBookings получает историю бронирований пользователя
// Опционально фильтрует по статусу
func (s *Service) GetUserBookings(ctx context.Context, req *models.GetUserBookingsRequest) (*models.BookingListResponse, error) {
	s.logger.Info("GetUserBookings: fetching bookings for user=%d, status=%v", req.UserID, req.Status)

	if req.UserID <= 0 {
		return nil, fmt.Errorf("%w: userID must be positive", ErrInvalidInput)
	}

	var domainStatus *domain.BookingStatus
	if req.Status != nil {
		status, err := models.ToDomainBookingStatus(*req.Status)
		if err != nil {
			s.logger.Warn("GetUserBookings: invalid status=%s for user=%d", *req.Status, req.UserID)
			return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, *req.Status)
		}
		domainStatus = &status
	}

	bookings, err := s.bookingRepo.GetByUserID(ctx, req.UserID, domainStatus)
	if err != nil {
		s.logger.Error("GetUserBookings: repository error for user=%d: %v", req.UserID, err)
		return nil, fmt.Errorf("%w: GetUserBookings - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetUserBookings: fetched %d bookings for user=%d", len(bookings), req.UserID)
	return models.FromDomainBookingList(bookings), nil
}

// GetShopBookings получает бронирования магазина с фильтрацией по мастеру,
// периоду и статусу. Используется стороной магазина для обзора дня.
func (s *Service) GetShopBookings(ctx context.Context, req *models.GetShopBookingsRequest) (*models.BookingListResponse, error) {
	s.logger.Info("GetShopBookings: fetching bookings for shop=%d", req.ShopID)

	if req.ShopID <= 0 {
		return nil, fmt.Errorf("%w: shopID must be positive", ErrInvalidInput)
	}

	filter, err := req.ToDomainFilter()
	if err != nil {
		s.logger.Warn("GetShopBookings: invalid filter for shop=%d: %v", req.ShopID, err)
		return nil, fmt.Errorf("%w: invalid status filter", ErrInvalidStatus)
	}

	bookings, err := s.bookingRepo.GetByShopWithFilter(ctx, filter)
	if err != nil {
		s.logger.Error("GetShopBookings: repository error for shop=%d: %v", req.ShopID, err)
		return nil, fmt.Errorf("%w: GetShopBookings - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetShopBookings: fetched %d bookings for shop=%d", len(bookings), req.ShopID)
	return models.FromDomainBookingList(bookings), nil
}

// Cancel отменяет бронирование по инициативе заказчика.
// Отмена допустима из PENDING и CONFIRMED и не позже, чем за час до начала.
func (s *Service) Cancel(ctx context.Context, bookingID int64, req *models.CancelBookingRequest) error {
	s.logger.Info("Cancel: cancelling booking id=%d", bookingID)

	booking, err := s.getBooking(ctx, bookingID, "Cancel")
	if err != nil {
		return err
	}

	// Бронирование зарегистрированного заказчика может отменить только он
	// сам: анонимный запрос без идентификатора отклоняется так же, как
	// запрос чужого пользователя. Гостевые бронирования владельца не имеют.
	if booking.UserID != nil {
		if req.UserID == nil {
			s.logger.Warn("Cancel: anonymous request for user-owned booking id=%d", bookingID)
			return ErrAccessDenied
		}
		if *booking.UserID != *req.UserID {
			s.logger.Warn("Cancel: user=%d is not the owner of booking id=%d", *req.UserID, bookingID)
			return ErrAccessDenied
		}
	}

	if !booking.CanBeCancelled() {
		s.logger.Warn("Cancel: booking id=%d cannot be cancelled, status=%s", bookingID, booking.Status)
		return ErrCannotCancel
	}

	now := s.timeProvider.Now()
	if booking.StartTime.Sub(now) < domain.CancellationLeadTimeMinutes*time.Minute {
		s.logger.Warn("Cancel: booking id=%d starts at %s, cancellation window is closed",
			bookingID, booking.StartTime.Format(time.RFC3339))
		return ErrCancellationTooLate
	}

	// Guarded UPDATE: конкурентная смена статуса между чтением и записью
	// не дает отменить бронирование, уже покинувшее PENDING/CONFIRMED
	if err := s.bookingRepo.UpdateStatus(ctx, bookingID, booking.Status, domain.StatusCancelled, now); err != nil {
		if errors.Is(err, bookingRepo.ErrStatusConflict) {
			s.logger.Warn("Cancel: booking id=%d changed status concurrently", bookingID)
			return ErrCannotCancel
		}
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			return ErrBookingNotFound
		}
		s.logger.Error("Cancel: repository error for booking id=%d: %v", bookingID, err)
		return fmt.Errorf("%w: Cancel - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("Cancel: booking id=%d cancelled", bookingID)

	booking.Status = domain.StatusCancelled
	// Отмена освобождает место - кэш слотов и очередь устарели
	s.spawn(func() { s.afterStatusChange(booking, true) })

	return nil
}

// UpdateStatus переводит бронирование в новый статус по таблице переходов.
// Используется стороной магазина: подтверждение, отклонение, прибытие,
// завершение, неявка.
func (s *Service) UpdateStatus(ctx context.Context, bookingID int64, req *models.UpdateStatusRequest) (*models.BookingResponse, error) {
	s.logger.Info("UpdateStatus: updating booking id=%d to status=%s", bookingID, req.Status)

	booking, err := s.getBooking(ctx, bookingID, "UpdateStatus")
	if err != nil {
		return nil, err
	}

	newStatus, err := models.ToDomainBookingStatus(req.Status)
	if err != nil {
		s.logger.Warn("UpdateStatus: invalid status=%s for booking id=%d", req.Status, bookingID)
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, req.Status)
	}

	if !domain.CanTransition(booking.Status, newStatus) {
		s.logger.Warn("UpdateStatus: transition %s -> %s is not allowed for booking id=%d",
			booking.Status, newStatus, bookingID)
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, newStatus)
	}

	now := s.timeProvider.Now()
	// Guarded UPDATE: переход валидировался против прочитанного статуса,
	// и запись проходит только если статус в базе все еще тот же. Иначе два
	// конкурентных перехода из одного статуса прошли бы валидацию оба, и
	// поздняя запись воскресила бы терминальное бронирование.
	if err := s.bookingRepo.UpdateStatus(ctx, bookingID, booking.Status, newStatus, now); err != nil {
		if errors.Is(err, bookingRepo.ErrStatusConflict) {
			s.logger.Warn("UpdateStatus: booking id=%d changed status concurrently", bookingID)
			return nil, fmt.Errorf("%w: booking status changed concurrently", ErrInvalidTransition)
		}
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			return nil, ErrBookingNotFound
		}
		s.logger.Error("UpdateStatus: repository error for booking id=%d: %v", bookingID, err)
		return nil, fmt.Errorf("%w: UpdateStatus - repository error: %v", ErrInternal, err)
	}

	// Кэш и очередь устаревают, только когда бронирование покидает
	// активное множество (PENDING/CONFIRMED/IN_PROGRESS) - завершение,
	// отмена, отклонение, неявка. Переходы внутри активного множества
	// вместимость не меняют.
	wasActive := booking.IsActive()
	booking.Status = newStatus
	capacityChanged := wasActive && !booking.IsActive()

	s.applyStatusTimestamps(booking, newStatus, now)
	booking.UpdatedAt = now

	s.logger.Info("UpdateStatus: booking id=%d moved to status=%s", bookingID, newStatus)

	s.spawn(func() { s.afterStatusChange(booking, capacityChanged) })

	return models.FromDomainBooking(booking), nil
}

// getBooking загружает бронирование, унифицируя обработку NotFound
func (s *Service) getBooking(ctx context.Context, id int64, op string) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			s.logger.Warn("%s: booking id=%d not found", op, id)
			return nil, ErrBookingNotFound
		}
		s.logger.Error("%s: repository error for booking id=%d: %v", op, id, err)
		return nil, fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
	}
	return booking, nil
}

// applyStatusTimestamps зеркалит временные метки, которые репозиторий
// проставил при смене статуса, в уже загруженную модель
func (s *Service) applyStatusTimestamps(b *domain.Booking, status domain.BookingStatus, now time.Time) {
	switch status {
	case domain.StatusInProgress:
		b.ArrivedAt = &now
		b.StartedAt = &now
	case domain.StatusCompleted:
		b.CompletedAt = &now
	case domain.StatusCancelled, domain.StatusRejected:
		b.CancelledAt = &now
	}
}

// afterStatusChange выполняет побочные эффекты смены статуса.
// Уведомление уходит всегда; кэш слотов и статистика очереди обновляются,
// только когда смена статуса изменила занятость.
func (s *Service) afterStatusChange(b *domain.Booking, capacityChanged bool) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	if capacityChanged {
		date := s.bookingDate(ctx, b)
		if err := s.slotCache.Invalidate(ctx, b.ShopID, &date); err != nil {
			s.logger.Warn("afterStatusChange: slot cache invalidation failed for shop=%d date=%s: %v",
				b.ShopID, date, err)
		}
		if err := s.queueRefresh.RefreshShopStats(ctx, b.ShopID); err != nil {
			s.logger.Warn("afterStatusChange: queue stats refresh failed for shop=%d: %v", b.ShopID, err)
		}
	}

	event := notifyservice.BookingEvent{
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		ShopID:        b.ShopID,
		UserID:        b.UserID,
		Status:        string(b.Status),
		StartTime:     b.StartTime.Format(time.RFC3339),
	}
	if err := s.notifyClient.BookingStatusChanged(ctx, event); err != nil {
		s.logger.Warn("afterStatusChange: notification failed for booking=%d: %v", b.ID, err)
	}
}

// bookingDate возвращает дату бронирования в таймзоне магазина,
// с откатом на UTC, если магазин недоступен
func (s *Service) bookingDate(ctx context.Context, b *domain.Booking) string {
	shop, err := s.shopClient.GetShop(ctx, b.ShopID)
	if err == nil {
		if loc, locErr := time.LoadLocation(shop.Timezone); locErr == nil {
			return b.StartTime.In(loc).Format(domain.DateFormat)
		}
	}
	return b.StartTime.UTC().Format(domain.DateFormat)
}
