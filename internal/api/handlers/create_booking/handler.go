package create_booking

import (
	"errors"
	"net/http"

	"github.com/overlinehq/booking-service/internal/api/handlers"
	"github.com/overlinehq/booking-service/internal/api/middleware"
	createBooking "github.com/overlinehq/booking-service/internal/usecase/create_booking"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidStartTime   = "некорректное время начала, ожидается RFC3339"
	msgShopNotFound       = "магазин не найден"
	msgServiceNotFound    = "услуга не найдена"
	msgShopClosed         = "магазин закрыт в выбранную дату"
	msgSlotNotAvailable   = "выбранный временной слот недоступен"
	msgInvalidTimeSlot    = "окно выходит за рабочие часы или попадает в перерыв"
	msgStartTimeInPast    = "время начала должно быть в будущем"
	msgInvalidDuration    = "некорректная длительность"
	msgInvalidInput       = "некорректные данные бронирования"
)

type Handler struct {
	useCase CreateBookingUseCase
	logger  Logger
}

func NewHandler(useCase CreateBookingUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/bookings
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /bookings - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest(middleware.OptionalUserID(r))
	if err != nil {
		h.logger.Warn("POST /bookings - Failed to parse request: %v", err)
		handlers.RespondBadRequest(w, msgInvalidStartTime)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, createBooking.ErrSlotNotAvailable):
			h.logger.Warn("POST /bookings - Slot not available: shop_id=%d", req.ShopID)
			handlers.RespondError(w, http.StatusConflict, msgSlotNotAvailable)

		case errors.Is(err, createBooking.ErrShopNotFound):
			h.logger.Warn("POST /bookings - Shop not found: shop_id=%d", req.ShopID)
			handlers.RespondNotFound(w, msgShopNotFound)

		case errors.Is(err, createBooking.ErrServiceNotFound):
			h.logger.Warn("POST /bookings - Service not found: shop_id=%d", req.ShopID)
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, createBooking.ErrShopClosed):
			h.logger.Warn("POST /bookings - Shop closed: shop_id=%d", req.ShopID)
			handlers.RespondBadRequest(w, msgShopClosed)

		case errors.Is(err, createBooking.ErrInvalidTimeSlot):
			h.logger.Warn("POST /bookings - Invalid time slot: shop_id=%d", req.ShopID)
			handlers.RespondBadRequest(w, msgInvalidTimeSlot)

		case errors.Is(err, createBooking.ErrStartTimeInPast):
			h.logger.Warn("POST /bookings - Start time in past: shop_id=%d", req.ShopID)
			handlers.RespondBadRequest(w, msgStartTimeInPast)

		case errors.Is(err, createBooking.ErrInvalidDuration):
			h.logger.Warn("POST /bookings - Invalid duration: shop_id=%d", req.ShopID)
			handlers.RespondBadRequest(w, msgInvalidDuration)

		case errors.Is(err, createBooking.ErrInvalidInput):
			h.logger.Warn("POST /bookings - Invalid input: shop_id=%d, error=%v", req.ShopID, err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		default:
			h.logger.Error("POST /bookings - Failed to create booking: shop_id=%d, error=%v", req.ShopID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /bookings - Booking created: booking_id=%d, number=%s, shop_id=%d",
		result.Booking.ID, result.Booking.BookingNumber, result.Booking.ShopID)
	handlers.RespondJSON(w, http.StatusCreated, FromUseCaseResponse(result))
}
