package reschedule_booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/overlinehq/booking-service/internal/api/handlers"
	rescheduleBooking "github.com/overlinehq/booking-service/internal/usecase/reschedule_booking"
)

const (
	msgInvalidBookingID   = "некорректный идентификатор бронирования"
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidStartTime   = "некорректное время начала, ожидается RFC3339"
	msgBookingNotFound    = "бронирование не найдено"
	msgShopNotFound       = "магазин не найден"
	msgNotReschedulable   = "бронирование нельзя перенести в текущем статусе"
	msgShopClosed         = "магазин закрыт в выбранную дату"
	msgSlotNotAvailable   = "выбранный временной слот недоступен"
	msgInvalidTimeSlot    = "окно выходит за рабочие часы или попадает в перерыв"
	msgStartTimeInPast    = "время начала должно быть в будущем"
)

type Handler struct {
	useCase RescheduleBookingUseCase
	logger  Logger
}

func NewHandler(useCase RescheduleBookingUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle PATCH /api/v1/bookings/{bookingId}/reschedule
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseInt(mux.Vars(r)["bookingId"], 10, 64)
	if err != nil {
		h.logger.Warn("PATCH /bookings/{bookingId}/reschedule - Invalid booking id: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	var req RescheduleBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /bookings/%d/reschedule - Invalid request body: %v", bookingID, err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest(bookingID)
	if err != nil {
		h.logger.Warn("PATCH /bookings/%d/reschedule - Failed to parse request: %v", bookingID, err)
		handlers.RespondBadRequest(w, msgInvalidStartTime)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, rescheduleBooking.ErrSlotNotAvailable):
			h.logger.Warn("PATCH /bookings/%d/reschedule - Slot not available", bookingID)
			handlers.RespondError(w, http.StatusConflict, msgSlotNotAvailable)

		case errors.Is(err, rescheduleBooking.ErrBookingNotFound):
			h.logger.Warn("PATCH /bookings/%d/reschedule - Booking not found", bookingID)
			handlers.RespondNotFound(w, msgBookingNotFound)

		case errors.Is(err, rescheduleBooking.ErrShopNotFound):
			h.logger.Warn("PATCH /bookings/%d/reschedule - Shop not found", bookingID)
			handlers.RespondNotFound(w, msgShopNotFound)

		case errors.Is(err, rescheduleBooking.ErrNotReschedulable):
			h.logger.Warn("PATCH /bookings/%d/reschedule - Not reschedulable", bookingID)
			handlers.RespondBadRequest(w, msgNotReschedulable)

		case errors.Is(err, rescheduleBooking.ErrShopClosed):
			h.logger.Warn("PATCH /bookings/%d/reschedule - Shop closed", bookingID)
			handlers.RespondBadRequest(w, msgShopClosed)

		case errors.Is(err, rescheduleBooking.ErrInvalidTimeSlot):
			h.logger.Warn("PATCH /bookings/%d/reschedule - Invalid time slot", bookingID)
			handlers.RespondBadRequest(w, msgInvalidTimeSlot)

		case errors.Is(err, rescheduleBooking.ErrStartTimeInPast):
			h.logger.Warn("PATCH /bookings/%d/reschedule - Start time in past", bookingID)
			handlers.RespondBadRequest(w, msgStartTimeInPast)

		case errors.Is(err, rescheduleBooking.ErrInvalidInput):
			h.logger.Warn("PATCH /bookings/%d/reschedule - Invalid input: %v", bookingID, err)
			handlers.RespondBadRequest(w, msgInvalidRequestBody)

		default:
			h.logger.Error("PATCH /bookings/%d/reschedule - Failed to reschedule: %v", bookingID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /bookings/%d/reschedule - Booking rescheduled to %s",
		bookingID, result.Booking.StartTime)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
