package cancel_booking

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/overlinehq/booking-service/internal/api/handlers"
	"github.com/overlinehq/booking-service/internal/api/middleware"
	"github.com/overlinehq/booking-service/internal/service/bookings"
	"github.com/overlinehq/booking-service/internal/service/bookings/models"
)

const (
	msgInvalidBookingID    = "некорректный идентификатор бронирования"
	msgInvalidRequestBody  = "некорректное тело запроса"
	msgBookingNotFound     = "бронирование не найдено"
	msgAccessDenied        = "бронирование принадлежит другому пользователю"
	msgCannotCancel        = "бронирование нельзя отменить в текущем статусе"
	msgCancellationTooLate = "отмена возможна не позднее чем за час до начала"
)

type Handler struct {
	service BookingService
	logger  Logger
}

func NewHandler(service BookingService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle PATCH /api/v1/bookings/{bookingId}/cancel
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseInt(mux.Vars(r)["bookingId"], 10, 64)
	if err != nil {
		h.logger.Warn("PATCH /bookings/{bookingId}/cancel - Invalid booking id: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	// Тело опционально: гость может отменить без причины
	var req CancelBookingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("PATCH /bookings/%d/cancel - Invalid request body: %v", bookingID, err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	serviceReq := &models.CancelBookingRequest{
		UserID: middleware.OptionalUserID(r),
		Reason: req.Reason,
	}

	if err := h.service.Cancel(r.Context(), bookingID, serviceReq); err != nil {
		switch {
		case errors.Is(err, bookings.ErrBookingNotFound):
			h.logger.Warn("PATCH /bookings/%d/cancel - Booking not found", bookingID)
			handlers.RespondNotFound(w, msgBookingNotFound)

		case errors.Is(err, bookings.ErrAccessDenied):
			h.logger.Warn("PATCH /bookings/%d/cancel - Access denied", bookingID)
			handlers.RespondError(w, http.StatusForbidden, msgAccessDenied)

		case errors.Is(err, bookings.ErrCannotCancel):
			h.logger.Warn("PATCH /bookings/%d/cancel - Cannot cancel", bookingID)
			handlers.RespondBadRequest(w, msgCannotCancel)

		case errors.Is(err, bookings.ErrCancellationTooLate):
			h.logger.Warn("PATCH /bookings/%d/cancel - Cancellation too late", bookingID)
			handlers.RespondBadRequest(w, msgCancellationTooLate)

		default:
			h.logger.Error("PATCH /bookings/%d/cancel - Failed to cancel: %v", bookingID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /bookings/%d/cancel - Booking cancelled", bookingID)
	w.WriteHeader(http.StatusNoContent)
}
