package get_user_bookings

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/overlinehq/booking-service/internal/api/handlers"
	"github.com/overlinehq/booking-service/internal/api/middleware"
	"github.com/overlinehq/booking-service/internal/service/bookings"
	"github.com/overlinehq/booking-service/internal/service/bookings/models"
)

const (
	msgInvalidUserID = "некорректный идентификатор пользователя"
	msgAccessDenied  = "нет доступа к бронированиям другого пользователя"
	msgInvalidStatus = "неизвестный статус бронирования"
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

// Handle GET /api/v1/users/{userId}/bookings
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /users/{userId}/bookings - Invalid user id: %v", err)
		handlers.RespondBadRequest(w, msgInvalidUserID)
		return
	}

	// Маршрут за Auth: пользователь видит только свои бронирования
	if authID, ok := middleware.UserIDFromContext(r.Context()); ok && authID != userID {
		h.logger.Warn("GET /users/%d/bookings - Access denied for user %d", userID, authID)
		handlers.RespondError(w, http.StatusForbidden, msgAccessDenied)
		return
	}

	req := &models.GetUserBookingsRequest{UserID: userID}
	if raw := r.URL.Query().Get("status"); raw != "" {
		req.Status = &raw
	}

	result, err := h.service.GetUserBookings(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrInvalidStatus):
			h.logger.Warn("GET /users/%d/bookings - Invalid status filter", userID)
			handlers.RespondBadRequest(w, msgInvalidStatus)

		default:
			h.logger.Error("GET /users/%d/bookings - Failed to get bookings: %v", userID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
