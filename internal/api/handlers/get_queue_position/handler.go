package get_queue_position

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/overlinehq/booking-service/internal/api/handlers"
	"github.com/overlinehq/booking-service/internal/service/queue"
)

const msgInvalidBookingID = "некорректный идентификатор бронирования"

// QueuePositionResponse HTTP модель живой позиции в очереди.
// inQueue == false означает, что бронирование не найдено или уже неактивно.
type QueuePositionResponse struct {
	BookingID int64 `json:"bookingId"`
	Position  int   `json:"position"`
	InQueue   bool  `json:"inQueue"`
}

type Handler struct {
	service QueueService
	logger  Logger
}

func NewHandler(service QueueService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/bookings/{bookingId}/queue-position
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseInt(mux.Vars(r)["bookingId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /bookings/{bookingId}/queue-position - Invalid booking id: %v", err)
		handlers.RespondBadRequest(w, msgInvalidBookingID)
		return
	}

	position, err := h.service.Position(r.Context(), bookingID)
	if err != nil {
		h.logger.Error("GET /bookings/%d/queue-position - Failed to get position: %v", bookingID, err)
		handlers.RespondInternalError(w)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, QueuePositionResponse{
		BookingID: bookingID,
		Position:  position,
		InQueue:   position != queue.PositionNotInQueue,
	})
}
