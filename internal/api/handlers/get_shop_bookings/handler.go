package get_shop_bookings

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/overlinehq/booking-service/internal/api/handlers"
	"github.com/overlinehq/booking-service/internal/service/bookings"
)

const (
	msgInvalidShopID = "некорректный идентификатор магазина"
	msgInvalidQuery  = "некорректные параметры запроса"
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

// Handle GET /api/v1/shops/{shopId}/bookings
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	shopID, err := strconv.ParseInt(mux.Vars(r)["shopId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /shops/{shopId}/bookings - Invalid shop id: %v", err)
		handlers.RespondBadRequest(w, msgInvalidShopID)
		return
	}

	req, err := ParseRequest(shopID, r.URL.Query())
	if err != nil {
		h.logger.Warn("GET /shops/%d/bookings - Invalid query: %v", shopID, err)
		handlers.RespondBadRequest(w, msgInvalidQuery)
		return
	}

	result, err := h.service.GetShopBookings(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrInvalidStatus):
			h.logger.Warn("GET /shops/%d/bookings - Invalid status filter", shopID)
			handlers.RespondBadRequest(w, msgInvalidStatus)

		case errors.Is(err, bookings.ErrInvalidInput):
			h.logger.Warn("GET /shops/%d/bookings - Invalid input: %v", shopID, err)
			handlers.RespondBadRequest(w, msgInvalidQuery)

		default:
			h.logger.Error("GET /shops/%d/bookings - Failed to get bookings: %v", shopID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
