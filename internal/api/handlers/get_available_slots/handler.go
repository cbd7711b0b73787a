package get_available_slots

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/overlinehq/booking-service/internal/api/handlers"
	getAvailableSlots "github.com/overlinehq/booking-service/internal/usecase/get_available_slots"
)

const (
	msgInvalidShopID   = "некорректный идентификатор магазина"
	msgInvalidQuery    = "некорректные параметры запроса"
	msgShopNotFound    = "магазин не найден"
	msgServiceNotFound = "услуга не найдена"
	msgInvalidDate     = "некорректная дата, ожидается YYYY-MM-DD"
	msgInvalidDuration = "некорректная длительность"
)

type Handler struct {
	useCase GetAvailableSlotsUseCase
	logger  Logger
}

func NewHandler(useCase GetAvailableSlotsUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle GET /api/v1/shops/{shopId}/available-slots
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	shopID, err := strconv.ParseInt(mux.Vars(r)["shopId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /shops/{shopId}/available-slots - Invalid shop id: %v", err)
		handlers.RespondBadRequest(w, msgInvalidShopID)
		return
	}

	req, err := ParseRequest(shopID, r.URL.Query())
	if err != nil {
		h.logger.Warn("GET /shops/%d/available-slots - Invalid query: %v", shopID, err)
		handlers.RespondBadRequest(w, msgInvalidQuery)
		return
	}

	result, err := h.useCase.Execute(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, getAvailableSlots.ErrShopNotFound):
			h.logger.Warn("GET /shops/%d/available-slots - Shop not found", shopID)
			handlers.RespondNotFound(w, msgShopNotFound)

		case errors.Is(err, getAvailableSlots.ErrServiceNotFound):
			h.logger.Warn("GET /shops/%d/available-slots - Service not found", shopID)
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, getAvailableSlots.ErrInvalidDate):
			h.logger.Warn("GET /shops/%d/available-slots - Invalid date", shopID)
			handlers.RespondBadRequest(w, msgInvalidDate)

		case errors.Is(err, getAvailableSlots.ErrInvalidDuration):
			h.logger.Warn("GET /shops/%d/available-slots - Invalid duration", shopID)
			handlers.RespondBadRequest(w, msgInvalidDuration)

		case errors.Is(err, getAvailableSlots.ErrInvalidInput):
			h.logger.Warn("GET /shops/%d/available-slots - Invalid input: %v", shopID, err)
			handlers.RespondBadRequest(w, msgInvalidQuery)

		default:
			h.logger.Error("GET /shops/%d/available-slots - Failed to get slots: %v", shopID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
