package get_next_available_slot

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/overlinehq/booking-service/internal/api/handlers"
	getNextAvailableSlot "github.com/overlinehq/booking-service/internal/usecase/get_next_available_slot"
)

const (
	msgInvalidShopID   = "некорректный идентификатор магазина"
	msgInvalidQuery    = "некорректные параметры запроса"
	msgShopNotFound    = "магазин не найден"
	msgServiceNotFound = "услуга не найдена"
)

type Handler struct {
	useCase GetNextAvailableSlotUseCase
	logger  Logger
}

func NewHandler(useCase GetNextAvailableSlotUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle GET /api/v1/shops/{shopId}/next-available-slot
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	shopID, err := strconv.ParseInt(mux.Vars(r)["shopId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /shops/{shopId}/next-available-slot - Invalid shop id: %v", err)
		handlers.RespondBadRequest(w, msgInvalidShopID)
		return
	}

	req, err := ParseRequest(shopID, r.URL.Query())
	if err != nil {
		h.logger.Warn("GET /shops/%d/next-available-slot - Invalid query: %v", shopID, err)
		handlers.RespondBadRequest(w, msgInvalidQuery)
		return
	}

	result, err := h.useCase.Execute(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, getNextAvailableSlot.ErrShopNotFound):
			h.logger.Warn("GET /shops/%d/next-available-slot - Shop not found", shopID)
			handlers.RespondNotFound(w, msgShopNotFound)

		case errors.Is(err, getNextAvailableSlot.ErrServiceNotFound):
			h.logger.Warn("GET /shops/%d/next-available-slot - Service not found", shopID)
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, getNextAvailableSlot.ErrInvalidInput):
			h.logger.Warn("GET /shops/%d/next-available-slot - Invalid input: %v", shopID, err)
			handlers.RespondBadRequest(w, msgInvalidQuery)

		default:
			h.logger.Error("GET /shops/%d/next-available-slot - Failed to find slot: %v", shopID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
