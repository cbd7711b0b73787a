package get_shop_queue_stats

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/overlinehq/booking-service/internal/api/handlers"
	"github.com/overlinehq/booking-service/internal/service/queue"
)

const (
	msgInvalidShopID = "некорректный идентификатор магазина"
	msgShopNotFound  = "магазин не найден"
)

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

// Handle GET /api/v1/shops/{shopId}/queue-stats
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	shopID, err := strconv.ParseInt(mux.Vars(r)["shopId"], 10, 64)
	if err != nil {
		h.logger.Warn("GET /shops/{shopId}/queue-stats - Invalid shop id: %v", err)
		handlers.RespondBadRequest(w, msgInvalidShopID)
		return
	}

	stats, err := h.service.GetShopStats(r.Context(), shopID)
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrShopNotFound):
			h.logger.Warn("GET /shops/%d/queue-stats - Shop not found", shopID)
			handlers.RespondNotFound(w, msgShopNotFound)

		default:
			h.logger.Error("GET /shops/%d/queue-stats - Failed to get stats: %v", shopID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, stats)
}
