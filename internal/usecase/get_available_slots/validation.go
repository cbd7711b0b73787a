package get_available_slots

import (
	"fmt"

	"github.com/overlinehq/booking-service/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.ShopID <= 0 {
		return fmt.Errorf("%w: shopID must be positive", ErrInvalidInput)
	}

	if req.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	if req.StaffID != nil && *req.StaffID <= 0 {
		return fmt.Errorf("%w: staffID must be positive", ErrInvalidInput)
	}

	for _, id := range req.ServiceIDs {
		if id <= 0 {
			return fmt.Errorf("%w: serviceID must be positive", ErrInvalidInput)
		}
	}

	// Без набора услуг длительность задается явно
	if len(req.ServiceIDs) == 0 {
		if req.DurationMinutes == nil {
			return fmt.Errorf("%w: either serviceIDs or durationMinutes is required", ErrInvalidInput)
		}
		if *req.DurationMinutes < domain.MinExplicitDurationMinutes {
			return fmt.Errorf("%w: durationMinutes must be at least %d",
				ErrInvalidDuration, domain.MinExplicitDurationMinutes)
		}
	}

	return nil
}
