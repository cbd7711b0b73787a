package get_next_available_slot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	getNextAvailableSlot "github.com/overlinehq/booking-service/internal/usecase/get_next_available_slot"
)

// SlotResponse HTTP модель найденного слота
type SlotResponse struct {
	StartTime string `json:"startTime"` // RFC3339
	EndTime   string `json:"endTime"`
	StaffID   *int64 `json:"staffId,omitempty"`
}

// NextAvailableSlotResponse HTTP модель ответа.
// slot == null означает, что свободных слотов в горизонте поиска нет.
type NextAvailableSlotResponse struct {
	ShopID int64         `json:"shopId"`
	Slot   *SlotResponse `json:"slot"`
}

// ParseRequest собирает модель use case из path и query параметров
func ParseRequest(shopID int64, query map[string][]string) (*getNextAvailableSlot.Request, error) {
	get := func(name string) string {
		if vals, ok := query[name]; ok && len(vals) > 0 {
			return strings.TrimSpace(vals[0])
		}
		return ""
	}

	req := &getNextAvailableSlot.Request{ShopID: shopID}

	if raw := get("serviceIds"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid serviceIds %q: %w", raw, err)
			}
			req.ServiceIDs = append(req.ServiceIDs, id)
		}
	}

	if raw := get("duration"); raw != "" {
		duration, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		req.DurationMinutes = &duration
	}

	if raw := get("staffId"); raw != "" {
		staffID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid staffId %q: %w", raw, err)
		}
		req.StaffID = &staffID
	}

	return req, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *getNextAvailableSlot.Response) *NextAvailableSlotResponse {
	out := &NextAvailableSlotResponse{ShopID: resp.ShopID}
	if resp.Slot != nil {
		out.Slot = &SlotResponse{
			StartTime: resp.Slot.StartTime.Format(time.RFC3339),
			EndTime:   resp.Slot.EndTime.Format(time.RFC3339),
			StaffID:   resp.Slot.StaffID,
		}
	}
	return out
}
