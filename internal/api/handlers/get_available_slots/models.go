package get_available_slots

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/overlinehq/booking-service/internal/domain"
	getAvailableSlots "github.com/overlinehq/booking-service/internal/usecase/get_available_slots"
)

// SlotResponse HTTP модель одного слота
type SlotResponse struct {
	StartTime string `json:"startTime"` // RFC3339
	EndTime   string `json:"endTime"`
	Available bool   `json:"available"`
	StaffID   *int64 `json:"staffId,omitempty"`
}

// AvailableSlotsResponse HTTP модель ответа со слотами дня
type AvailableSlotsResponse struct {
	ShopID               int64          `json:"shopId"`
	Date                 string         `json:"date"`
	TotalDurationMinutes int            `json:"totalDurationMinutes"`
	Slots                []SlotResponse `json:"slots"`
}

// ParseRequest собирает модель use case из path и query параметров.
// date обязателен (YYYY-MM-DD), serviceIds - список через запятую,
// duration и staffId опциональны.
func ParseRequest(shopID int64, query map[string][]string) (*getAvailableSlots.Request, error) {
	get := func(name string) string {
		if vals, ok := query[name]; ok && len(vals) > 0 {
			return strings.TrimSpace(vals[0])
		}
		return ""
	}

	rawDate := get("date")
	if rawDate == "" {
		return nil, fmt.Errorf("date is required")
	}
	date, err := time.Parse(domain.DateFormat, rawDate)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", rawDate, err)
	}

	req := &getAvailableSlots.Request{
		ShopID: shopID,
		Date:   date,
	}

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
func FromUseCaseResponse(resp *getAvailableSlots.Response) *AvailableSlotsResponse {
	slots := make([]SlotResponse, 0, len(resp.Slots))
	for _, slot := range resp.Slots {
		slots = append(slots, SlotResponse{
			StartTime: slot.StartTime.Format(time.RFC3339),
			EndTime:   slot.EndTime.Format(time.RFC3339),
			Available: slot.Available,
			StaffID:   slot.StaffID,
		})
	}

	return &AvailableSlotsResponse{
		ShopID:               resp.ShopID,
		Date:                 resp.Date.Format(domain.DateFormat),
		TotalDurationMinutes: resp.TotalDurationMinutes,
		Slots:                slots,
	}
}
