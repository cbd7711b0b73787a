package get_shop_bookings

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/overlinehq/booking-service/internal/domain"
	"github.com/overlinehq/booking-service/internal/service/bookings/models"
)

// ParseRequest собирает фильтр списка бронирований магазина из query
// параметров: staffId, startDate/endDate (YYYY-MM-DD), status,
// includeInactive
func ParseRequest(shopID int64, query map[string][]string) (*models.GetShopBookingsRequest, error) {
	get := func(name string) string {
		if vals, ok := query[name]; ok && len(vals) > 0 {
			return strings.TrimSpace(vals[0])
		}
		return ""
	}

	req := &models.GetShopBookingsRequest{ShopID: shopID}

	if raw := get("staffId"); raw != "" {
		staffID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid staffId %q: %w", raw, err)
		}
		req.StaffID = &staffID
	}

	if raw := get("startDate"); raw != "" {
		startDate, err := time.Parse(domain.DateFormat, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid startDate %q: %w", raw, err)
		}
		req.StartDate = &startDate
	}

	if raw := get("endDate"); raw != "" {
		endDate, err := time.Parse(domain.DateFormat, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid endDate %q: %w", raw, err)
		}
		req.EndDate = &endDate
	}

	if raw := get("status"); raw != "" {
		req.Status = &raw
	}

	if raw := get("includeInactive"); raw != "" {
		includeInactive, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid includeInactive %q: %w", raw, err)
		}
		req.IncludeInactive = includeInactive
	}

	return req, nil
}
