package create_booking

import (
	"fmt"
	"time"

	"github.com/overlinehq/booking-service/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.ShopID <= 0 {
		return fmt.Errorf("%w: shopID must be positive", ErrInvalidInput)
	}

	if req.StartTime.IsZero() {
		return fmt.Errorf("%w: startTime is required", ErrInvalidInput)
	}

	if req.StaffID != nil && *req.StaffID <= 0 {
		return fmt.Errorf("%w: staffID must be positive", ErrInvalidInput)
	}

	for _, id := range req.ServiceIDs {
		if id <= 0 {
			return fmt.Errorf("%w: serviceID must be positive", ErrInvalidInput)
		}
	}

	if len(req.ServiceIDs) == 0 {
		if req.DurationMinutes == nil {
			return fmt.Errorf("%w: either serviceIDs or durationMinutes is required", ErrInvalidInput)
		}
		if *req.DurationMinutes < domain.MinExplicitDurationMinutes {
			return fmt.Errorf("%w: durationMinutes must be at least %d",
				ErrInvalidDuration, domain.MinExplicitDurationMinutes)
		}
	}

	return validateCustomer(req)
}

// validateCustomer проверяет, что заказчик указан ровно одним способом:
// зарегистрированный пользователь или гость с именем и телефоном.
func validateCustomer(req *Request) error {
	if req.UserID != nil {
		if *req.UserID <= 0 {
			return fmt.Errorf("%w: userID must be positive", ErrInvalidInput)
		}
		if req.CustomerName != nil || req.CustomerPhone != nil || req.CustomerEmail != nil {
			return fmt.Errorf("%w: userID and guest contact fields are mutually exclusive", ErrInvalidInput)
		}
		return nil
	}

	if req.CustomerName == nil || *req.CustomerName == "" {
		return fmt.Errorf("%w: guest booking requires customerName", ErrInvalidInput)
	}
	if req.CustomerPhone == nil || *req.CustomerPhone == "" {
		return fmt.Errorf("%w: guest booking requires customerPhone", ErrInvalidInput)
	}

	return nil
}

// validateWindowFits проверяет, что окно [start, end) лежит внутри рабочего
// дня и не пересекает перерывы. Интервалы полуоткрытые: касание границы
// перерыва не считается пересечением.
func validateWindowFits(day domain.DaySchedule, start, end time.Time, loc *time.Location) error {
	openMin, err := day.OpenTime.Minutes()
	if err != nil {
		return fmt.Errorf("%w: bad open time: %v", ErrInternal, err)
	}
	closeMin, err := day.CloseTime.Minutes()
	if err != nil {
		return fmt.Errorf("%w: bad close time: %v", ErrInternal, err)
	}

	startLocal := start.In(loc)
	endLocal := end.In(loc)

	startMin := startLocal.Hour()*60 + startLocal.Minute()
	endMin := startMin + int(endLocal.Sub(startLocal).Minutes())

	if startMin < openMin || endMin > closeMin {
		return fmt.Errorf("%w: window is outside working hours", ErrInvalidTimeSlot)
	}

	for _, br := range day.Breaks {
		bs, err := br.Start.Minutes()
		if err != nil {
			continue
		}
		be, err := br.End.Minutes()
		if err != nil {
			continue
		}
		if startMin < be && endMin > bs {
			return fmt.Errorf("%w: window overlaps a break", ErrInvalidTimeSlot)
		}
	}

	return nil
}

// countOverlapping подсчитывает активные бронирования, пересекающиеся с окном
func countOverlapping(bookings []*domain.Booking, start, end time.Time) int {
	count := 0
	for _, b := range bookings {
		if b.IsActive() && b.Overlaps(start, end) {
			count++
		}
	}
	return count
}
