package get_available_slots

import (
	"time"

	"github.com/overlinehq/booking-service/internal/domain"
)

// generateCandidateStarts генерирует все возможные времена начала слота на день.
// Кандидаты идут от открытия магазина с фиксированным шагом domain.SlotIntervalMinutes;
// слот целиком помещается до закрытия, не попадает в перерыв и (для сегодняшней
// даты) начинается не раньше, чем через domain.MinAdvanceBookingMinutes от now.
func generateCandidateStarts(
	day domain.DaySchedule,
	date time.Time,
	loc *time.Location,
	durationMinutes int,
	now time.Time,
) ([]time.Time, error) {
	if day.IsClosed {
		return []time.Time{}, nil
	}

	openMin, err := day.OpenTime.Minutes()
	if err != nil {
		return nil, err
	}
	closeMin, err := day.CloseTime.Minutes()
	if err != nil {
		return nil, err
	}

	// Минимально допустимое время начала для сегодняшней даты
	nowLocal := now.In(loc)
	var minStart time.Time
	if isSameDay(date, nowLocal) {
		minStart = nowLocal.Add(domain.MinAdvanceBookingMinutes * time.Minute)
	}
	if isDateInPast(date, nowLocal) {
		return []time.Time{}, nil
	}

	year, month, dayNum := date.Date()

	starts := make([]time.Time, 0)
	for m := openMin; m+durationMinutes <= closeMin; m += domain.SlotIntervalMinutes {
		if overlapsBreak(m, m+durationMinutes, day.Breaks) {
			continue
		}

		start := time.Date(year, month, dayNum, m/60, m%60, 0, 0, loc)
		if !minStart.IsZero() && start.Before(minStart) {
			continue
		}

		starts = append(starts, start)
	}

	return starts, nil
}

// overlapsBreak проверяет, пересекается ли слот [startMin, endMin) с одним из
// перерывов. Интервалы полуоткрытые: слот, заканчивающийся ровно в начале
// перерыва (или начинающийся ровно в его конце), не пересекается с ним.
func overlapsBreak(startMin, endMin int, breaks []domain.BreakWindow) bool {
	for _, br := range breaks {
		bs, err := br.Start.Minutes()
		if err != nil {
			continue
		}
		be, err := br.End.Minutes()
		if err != nil {
			continue
		}

		if startMin < be && endMin > bs {
			return true
		}
	}
	return false
}

// buildSlots вычисляет доступность каждого кандидата по активным бронированиям.
//
// Вместимость: запрос на конкретного мастера - ровно одно место (мастер не
// может обслуживать двоих), запрос на магазин - maxConcurrentBookings мест.
// Слот доступен, пока число пересекающихся бронирований меньше вместимости.
func buildSlots(
	starts []time.Time,
	durationMinutes int,
	bookings []*domain.Booking,
	capacity int,
	staffID *int64,
) []domain.TimeSlot {
	slots := make([]domain.TimeSlot, len(starts))

	for i, start := range starts {
		end := start.Add(time.Duration(durationMinutes) * time.Minute)

		overlapping := 0
		for _, b := range bookings {
			if b.IsActive() && b.Overlaps(start, end) {
				overlapping++
			}
		}

		slots[i] = domain.TimeSlot{
			StartTime: start,
			EndTime:   end,
			Available: overlapping < capacity,
			StaffID:   staffID,
		}
	}

	return slots
}

// isSameDay проверяет, что две даты относятся к одному и тому же дню
func isSameDay(date1, date2 time.Time) bool {
	y1, m1, d1 := date1.Date()
	y2, m2, d2 := date2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// isDateInPast проверяет, что дата в прошлом (раньше сегодняшнего дня)
func isDateInPast(date, now time.Time) bool {
	dateOnly := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	nowOnly := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return dateOnly.Before(nowOnly)
}
