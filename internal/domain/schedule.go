package domain

import (
	"time"

	"github.com/overlinehq/booking-service/pkg/types"
)

// BreakWindow is a pause inside a working day during which no slot may run.
// Windows are non-overlapping by construction (enforced by admin tooling).
type BreakWindow struct {
	Start types.TimeString `json:"start"`
	End   types.TimeString `json:"end"`
}

// WorkingHours is a shop's weekly schedule row for one day of the week
type WorkingHours struct {
	ID        int64
	ShopID    int64
	DayOfWeek time.Weekday
	OpenTime  types.TimeString
	CloseTime types.TimeString
	IsClosed  bool
	Breaks    []BreakWindow
}

// SpecialSchedule is a date-specific override of the weekly schedule.
// Nil open/close fields fall back to the weekday row.
type SpecialSchedule struct {
	ID        int64
	ShopID    int64
	Date      time.Time
	OpenTime  *types.TimeString
	CloseTime *types.TimeString
	IsClosed  bool
}

// DaySchedule is the resolved schedule for one calendar date
type DaySchedule struct {
	IsClosed  bool
	OpenTime  types.TimeString
	CloseTime types.TimeString
	Breaks    []BreakWindow
}

// ResolveDaySchedule merges a weekday row with an optional date override.
// The override takes precedence for open/close/closed; break windows always
// come from the weekday row. A missing weekday row means the shop never
// opens on that day.
func ResolveDaySchedule(wh *WorkingHours, special *SpecialSchedule) DaySchedule {
	if wh == nil {
		return DaySchedule{IsClosed: true}
	}

	day := DaySchedule{
		IsClosed:  wh.IsClosed,
		OpenTime:  wh.OpenTime,
		CloseTime: wh.CloseTime,
		Breaks:    wh.Breaks,
	}

	if special != nil {
		day.IsClosed = special.IsClosed
		if special.OpenTime != nil {
			day.OpenTime = *special.OpenTime
		}
		if special.CloseTime != nil {
			day.CloseTime = *special.CloseTime
		}
	}

	return day
}
