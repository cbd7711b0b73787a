package domain

// Slot generation constants
const (
	// SlotIntervalMinutes is the fixed granularity of candidate slot starts
	SlotIntervalMinutes = 15

	// MinAdvanceBookingMinutes is the minimum lead time for same-day slots
	MinAdvanceBookingMinutes = 30

	// MinExplicitDurationMinutes is the smallest caller-supplied duration
	// accepted when no services are selected
	MinExplicitDurationMinutes = 5

	// CancellationLeadTimeMinutes is how long before start a customer may
	// still cancel
	CancellationLeadTimeMinutes = 60

	// WaitEstimateHorizonHours bounds the bookings counted into the wait
	// time estimate
	WaitEstimateHorizonHours = 4

	// NextSlotScanDays is how far ahead GetNextAvailableSlot looks
	NextSlotScanDays = 7
)

// Time format constants
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// ActiveStatuses are the statuses that consume capacity.
// Used by every overlap/conflict query against the ledger.
var ActiveStatuses = []BookingStatus{
	StatusPending,
	StatusConfirmed,
	StatusInProgress,
}

// WaitingStatuses are the statuses counted into a shop's waiting queue
var WaitingStatuses = []BookingStatus{
	StatusPending,
	StatusConfirmed,
}

// ReschedulableStatuses are the statuses from which a booking may still be
// moved to a new window. Mirrors Booking.CanBeRescheduled.
var ReschedulableStatuses = []BookingStatus{
	StatusPending,
	StatusConfirmed,
}
