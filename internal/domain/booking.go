package domain

import "time"

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	StatusPending    BookingStatus = "PENDING"
	StatusConfirmed  BookingStatus = "CONFIRMED"
	StatusInProgress BookingStatus = "IN_PROGRESS"
	StatusCompleted  BookingStatus = "COMPLETED"
	StatusCancelled  BookingStatus = "CANCELLED"
	StatusNoShow     BookingStatus = "NO_SHOW"
	StatusRejected   BookingStatus = "REJECTED"
)

// Booking represents a reserved time window in a shop's ledger
type Booking struct {
	ID            int64
	BookingNumber string
	ShopID        int64

	// StaffID is nil for "any staff" bookings, which are limited only by the
	// shop-wide capacity. A set StaffID makes the staff member exclusive for
	// the booked window.
	StaffID *int64

	// UserID is set for registered customers; guest bookings carry the
	// customer contact fields instead. The two are mutually exclusive.
	UserID        *int64
	CustomerName  *string
	CustomerPhone *string
	CustomerEmail *string

	StartTime            time.Time
	EndTime              time.Time
	TotalDurationMinutes int
	TotalAmount          float64
	Currency             string

	// Denormalized at creation time; not recomputed when the service
	// catalog changes later.
	ServiceIDs   []int64
	ServiceNames []string

	Status BookingStatus

	// QueuePosition is a creation-time snapshot kept for display history.
	// Live position is always recomputed from the ledger.
	QueuePosition int

	Notes *string

	ArrivedAt   *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive returns true if the booking consumes capacity
func (b *Booking) IsActive() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed || b.Status == StatusInProgress
}

// CanBeRescheduled returns true if the booking may be moved to a new window
func (b *Booking) CanBeRescheduled() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// CanBeCancelled returns true if the booking may be cancelled
func (b *Booking) CanBeCancelled() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// Overlaps reports whether the booking's [StartTime, EndTime) window
// intersects [start, end). Boundaries touching exactly do not overlap.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

// ShopBookingsFilter describes a ledger query scoped to one shop
type ShopBookingsFilter struct {
	ShopID          int64
	StaffID         *int64     // nil = all staff
	StartDate       *time.Time // start of the period, inclusive
	EndDate         *time.Time // end of the period, exclusive
	Status          *BookingStatus
	IncludeInactive bool // include terminal statuses
}
