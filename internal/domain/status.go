package domain

// allowedTransitions is the booking status state machine. Statuses missing
// from a target list are illegal transitions; terminal statuses have empty
// lists and accept nothing.
var allowedTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:    {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusNoShow:     {},
	StatusRejected:   {},
}

// IsValidStatus reports whether s is a known booking status
func IsValidStatus(s BookingStatus) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether the status change from -> to is allowed
func CanTransition(from, to BookingStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether s has no outgoing transitions
func IsTerminalStatus(s BookingStatus) bool {
	return len(allowedTransitions[s]) == 0 && IsValidStatus(s)
}
