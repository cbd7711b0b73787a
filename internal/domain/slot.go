package domain

import "time"

// TimeSlot represents a candidate booking window for one date.
// Slots are ephemeral: they are recomputed from the ledger on demand and
// never persisted.
type TimeSlot struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Available bool      `json:"available"`
	StaffID   *int64    `json:"staffId,omitempty"`
}

// QueueStats is a per-shop snapshot derived from the ledger. It is always
// recomputable; the stored copy exists only for fast shop-level reads.
type QueueStats struct {
	ShopID               int64      `json:"shopId"`
	WaitingCount         int        `json:"waitingCount"`
	EstimatedWaitMinutes int        `json:"estimatedWaitMinutes"`
	NextAvailableSlot    *time.Time `json:"nextAvailableSlot,omitempty"`
	LastUpdatedAt        time.Time  `json:"lastUpdatedAt"`
}
