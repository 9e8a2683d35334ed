package models

import "time"

// SessionBooking is one reserved occurrence of a training session.
// Status moves booked -> attended | no_show | cancelled; the terminal
// states never transition further. Rows are never deleted.
type SessionBooking struct {
	ID                 int64      `json:"id"`
	ParentID           int64      `json:"parent_id"`
	RegistrationID     int64      `json:"registration_id"`
	SessionType        string     `json:"session_type"`
	SessionDate        time.Time  `json:"session_date"`
	TimeSlot           string     `json:"time_slot"`
	CreditsUsed        int        `json:"credits_used"`
	CreditPurchaseID   *int64     `json:"credit_purchase_id,omitempty"`
	SundaySlotID       *int64     `json:"sunday_slot_id,omitempty"`
	Status             string     `json:"status"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// CapacitySlot mirrors the occupancy counter for one
// (session type, date, time slot) bucket. Occupancy must stay
// reconcilable with the count of non-cancelled bookings for the key.
type CapacitySlot struct {
	ID          int64     `json:"id"`
	SessionType string    `json:"session_type"`
	SessionDate time.Time `json:"session_date"`
	TimeSlot    string    `json:"time_slot"`
	Occupancy   int       `json:"occupancy"`
	Capacity    int       `json:"capacity"`
	UpdatedAt   time.Time `json:"updated_at"`
}
