package models

import "time"

// SundaySlot is one weekly practice slot restricted to an age-category
// band. Occupancy is only mutated together with the matching booking row
// inside a single transaction.
type SundaySlot struct {
	ID           int64     `json:"id"`
	SlotDate     time.Time `json:"slot_date"`
	TimeSlot     string    `json:"time_slot"`
	CategoryBand string    `json:"category_band"`
	Capacity     int       `json:"capacity"`
	Occupancy    int       `json:"occupancy"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
