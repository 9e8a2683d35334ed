package models

import "time"

// Registration is a player enrolled in a training program by a parent.
// TrainingDays and TimeSlot hold the recurring weekly pattern for private
// and semi-private programs; group players train on the slot assigned to
// their age category.
type Registration struct {
	ID            int64     `json:"id"`
	ParentID      int64     `json:"parent_id"`
	PlayerName    string    `json:"player_name"`
	Category      string    `json:"category"`
	ProgramType   string    `json:"program_type"`
	TrainingDays  []string  `json:"training_days"`
	TimeSlot      string    `json:"time_slot"`
	PaymentStatus string    `json:"payment_status"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
