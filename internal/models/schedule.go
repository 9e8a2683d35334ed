package models

import "time"

// ScheduleChange records a requested change to a registration's weekly
// pattern. Permanent changes rewrite the pattern once and keep this row
// as history; one-time changes leave the pattern untouched and fan out
// into ScheduleException rows.
type ScheduleChange struct {
	ID             int64     `json:"id"`
	RegistrationID int64     `json:"registration_id"`
	ParentID       int64     `json:"parent_id"`
	ChangeType     string    `json:"change_type"`
	OldDays        []string  `json:"old_days"`
	OldTimeSlot    string    `json:"old_time_slot"`
	NewDays        []string  `json:"new_days"`
	NewTimeSlot    string    `json:"new_time_slot"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// ScheduleException is a single-date override: on ExceptionDate the player
// trains on ReplacementDay/TimeSlot instead of OriginalDay.
type ScheduleException struct {
	ID               int64     `json:"id"`
	ScheduleChangeID int64     `json:"schedule_change_id"`
	RegistrationID   int64     `json:"registration_id"`
	OriginalDay      string    `json:"original_day"`
	ReplacementDay   string    `json:"replacement_day"`
	ExceptionDate    time.Time `json:"exception_date"`
	TimeSlot         string    `json:"time_slot"`
	CreatedAt        time.Time `json:"created_at"`
}
