package services

import "errors"

// Business-rule failures surfaced to handlers. Everything else that
// escapes a service is a data-store error and maps to a 500.
var (
	ErrValidation          = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrSlotFull            = errors.New("slot is full")
	ErrConflict            = errors.New("schedule conflict")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrAlreadyCancelled    = errors.New("booking already cancelled")
	ErrSessionOccurred     = errors.New("session already occurred")
	ErrDuplicateBooking    = errors.New("duplicate booking")
	ErrAlreadyProcessed    = errors.New("payment event already processed")
	ErrPaymentRequired     = errors.New("payment not verified")
	ErrIneligibleCategory  = errors.New("category not eligible")
	ErrInvalidProgramType  = errors.New("invalid program type")
	ErrSlotPast            = errors.New("slot date has passed")
)
