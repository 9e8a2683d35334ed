package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avargas-dev/AcademyBack/internal/catalog"
	"github.com/avargas-dev/AcademyBack/internal/models"
	"github.com/avargas-dev/AcademyBack/internal/notify"
	"github.com/avargas-dev/AcademyBack/internal/repository"
)

// SundayService allocates the weekly practice slots. Every validation
// plus the occupancy increment runs inside one transaction serialized by
// an advisory lock on the slot, so concurrent requests for the last place
// can never both pass the capacity check.
type SundayService struct {
	db       *pgxpool.Pool
	slots    *repository.SundaySlotRepository
	notifier notify.Publisher
}

func NewSundayService(db *pgxpool.Pool, slots *repository.SundaySlotRepository, notifier notify.Publisher) *SundayService {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &SundayService{db: db, slots: slots, notifier: notifier}
}

type SundayBookingResult struct {
	Booking *models.SessionBooking
	Slot    *models.SundaySlot
}

// BookSundaySlot books one place on a practice slot for an eligible
// registration. Sunday practice is included in the program fee, so no
// credits move.
func (s *SundayService) BookSundaySlot(ctx context.Context, parentID, slotID, registrationID int64) (*SundayBookingResult, error) {
	if slotID <= 0 || registrationID <= 0 {
		return nil, ErrValidation
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", slotID); err != nil {
		return nil, err
	}

	txSlots := repository.NewSundaySlotRepository(tx)
	txRegistrations := repository.NewRegistrationRepository(tx)
	txBookings := repository.NewBookingRepository(tx)

	slot, err := txSlots.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if slot.SlotDate.Before(startOfDay(time.Now().UTC())) {
		return nil, ErrSlotPast
	}

	registration, err := txRegistrations.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if registration.ParentID != parentID {
		return nil, ErrForbidden
	}
	if registration.ProgramType != catalog.ProgramGroup {
		return nil, ErrInvalidProgramType
	}
	band, ok := catalog.BandForCategory(registration.Category)
	if !ok || band.Label != slot.CategoryBand {
		return nil, ErrIneligibleCategory
	}
	if registration.PaymentStatus != "verified" {
		return nil, ErrPaymentRequired
	}

	exists, err := txBookings.HasActiveForSlot(ctx, registrationID, slotID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateBooking
	}

	updatedSlot, err := txSlots.ReserveOccupancy(ctx, slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotFull
		}
		return nil, err
	}

	booking, err := txBookings.Create(ctx, repository.CreateBookingInput{
		ParentID:       parentID,
		RegistrationID: registrationID,
		SessionType:    catalog.SessionSunday,
		SessionDate:    slot.SlotDate,
		TimeSlot:       slot.TimeSlot,
		SundaySlotID:   &slot.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifier.Publish(notify.NewEvent(notify.EventBookingConfirmed, notify.ForParent(parentID), map[string]any{
		"booking_id":   booking.ID,
		"session_type": catalog.SessionSunday,
		"session_date": slot.SlotDate.Format("2006-01-02"),
		"time_slot":    slot.TimeSlot,
	}))

	return &SundayBookingResult{Booking: booking, Slot: updatedSlot}, nil
}

// CancelSundayBooking releases the player's place on the slot. Ownership,
// already-cancelled, and past-session guards mirror booking cancellation;
// no credits are involved.
func (s *SundayService) CancelSundayBooking(ctx context.Context, parentID, bookingID int64, reason *string) (*SundayBookingResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookings := repository.NewBookingRepository(tx)
	txSlots := repository.NewSundaySlotRepository(tx)

	booking, err := txBookings.GetByIDForUpdate(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if booking.ParentID != parentID {
		return nil, ErrForbidden
	}
	if booking.SundaySlotID == nil {
		return nil, ErrValidation
	}
	switch booking.Status {
	case "cancelled":
		return nil, ErrAlreadyCancelled
	case "attended", "no_show":
		return nil, ErrSessionOccurred
	}
	if booking.SessionDate.Before(startOfDay(time.Now().UTC())) {
		return nil, ErrSessionOccurred
	}

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", *booking.SundaySlotID); err != nil {
		return nil, err
	}

	cancelled, err := txBookings.Cancel(ctx, bookingID, reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyCancelled
		}
		return nil, err
	}

	slot, err := txSlots.ReleaseOccupancy(ctx, *booking.SundaySlotID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifier.Publish(notify.NewEvent(notify.EventBookingCancelled, notify.ForParent(parentID), map[string]any{
		"booking_id": cancelled.ID,
	}))

	return &SundayBookingResult{Booking: cancelled, Slot: slot}, nil
}

// ListUpcomingSlots shows the bookable practice slots from today on.
func (s *SundayService) ListUpcomingSlots(ctx context.Context) ([]models.SundaySlot, error) {
	return s.slots.ListUpcoming(ctx, startOfDay(time.Now().UTC()))
}

// GenerateSlots pre-creates practice slots for the next n Sundays, one
// per configured band. Safe to run repeatedly.
func (s *SundayService) GenerateSlots(ctx context.Context, weeks int) ([]models.SundaySlot, error) {
	if weeks <= 0 || weeks > 52 {
		return nil, ErrValidation
	}

	next := nextSunday(time.Now().UTC())
	created := make([]models.SundaySlot, 0, weeks*2)
	for i := 0; i < weeks; i++ {
		date := next.AddDate(0, 0, 7*i)
		for _, band := range catalog.SundayBands() {
			slot, err := s.slots.Create(ctx, repository.CreateSundaySlotInput{
				SlotDate:     date,
				TimeSlot:     band.TimeSlot,
				CategoryBand: band.Label,
				Capacity:     band.Capacity,
			})
			if err != nil {
				return nil, err
			}
			created = append(created, *slot)
		}
	}
	return created, nil
}

func nextSunday(now time.Time) time.Time {
	day := startOfDay(now)
	offset := (7 - int(day.Weekday())) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}
