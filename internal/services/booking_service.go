package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avargas-dev/AcademyBack/internal/catalog"
	"github.com/avargas-dev/AcademyBack/internal/models"
	"github.com/avargas-dev/AcademyBack/internal/notify"
	"github.com/avargas-dev/AcademyBack/internal/repository"
)

// cancellationRefundWindow is how far before session start a cancellation
// still refunds the credits it consumed.
const cancellationRefundWindow = 24 * time.Hour

type registrationReader interface {
	GetByID(ctx context.Context, registrationID int64) (*models.Registration, error)
}

type BookingService struct {
	db            *pgxpool.Pool
	bookings      *repository.BookingRepository
	registrations registrationReader
	ledger        *LedgerService
	notifier      notify.Publisher
}

func NewBookingService(
	db *pgxpool.Pool,
	bookings *repository.BookingRepository,
	registrations registrationReader,
	ledger *LedgerService,
	notifier notify.Publisher,
) *BookingService {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &BookingService{
		db:            db,
		bookings:      bookings,
		registrations: registrations,
		ledger:        ledger,
		notifier:      notifier,
	}
}

type BookSessionInput struct {
	RegistrationID int64
	SessionType    string
	SessionDate    time.Time
	TimeSlot       string
}

type BookingResult struct {
	Booking          *models.SessionBooking
	CreditsRemaining int
}

// Book reserves capacity, debits the ledger for credit-funded session
// types, and persists the booking in one transaction. Capacity goes
// first so a full slot never costs credits.
func (s *BookingService) Book(ctx context.Context, parentID int64, input BookSessionInput) (*BookingResult, error) {
	if !catalog.ValidSessionType(input.SessionType) || input.SessionType == catalog.SessionSunday {
		// Sunday practice goes through the allocator, not this path.
		return nil, ErrValidation
	}
	if input.RegistrationID <= 0 || strings.TrimSpace(input.TimeSlot) == "" {
		return nil, ErrValidation
	}
	if input.SessionDate.Before(startOfDay(time.Now().UTC())) {
		return nil, ErrValidation
	}

	registration, err := s.registrations.GetByID(ctx, input.RegistrationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if registration.ParentID != parentID {
		return nil, ErrForbidden
	}
	if registration.Status != "active" {
		return nil, ErrValidation
	}
	// Private and semi-private sessions are paid per session, not with
	// credits; the registration must have a verified payment before the
	// parent can hold a place.
	if !catalog.UsesCredits(input.SessionType) && registration.PaymentStatus != "verified" {
		return nil, ErrPaymentRequired
	}

	if input.SessionType == catalog.SessionGroup {
		assigned, ok := catalog.AssignedSlot(registration.Category)
		if !ok {
			return nil, ErrIneligibleCategory
		}
		if assigned != input.TimeSlot {
			return nil, ErrValidation
		}
	}

	limit := catalog.MaxCapacity(input.SessionType, input.TimeSlot, registration.Category)
	if limit == 0 {
		return nil, ErrValidation
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txCapacity := repository.NewCapacityRepository(tx)
	txBookings := repository.NewBookingRepository(tx)

	reserved, err := txCapacity.Reserve(ctx, input.SessionType, input.SessionDate, input.TimeSlot, limit)
	if err != nil {
		return nil, err
	}
	if !reserved {
		return nil, ErrSlotFull
	}

	creditsUsed := 0
	var purchaseID *int64
	creditsRemaining := 0
	lowCredits := false
	if catalog.UsesCredits(input.SessionType) {
		debit, err := s.ledger.DebitInTx(ctx, tx, parentID, 1)
		if err != nil {
			// Rollback releases the capacity reservation with it.
			return nil, err
		}
		creditsUsed = 1
		purchaseID = debit.PurchaseID
		creditsRemaining = debit.TotalCredits
		lowCredits = debit.LowCredits
	} else {
		creditsRemaining, err = s.ledger.BalanceInTx(ctx, tx, parentID)
		if err != nil {
			return nil, err
		}
	}

	booking, err := txBookings.Create(ctx, repository.CreateBookingInput{
		ParentID:         parentID,
		RegistrationID:   input.RegistrationID,
		SessionType:      input.SessionType,
		SessionDate:      input.SessionDate,
		TimeSlot:         input.TimeSlot,
		CreditsUsed:      creditsUsed,
		CreditPurchaseID: purchaseID,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateBooking
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifier.Publish(notify.NewEvent(notify.EventBookingConfirmed, notify.ForParent(parentID), map[string]any{
		"booking_id":   booking.ID,
		"session_type": booking.SessionType,
		"session_date": booking.SessionDate.Format("2006-01-02"),
		"time_slot":    booking.TimeSlot,
	}))
	if lowCredits {
		s.ledger.PublishLowCredits(parentID, creditsRemaining)
	}

	return &BookingResult{Booking: booking, CreditsRemaining: creditsRemaining}, nil
}

type CancelResult struct {
	Booking          *models.SessionBooking
	CreditsRefunded  int
	CreditsRemaining int
}

// Cancel releases capacity and, inside the 24-hour window before session
// start, refunds the credits the booking consumed. Outside the window
// capacity is still freed but no credits come back.
func (s *BookingService) Cancel(ctx context.Context, parentID, bookingID int64, reason *string) (*CancelResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookings := repository.NewBookingRepository(tx)
	txCapacity := repository.NewCapacityRepository(tx)

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
	if booking.SundaySlotID != nil {
		// Sunday bookings release their slot through the allocator.
		return nil, ErrValidation
	}
	switch booking.Status {
	case "cancelled":
		return nil, ErrAlreadyCancelled
	case "attended", "no_show":
		return nil, ErrSessionOccurred
	}

	cancelled, err := txBookings.Cancel(ctx, bookingID, reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyCancelled
		}
		return nil, err
	}

	if err := txCapacity.Release(ctx, booking.SessionType, booking.SessionDate, booking.TimeSlot); err != nil {
		return nil, err
	}

	refunded := 0
	remaining := 0
	if booking.CreditsUsed > 0 && withinRefundWindow(booking, time.Now().UTC()) {
		remaining, err = s.ledger.RefundInTx(ctx, tx, parentID, booking.CreditsUsed, booking.CreditPurchaseID)
		if err != nil {
			return nil, err
		}
		refunded = booking.CreditsUsed
	} else {
		remaining, err = s.ledger.BalanceInTx(ctx, tx, parentID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifier.Publish(notify.NewEvent(notify.EventBookingCancelled, notify.ForParent(parentID), map[string]any{
		"booking_id":       cancelled.ID,
		"credits_refunded": refunded,
	}))

	return &CancelResult{Booking: cancelled, CreditsRefunded: refunded, CreditsRemaining: remaining}, nil
}

// MarkAttended is an administrative terminal transition with no capacity
// or credit side effects.
func (s *BookingService) MarkAttended(ctx context.Context, bookingID int64) (*models.SessionBooking, error) {
	return s.markTerminal(ctx, bookingID, "attended")
}

// MarkNoShow is an administrative terminal transition with no capacity or
// credit side effects.
func (s *BookingService) MarkNoShow(ctx context.Context, bookingID int64) (*models.SessionBooking, error) {
	return s.markTerminal(ctx, bookingID, "no_show")
}

func (s *BookingService) markTerminal(ctx context.Context, bookingID int64, status string) (*models.SessionBooking, error) {
	booking, err := s.bookings.UpdateStatusIfCurrent(ctx, bookingID, "booked", status)
	if err == nil {
		return booking, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if current.Status == "cancelled" {
		return nil, ErrAlreadyCancelled
	}
	return nil, ErrSessionOccurred
}

// ListBookings returns the parent's bookings, optionally filtered by
// status and upcoming/past.
func (s *BookingService) ListBookings(ctx context.Context, parentID int64, filter repository.BookingListFilter) ([]models.SessionBooking, error) {
	filter.ParentID = parentID
	return s.bookings.List(ctx, filter)
}

func (s *BookingService) GetBooking(ctx context.Context, parentID, bookingID int64) (*models.SessionBooking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if booking.ParentID != parentID {
		return nil, ErrForbidden
	}
	return booking, nil
}

func withinRefundWindow(booking *models.SessionBooking, now time.Time) bool {
	return sessionStart(booking.SessionDate, booking.TimeSlot).Sub(now) >= cancellationRefundWindow
}

// sessionStart resolves the concrete start instant from the session date
// and a "HH:MM-HH:MM" slot label.
func sessionStart(sessionDate time.Time, timeSlot string) time.Time {
	day := startOfDay(sessionDate)
	start, _, ok := strings.Cut(timeSlot, "-")
	if !ok {
		return day
	}
	parsed, err := time.Parse("15:04", strings.TrimSpace(start))
	if err != nil {
		return day
	}
	return day.Add(time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
