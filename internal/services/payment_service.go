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
	"github.com/avargas-dev/AcademyBack/internal/notify"
	"github.com/avargas-dev/AcademyBack/internal/repository"
)

// Payment-processor event types the core consumes. Signature verification
// happens upstream; only verified payloads reach this service.
const (
	EventCheckoutCompleted = "checkout.completed"
	EventInvoicePaid       = "invoice.paid"
	EventInvoiceFailed     = "invoice.payment_failed"
)

// PaymentEvent is the verified payload from the payment processor.
type PaymentEvent struct {
	EventType      string
	EventID        string
	ParentID       int64
	RegistrationID int64
	SessionType    string
	PackageType    string
	SessionDate    *time.Time
	TimeSlot       string
	AmountPaid     float64
}

// PaymentService maps processor events onto ledger top-ups, paid-session
// bookings, and registration payment-status updates. Delivery is
// at-least-once, so every handler claims the event id first and runs the
// side effects in the same transaction. Balance mutations go through the
// ledger so it stays the only writer of credit accounts.
type PaymentService struct {
	db       *pgxpool.Pool
	ledger   *LedgerService
	notifier notify.Publisher
}

func NewPaymentService(db *pgxpool.Pool, ledger *LedgerService, notifier notify.Publisher) *PaymentService {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &PaymentService{db: db, ledger: ledger, notifier: notifier}
}

// HandleEvent applies one processor event exactly once. A replayed event
// id returns ErrAlreadyProcessed, which the webhook handler reports as
// success so the processor stops retrying.
func (s *PaymentService) HandleEvent(ctx context.Context, event PaymentEvent) error {
	if strings.TrimSpace(event.EventID) == "" || event.ParentID <= 0 {
		return ErrValidation
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txEvents := repository.NewPaymentEventRepository(tx)
	claimed, err := txEvents.MarkProcessed(ctx, event.EventID, event.EventType)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrAlreadyProcessed
	}

	// Notifications wait until the transaction commits; a failed commit
	// must not have told anyone anything.
	var pending notify.Event
	switch event.EventType {
	case EventCheckoutCompleted:
		if event.PackageType != "" {
			pending, err = s.applyCreditPurchase(ctx, tx, event)
		} else {
			pending, err = s.applyPaidSession(ctx, tx, event)
		}
	case EventInvoicePaid:
		err = s.applyPaymentStatus(ctx, tx, event.RegistrationID, "verified")
	case EventInvoiceFailed:
		err = s.applyPaymentStatus(ctx, tx, event.RegistrationID, "overdue")
	default:
		err = ErrValidation
	}
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if pending.Type != "" {
		s.notifier.Publish(pending)
	}
	return nil
}

func (s *PaymentService) applyCreditPurchase(ctx context.Context, tx pgx.Tx, event PaymentEvent) (notify.Event, error) {
	result, err := s.ledger.CreditInTx(ctx, tx, CreditInput{
		ParentID:       event.ParentID,
		PackageType:    event.PackageType,
		PaymentEventID: event.EventID,
	})
	if err != nil {
		return notify.Event{}, err
	}

	return notify.NewEvent(notify.EventCreditsPurchased, notify.ForParent(event.ParentID), map[string]any{
		"package_type":  result.Purchase.PackageType,
		"credits":       result.Purchase.CreditsPurchased,
		"total_credits": result.TotalCredits,
	}), nil
}

// applyPaidSession confirms a directly-paid private or semi-private
// session: capacity is reserved and the booking row written with zero
// credits used.
func (s *PaymentService) applyPaidSession(ctx context.Context, tx pgx.Tx, event PaymentEvent) (notify.Event, error) {
	if event.SessionDate == nil || strings.TrimSpace(event.TimeSlot) == "" {
		return notify.Event{}, ErrValidation
	}
	if event.SessionType != catalog.SessionPrivate && event.SessionType != catalog.SessionSemiPrivate {
		return notify.Event{}, ErrValidation
	}

	txRegistrations := repository.NewRegistrationRepository(tx)
	txCapacity := repository.NewCapacityRepository(tx)
	txBookings := repository.NewBookingRepository(tx)

	registration, err := txRegistrations.GetByID(ctx, event.RegistrationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notify.Event{}, ErrNotFound
		}
		return notify.Event{}, err
	}
	if registration.ParentID != event.ParentID {
		return notify.Event{}, ErrForbidden
	}

	limit := catalog.MaxCapacity(event.SessionType, event.TimeSlot, registration.Category)
	if limit == 0 {
		return notify.Event{}, ErrValidation
	}

	reserved, err := txCapacity.Reserve(ctx, event.SessionType, *event.SessionDate, event.TimeSlot, limit)
	if err != nil {
		return notify.Event{}, err
	}
	if !reserved {
		return notify.Event{}, ErrSlotFull
	}

	booking, err := txBookings.Create(ctx, repository.CreateBookingInput{
		ParentID:       event.ParentID,
		RegistrationID: event.RegistrationID,
		SessionType:    event.SessionType,
		SessionDate:    *event.SessionDate,
		TimeSlot:       event.TimeSlot,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return notify.Event{}, ErrDuplicateBooking
		}
		return notify.Event{}, err
	}

	return notify.NewEvent(notify.EventBookingConfirmed, notify.ForParent(event.ParentID), map[string]any{
		"booking_id":   booking.ID,
		"session_type": booking.SessionType,
		"session_date": booking.SessionDate.Format("2006-01-02"),
		"time_slot":    booking.TimeSlot,
	}), nil
}

func (s *PaymentService) applyPaymentStatus(ctx context.Context, tx pgx.Tx, registrationID int64, status string) error {
	if registrationID <= 0 {
		return ErrValidation
	}
	txRegistrations := repository.NewRegistrationRepository(tx)
	if _, err := txRegistrations.UpdatePaymentStatus(ctx, registrationID, status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
