package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avargas-dev/AcademyBack/internal/models"
)

const bookingColumns = `id, parent_id, registration_id, session_type, session_date, time_slot,
	credits_used, credit_purchase_id, sunday_slot_id, status, cancelled_at, cancellation_reason,
	created_at, updated_at`

type CreateBookingInput struct {
	ParentID         int64
	RegistrationID   int64
	SessionType      string
	SessionDate      time.Time
	TimeSlot         string
	CreditsUsed      int
	CreditPurchaseID *int64
	SundaySlotID     *int64
}

type BookingListFilter struct {
	ParentID  int64
	Status    string
	Timeframe string
}

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

func scanBooking(row interface{ Scan(dest ...any) error }, booking *models.SessionBooking) error {
	return row.Scan(
		&booking.ID,
		&booking.ParentID,
		&booking.RegistrationID,
		&booking.SessionType,
		&booking.SessionDate,
		&booking.TimeSlot,
		&booking.CreditsUsed,
		&booking.CreditPurchaseID,
		&booking.SundaySlotID,
		&booking.Status,
		&booking.CancelledAt,
		&booking.CancellationReason,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
}

// Create inserts a booking with status 'booked'. A partial unique index on
// (registration_id, session_date, time_slot, session_type) over
// non-cancelled rows turns a double-booking into a 23505 for the service
// layer to translate.
func (r *BookingRepository) Create(ctx context.Context, input CreateBookingInput) (*models.SessionBooking, error) {
	query := fmt.Sprintf(`
		INSERT INTO session_bookings
			(parent_id, registration_id, session_type, session_date, time_slot,
			 credits_used, credit_purchase_id, sunday_slot_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'booked')
		RETURNING %s
	`, bookingColumns)

	var booking models.SessionBooking
	err := scanBooking(r.db.QueryRow(
		ctx,
		query,
		input.ParentID,
		input.RegistrationID,
		input.SessionType,
		input.SessionDate,
		input.TimeSlot,
		input.CreditsUsed,
		input.CreditPurchaseID,
		input.SundaySlotID,
	), &booking)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID int64) (*models.SessionBooking, error) {
	query := fmt.Sprintf(`SELECT %s FROM session_bookings WHERE id = $1`, bookingColumns)
	var booking models.SessionBooking
	if err := scanBooking(r.db.QueryRow(ctx, query, bookingID), &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, bookingID int64) (*models.SessionBooking, error) {
	query := fmt.Sprintf(`SELECT %s FROM session_bookings WHERE id = $1 FOR UPDATE`, bookingColumns)
	var booking models.SessionBooking
	if err := scanBooking(r.db.QueryRow(ctx, query, bookingID), &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// UpdateStatusIfCurrent transitions status only from the expected current
// value. pgx.ErrNoRows signals the booking moved on under a concurrent
// request.
func (r *BookingRepository) UpdateStatusIfCurrent(ctx context.Context, bookingID int64, currentStatus, nextStatus string) (*models.SessionBooking, error) {
	query := fmt.Sprintf(`
		UPDATE session_bookings
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, bookingColumns)
	var booking models.SessionBooking
	if err := scanBooking(r.db.QueryRow(ctx, query, bookingID, currentStatus, nextStatus), &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// Cancel marks a booked session cancelled, recording when and why.
func (r *BookingRepository) Cancel(ctx context.Context, bookingID int64, reason *string) (*models.SessionBooking, error) {
	query := fmt.Sprintf(`
		UPDATE session_bookings
		SET status = 'cancelled', cancelled_at = NOW(), cancellation_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'booked'
		RETURNING %s
	`, bookingColumns)
	var booking models.SessionBooking
	if err := scanBooking(r.db.QueryRow(ctx, query, bookingID, reason), &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) List(ctx context.Context, filter BookingListFilter) ([]models.SessionBooking, error) {
	args := []any{filter.ParentID}
	whereParts := []string{"parent_id = $1"}

	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		whereParts = append(whereParts, "session_date >= CURRENT_DATE")
	case "past":
		whereParts = append(whereParts, "session_date < CURRENT_DATE")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM session_bookings
		WHERE %s
		ORDER BY session_date ASC, id ASC
	`, bookingColumns, strings.Join(whereParts, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]models.SessionBooking, 0)
	for rows.Next() {
		var booking models.SessionBooking
		if err := scanBooking(rows, &booking); err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}

// HasActiveForSlot reports whether the registration already holds a
// non-cancelled booking on the given Sunday slot.
func (r *BookingRepository) HasActiveForSlot(ctx context.Context, registrationID, sundaySlotID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM session_bookings
			WHERE registration_id = $1
			  AND sunday_slot_id = $2
			  AND status <> 'cancelled'
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, registrationID, sundaySlotID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
