package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// CapacityRepository owns the occupancy counters. Reserve and Release are
// single statements, so concurrent requests on the same key serialize on
// the row without an application-level read-then-write window.
type CapacityRepository struct {
	db DBTX
}

func NewCapacityRepository(db DBTX) *CapacityRepository {
	return &CapacityRepository{db: db}
}

// Reserve increments occupancy for the key if it is still under the
// limit, creating the counter row on first use. Returns false when the
// slot is full. The guard runs inside the upsert, so two concurrent
// reservations for the last place can never both succeed.
func (r *CapacityRepository) Reserve(ctx context.Context, sessionType string, sessionDate time.Time, timeSlot string, limit int) (bool, error) {
	query := `
		INSERT INTO capacity_slots (session_type, session_date, time_slot, occupancy, capacity)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (session_type, session_date, time_slot)
		DO UPDATE SET occupancy = capacity_slots.occupancy + 1, capacity = $4, updated_at = NOW()
		WHERE capacity_slots.occupancy < $4
		RETURNING occupancy
	`
	var occupancy int
	err := r.db.QueryRow(ctx, query, sessionType, sessionDate, timeSlot, limit).Scan(&occupancy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Release decrements occupancy, floored at zero.
func (r *CapacityRepository) Release(ctx context.Context, sessionType string, sessionDate time.Time, timeSlot string) error {
	query := `
		UPDATE capacity_slots
		SET occupancy = GREATEST(occupancy - 1, 0), updated_at = NOW()
		WHERE session_type = $1 AND session_date = $2 AND time_slot = $3
	`
	_, err := r.db.Exec(ctx, query, sessionType, sessionDate, timeSlot)
	return err
}

// Occupancy reads the current counter value; a missing row counts as zero.
func (r *CapacityRepository) Occupancy(ctx context.Context, sessionType string, sessionDate time.Time, timeSlot string) (int, error) {
	query := `
		SELECT occupancy
		FROM capacity_slots
		WHERE session_type = $1 AND session_date = $2 AND time_slot = $3
	`
	var occupancy int
	err := r.db.QueryRow(ctx, query, sessionType, sessionDate, timeSlot).Scan(&occupancy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return occupancy, nil
}

// CountActiveBookings recomputes occupancy from the booking rows. The
// counter must always reconcile with this figure.
func (r *CapacityRepository) CountActiveBookings(ctx context.Context, sessionType string, sessionDate time.Time, timeSlot string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM session_bookings
		WHERE session_type = $1 AND session_date = $2 AND time_slot = $3
		  AND status <> 'cancelled'
	`
	var count int
	if err := r.db.QueryRow(ctx, query, sessionType, sessionDate, timeSlot).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
