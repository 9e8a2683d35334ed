package repository

import (
	"context"
	"time"

	"github.com/avargas-dev/AcademyBack/internal/models"
)

const sundaySlotColumns = `id, slot_date, time_slot, category_band, capacity, occupancy,
	created_at, updated_at`

type CreateSundaySlotInput struct {
	SlotDate     time.Time
	TimeSlot     string
	CategoryBand string
	Capacity     int
}

type SundaySlotRepository struct {
	db DBTX
}

func NewSundaySlotRepository(db DBTX) *SundaySlotRepository {
	return &SundaySlotRepository{db: db}
}

func scanSundaySlot(row interface{ Scan(dest ...any) error }, slot *models.SundaySlot) error {
	return row.Scan(
		&slot.ID,
		&slot.SlotDate,
		&slot.TimeSlot,
		&slot.CategoryBand,
		&slot.Capacity,
		&slot.Occupancy,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
}

// Create inserts a future practice slot; duplicate (date, band) pairs are
// absorbed so the admin generator can run repeatedly.
func (r *SundaySlotRepository) Create(ctx context.Context, input CreateSundaySlotInput) (*models.SundaySlot, error) {
	query := `
		INSERT INTO sunday_slots (slot_date, time_slot, category_band, capacity, occupancy)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT (slot_date, category_band)
		DO UPDATE SET time_slot = $2, capacity = $4, updated_at = NOW()
		RETURNING ` + sundaySlotColumns
	var slot models.SundaySlot
	err := scanSundaySlot(r.db.QueryRow(
		ctx,
		query,
		input.SlotDate,
		input.TimeSlot,
		input.CategoryBand,
		input.Capacity,
	), &slot)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *SundaySlotRepository) GetByID(ctx context.Context, slotID int64) (*models.SundaySlot, error) {
	query := `SELECT ` + sundaySlotColumns + ` FROM sunday_slots WHERE id = $1`
	var slot models.SundaySlot
	if err := scanSundaySlot(r.db.QueryRow(ctx, query, slotID), &slot); err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *SundaySlotRepository) ListUpcoming(ctx context.Context, from time.Time) ([]models.SundaySlot, error) {
	query := `
		SELECT ` + sundaySlotColumns + `
		FROM sunday_slots
		WHERE slot_date >= $1
		ORDER BY slot_date ASC, time_slot ASC
	`
	rows, err := r.db.Query(ctx, query, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]models.SundaySlot, 0)
	for rows.Next() {
		var slot models.SundaySlot
		if err := scanSundaySlot(rows, &slot); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return slots, nil
}

// ReserveOccupancy takes one place on the slot only while occupancy is
// under capacity. pgx.ErrNoRows from the caller's Scan means the slot
// filled up.
func (r *SundaySlotRepository) ReserveOccupancy(ctx context.Context, slotID int64) (*models.SundaySlot, error) {
	query := `
		UPDATE sunday_slots
		SET occupancy = occupancy + 1, updated_at = NOW()
		WHERE id = $1 AND occupancy < capacity
		RETURNING ` + sundaySlotColumns
	var slot models.SundaySlot
	if err := scanSundaySlot(r.db.QueryRow(ctx, query, slotID), &slot); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ReleaseOccupancy frees one place, floored at zero.
func (r *SundaySlotRepository) ReleaseOccupancy(ctx context.Context, slotID int64) (*models.SundaySlot, error) {
	query := `
		UPDATE sunday_slots
		SET occupancy = GREATEST(occupancy - 1, 0), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + sundaySlotColumns
	var slot models.SundaySlot
	if err := scanSundaySlot(r.db.QueryRow(ctx, query, slotID), &slot); err != nil {
		return nil, err
	}
	return &slot, nil
}
