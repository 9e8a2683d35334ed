package repository

import (
	"context"
	"time"

	"github.com/avargas-dev/AcademyBack/internal/models"
)

const scheduleChangeColumns = `id, registration_id, parent_id, change_type,
	old_days, old_time_slot, new_days, new_time_slot, status, created_at`

type CreateScheduleChangeInput struct {
	RegistrationID int64
	ParentID       int64
	ChangeType     string
	OldDays        []string
	OldTimeSlot    string
	NewDays        []string
	NewTimeSlot    string
}

// ExceptionMapping is one original-day -> replacement-day override for a
// specific occurrence date.
type ExceptionMapping struct {
	OriginalDay    string
	ReplacementDay string
	ExceptionDate  time.Time
}

type ScheduleRepository struct {
	db DBTX
}

func NewScheduleRepository(db DBTX) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func scanScheduleChange(row interface{ Scan(dest ...any) error }, change *models.ScheduleChange) error {
	return row.Scan(
		&change.ID,
		&change.RegistrationID,
		&change.ParentID,
		&change.ChangeType,
		&change.OldDays,
		&change.OldTimeSlot,
		&change.NewDays,
		&change.NewTimeSlot,
		&change.Status,
		&change.CreatedAt,
	)
}

func (r *ScheduleRepository) CreateChange(ctx context.Context, input CreateScheduleChangeInput) (*models.ScheduleChange, error) {
	query := `
		INSERT INTO schedule_changes
			(registration_id, parent_id, change_type, old_days, old_time_slot,
			 new_days, new_time_slot, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'applied')
		RETURNING ` + scheduleChangeColumns
	var change models.ScheduleChange
	err := scanScheduleChange(r.db.QueryRow(
		ctx,
		query,
		input.RegistrationID,
		input.ParentID,
		input.ChangeType,
		input.OldDays,
		input.OldTimeSlot,
		input.NewDays,
		input.NewTimeSlot,
	), &change)
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// CreateExceptions writes one row per original-day mapping for a one-time
// change. Exceptions are immutable once written.
func (r *ScheduleRepository) CreateExceptions(ctx context.Context, changeID, registrationID int64, timeSlot string, mappings []ExceptionMapping) ([]models.ScheduleException, error) {
	query := `
		INSERT INTO schedule_exceptions
			(schedule_change_id, registration_id, original_day, replacement_day, exception_date, time_slot)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, schedule_change_id, registration_id, original_day, replacement_day,
			exception_date, time_slot, created_at
	`
	exceptions := make([]models.ScheduleException, 0, len(mappings))
	for _, mapping := range mappings {
		var exc models.ScheduleException
		err := r.db.QueryRow(
			ctx,
			query,
			changeID,
			registrationID,
			mapping.OriginalDay,
			mapping.ReplacementDay,
			mapping.ExceptionDate,
			timeSlot,
		).Scan(
			&exc.ID,
			&exc.ScheduleChangeID,
			&exc.RegistrationID,
			&exc.OriginalDay,
			&exc.ReplacementDay,
			&exc.ExceptionDate,
			&exc.TimeSlot,
			&exc.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		exceptions = append(exceptions, exc)
	}
	return exceptions, nil
}

func (r *ScheduleRepository) ListChangesByRegistration(ctx context.Context, registrationID int64) ([]models.ScheduleChange, error) {
	query := `
		SELECT ` + scheduleChangeColumns + `
		FROM schedule_changes
		WHERE registration_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, registrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := make([]models.ScheduleChange, 0)
	for rows.Next() {
		var change models.ScheduleChange
		if err := scanScheduleChange(rows, &change); err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return changes, nil
}
