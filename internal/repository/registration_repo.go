package repository

import (
	"context"

	"github.com/avargas-dev/AcademyBack/internal/models"
)

const registrationColumns = `id, parent_id, player_name, category, program_type,
	training_days, time_slot, payment_status, status, created_at, updated_at`

type CreateRegistrationInput struct {
	ParentID     int64
	PlayerName   string
	Category     string
	ProgramType  string
	TrainingDays []string
	TimeSlot     string
}

type RegistrationRepository struct {
	db DBTX
}

func NewRegistrationRepository(db DBTX) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

func scanRegistration(row interface{ Scan(dest ...any) error }, reg *models.Registration) error {
	return row.Scan(
		&reg.ID,
		&reg.ParentID,
		&reg.PlayerName,
		&reg.Category,
		&reg.ProgramType,
		&reg.TrainingDays,
		&reg.TimeSlot,
		&reg.PaymentStatus,
		&reg.Status,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)
}

func (r *RegistrationRepository) Create(ctx context.Context, input CreateRegistrationInput) (*models.Registration, error) {
	query := `
		INSERT INTO registrations
			(parent_id, player_name, category, program_type, training_days, time_slot, payment_status, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', 'active')
		RETURNING ` + registrationColumns
	var reg models.Registration
	err := scanRegistration(r.db.QueryRow(
		ctx,
		query,
		input.ParentID,
		input.PlayerName,
		input.Category,
		input.ProgramType,
		input.TrainingDays,
		input.TimeSlot,
	), &reg)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *RegistrationRepository) GetByID(ctx context.Context, registrationID int64) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	var reg models.Registration
	if err := scanRegistration(r.db.QueryRow(ctx, query, registrationID), &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *RegistrationRepository) GetByIDForUpdate(ctx context.Context, registrationID int64) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1 FOR UPDATE`
	var reg models.Registration
	if err := scanRegistration(r.db.QueryRow(ctx, query, registrationID), &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *RegistrationRepository) ListByParent(ctx context.Context, parentID int64) ([]models.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE parent_id = $1
		ORDER BY id ASC
	`
	return r.list(ctx, query, parentID)
}

// ListActiveByProgram returns every active registration for a program
// type, patterns included. The schedule change conflict scan walks this
// set.
func (r *RegistrationRepository) ListActiveByProgram(ctx context.Context, programType string) ([]models.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE program_type = $1 AND status = 'active'
		ORDER BY id ASC
	`
	return r.list(ctx, query, programType)
}

func (r *RegistrationRepository) list(ctx context.Context, query string, args ...any) ([]models.Registration, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := make([]models.Registration, 0)
	for rows.Next() {
		var reg models.Registration
		if err := scanRegistration(rows, &reg); err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return regs, nil
}

// UpdatePattern rewrites the stored recurring pattern. Only permanent
// schedule changes call this.
func (r *RegistrationRepository) UpdatePattern(ctx context.Context, registrationID int64, days []string, timeSlot string) (*models.Registration, error) {
	query := `
		UPDATE registrations
		SET training_days = $2, time_slot = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + registrationColumns
	var reg models.Registration
	if err := scanRegistration(r.db.QueryRow(ctx, query, registrationID, days, timeSlot), &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// UpdatePaymentStatus is driven by payment-processor invoice events.
func (r *RegistrationRepository) UpdatePaymentStatus(ctx context.Context, registrationID int64, paymentStatus string) (*models.Registration, error) {
	query := `
		UPDATE registrations
		SET payment_status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + registrationColumns
	var reg models.Registration
	if err := scanRegistration(r.db.QueryRow(ctx, query, registrationID, paymentStatus), &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}
