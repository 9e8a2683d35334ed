package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avargas-dev/AcademyBack/internal/catalog"
	"github.com/avargas-dev/AcademyBack/internal/models"
	"github.com/avargas-dev/AcademyBack/internal/notify"
	"github.com/avargas-dev/AcademyBack/internal/repository"
)

type registrationLister interface {
	registrationReader
	ListActiveByProgram(ctx context.Context, programType string) ([]models.Registration, error)
}

type ScheduleService struct {
	db            *pgxpool.Pool
	registrations registrationLister
	schedules     *repository.ScheduleRepository
	notifier      notify.Publisher
}

func NewScheduleService(
	db *pgxpool.Pool,
	registrations registrationLister,
	schedules *repository.ScheduleRepository,
	notifier notify.Publisher,
) *ScheduleService {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &ScheduleService{
		db:            db,
		registrations: registrations,
		schedules:     schedules,
		notifier:      notifier,
	}
}

// DayMapping moves one occurrence: on ExceptionDate the player trains on
// ReplacementDay instead of OriginalDay.
type DayMapping struct {
	OriginalDay    string
	ReplacementDay string
	ExceptionDate  time.Time
}

type ChangeScheduleInput struct {
	RegistrationID int64
	ChangeType     string
	NewDays        []string
	NewTimeSlot    string
	Mappings       []DayMapping
	// SpecificDate is the legacy single-date form: the same date applied
	// to every day in NewDays. Kept for old callers; the explicit
	// Mappings list is authoritative.
	SpecificDate *time.Time
}

type ScheduleChangeResult struct {
	Change      *models.ScheduleChange
	Exceptions  []models.ScheduleException
	NewDays     []string
	NewTimeSlot string
}

// ChangeSchedule applies a permanent pattern rewrite or a one-time
// exception set after re-validating availability and conflicts. One-time
// changes never touch the stored pattern.
func (s *ScheduleService) ChangeSchedule(ctx context.Context, parentID int64, input ChangeScheduleInput) (*ScheduleChangeResult, error) {
	if input.ChangeType != "one_time" && input.ChangeType != "permanent" {
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
	if registration.ProgramType != catalog.ProgramPrivate &&
		registration.ProgramType != catalog.ProgramSemiPrivate {
		return nil, ErrInvalidProgramType
	}

	timeSlot := strings.TrimSpace(input.NewTimeSlot)
	if timeSlot == "" {
		timeSlot = registration.TimeSlot
	}
	if !validSlotLabel(timeSlot) {
		return nil, ErrValidation
	}

	switch input.ChangeType {
	case "permanent":
		return s.applyPermanent(ctx, registration, input.NewDays, timeSlot)
	default:
		return s.applyOneTime(ctx, registration, input, timeSlot)
	}
}

func (s *ScheduleService) applyPermanent(ctx context.Context, registration *models.Registration, newDays []string, timeSlot string) (*ScheduleChangeResult, error) {
	days, err := normalizeDays(newDays, registration.ProgramType)
	if err != nil {
		return nil, err
	}

	if err := s.checkConflicts(ctx, registration, days, timeSlot); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRegistrations := repository.NewRegistrationRepository(tx)
	txSchedules := repository.NewScheduleRepository(tx)

	updated, err := txRegistrations.UpdatePattern(ctx, registration.ID, days, timeSlot)
	if err != nil {
		return nil, err
	}

	change, err := txSchedules.CreateChange(ctx, repository.CreateScheduleChangeInput{
		RegistrationID: registration.ID,
		ParentID:       registration.ParentID,
		ChangeType:     "permanent",
		OldDays:        registration.TrainingDays,
		OldTimeSlot:    registration.TimeSlot,
		NewDays:        days,
		NewTimeSlot:    timeSlot,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.publishChanged(registration, change)

	return &ScheduleChangeResult{
		Change:      change,
		NewDays:     updated.TrainingDays,
		NewTimeSlot: updated.TimeSlot,
	}, nil
}

func (s *ScheduleService) applyOneTime(ctx context.Context, registration *models.Registration, input ChangeScheduleInput, timeSlot string) (*ScheduleChangeResult, error) {
	mappings := input.Mappings
	if len(mappings) == 0 {
		// Legacy single-date form: ambiguous for multi-day patterns, kept
		// only for old callers.
		if input.SpecificDate == nil || len(input.NewDays) == 0 {
			return nil, ErrValidation
		}
		log.Printf("schedule change: registration %d used deprecated single-date reschedule form", registration.ID)
		for _, day := range input.NewDays {
			mappings = append(mappings, DayMapping{
				OriginalDay:    weekdayName(*input.SpecificDate),
				ReplacementDay: day,
				ExceptionDate:  *input.SpecificDate,
			})
		}
	}

	replacementDays := make([]string, 0, len(mappings))
	for _, m := range mappings {
		replacementDays = append(replacementDays, m.ReplacementDay)
	}
	days, err := normalizeDays(replacementDays, registration.ProgramType)
	if err != nil {
		return nil, err
	}

	if err := s.checkConflicts(ctx, registration, days, timeSlot); err != nil {
		return nil, err
	}

	today := startOfDay(time.Now().UTC())
	repoMappings := make([]repository.ExceptionMapping, 0, len(mappings))
	for i, m := range mappings {
		if m.ExceptionDate.Before(today) {
			return nil, ErrValidation
		}
		repoMappings = append(repoMappings, repository.ExceptionMapping{
			OriginalDay:    normalizeDay(m.OriginalDay),
			ReplacementDay: days[i],
			ExceptionDate:  m.ExceptionDate,
		})
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSchedules := repository.NewScheduleRepository(tx)

	change, err := txSchedules.CreateChange(ctx, repository.CreateScheduleChangeInput{
		RegistrationID: registration.ID,
		ParentID:       registration.ParentID,
		ChangeType:     "one_time",
		OldDays:        registration.TrainingDays,
		OldTimeSlot:    registration.TimeSlot,
		NewDays:        days,
		NewTimeSlot:    timeSlot,
	})
	if err != nil {
		return nil, err
	}

	exceptions, err := txSchedules.CreateExceptions(ctx, change.ID, registration.ID, timeSlot, repoMappings)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.publishChanged(registration, change)

	// The stored recurring pattern stays untouched.
	return &ScheduleChangeResult{
		Change:      change,
		Exceptions:  exceptions,
		NewDays:     registration.TrainingDays,
		NewTimeSlot: registration.TimeSlot,
	}, nil
}

// checkConflicts scans the other active registrations of the same
// program for a standing pattern occupying any requested (day, time)
// pair. A hit is a Conflict, never a silent overwrite.
func (s *ScheduleService) checkConflicts(ctx context.Context, registration *models.Registration, days []string, timeSlot string) error {
	others, err := s.registrations.ListActiveByProgram(ctx, registration.ProgramType)
	if err != nil {
		return err
	}

	for _, other := range others {
		if other.ID == registration.ID {
			continue
		}
		if other.TimeSlot != timeSlot {
			continue
		}
		for _, day := range days {
			for _, otherDay := range other.TrainingDays {
				if normalizeDay(otherDay) == day {
					return ErrConflict
				}
			}
		}
	}
	return nil
}

func (s *ScheduleService) publishChanged(registration *models.Registration, change *models.ScheduleChange) {
	s.notifier.Publish(notify.NewEvent(notify.EventScheduleChanged, notify.ForAllAdmins(), map[string]any{
		"registration_id": registration.ID,
		"change_id":       change.ID,
		"change_type":     change.ChangeType,
	}))
}

func (s *ScheduleService) History(ctx context.Context, parentID, registrationID int64) ([]models.ScheduleChange, error) {
	registration, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if registration.ParentID != parentID {
		return nil, ErrForbidden
	}
	return s.schedules.ListChangesByRegistration(ctx, registrationID)
}

func normalizeDays(raw []string, programType string) ([]string, error) {
	if len(raw) == 0 {
		return nil, ErrValidation
	}

	allowed := catalog.AllowedDays(programType)
	days := make([]string, 0, len(raw))
	for _, d := range raw {
		day := normalizeDay(d)
		ok := false
		for _, a := range allowed {
			if a == day {
				ok = true
				break
			}
		}
		if !ok {
			return nil, ErrValidation
		}
		days = append(days, day)
	}
	return days, nil
}

func normalizeDay(day string) string {
	return strings.ToLower(strings.TrimSpace(day))
}

func weekdayName(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

func validSlotLabel(timeSlot string) bool {
	start, end, ok := strings.Cut(timeSlot, "-")
	if !ok {
		return false
	}
	from, err := time.Parse("15:04", strings.TrimSpace(start))
	if err != nil {
		return false
	}
	to, err := time.Parse("15:04", strings.TrimSpace(end))
	if err != nil {
		return false
	}
	return to.After(from)
}
