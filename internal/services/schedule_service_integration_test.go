package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avargas-dev/AcademyBack/internal/repository"
)

func newIntegrationScheduleService(pool *pgxpool.Pool) *ScheduleService {
	return NewScheduleService(
		pool,
		repository.NewRegistrationRepository(pool),
		repository.NewScheduleRepository(pool),
		nil,
	)
}

func TestPermanentChangeRewritesPattern(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationScheduleService(pool)

	parentID := createTestParent(t, ctx, pool)
	t.Cleanup(func() { cleanupTestParents(t, ctx, pool, parentID) })

	registration := createTestRegistration(t, ctx, pool, parentID, "U12", "private")

	result, err := service.ChangeSchedule(ctx, parentID, ChangeScheduleInput{
		RegistrationID: registration.ID,
		ChangeType:     "permanent",
		NewDays:        []string{"thursday"},
		NewTimeSlot:    "12:00-13:00",
	})
	if err != nil {
		t.Fatalf("ChangeSchedule: %v", err)
	}
	if len(result.NewDays) != 1 || result.NewDays[0] != "thursday" {
		t.Fatalf("expected pattern rewritten to thursday, got %v", result.NewDays)
	}
	if result.NewTimeSlot != "12:00-13:00" {
		t.Fatalf("expected new time slot, got %q", result.NewTimeSlot)
	}

	stored := fetchRegistration(t, ctx, pool, registration.ID)
	if len(stored.TrainingDays) != 1 || stored.TrainingDays[0] != "thursday" {
		t.Fatalf("expected stored pattern thursday, got %v", stored.TrainingDays)
	}

	history, err := service.History(ctx, parentID, registration.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].ChangeType != "permanent" {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestPermanentChangeDetectsConflicts(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationScheduleService(pool)

	parentID := createTestParent(t, ctx, pool)
	otherParent := createTestParent(t, ctx, pool)
	t.Cleanup(func() { cleanupTestParents(t, ctx, pool, parentID, otherParent) })

	// The other registration already trains Tuesday 10:00-11:00.
	createTestRegistration(t, ctx, pool, otherParent, "U13", "private")
	registration, err := repository.NewRegistrationRepository(pool).Create(ctx, repository.CreateRegistrationInput{
		ParentID:     parentID,
		PlayerName:   "Test Player",
		Category:     "U12",
		ProgramType:  "private",
		TrainingDays: []string{"wednesday"},
		TimeSlot:     "10:00-11:00",
	})
	if err != nil {
		t.Fatalf("Create registration: %v", err)
	}

	_, err = service.ChangeSchedule(ctx, parentID, ChangeScheduleInput{
		RegistrationID: registration.ID,
		ChangeType:     "permanent",
		NewDays:        []string{"tuesday"},
		NewTimeSlot:    "10:00-11:00",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// The pattern must be untouched after the rejected change.
	stored := fetchRegistration(t, ctx, pool, registration.ID)
	if len(stored.TrainingDays) != 1 || stored.TrainingDays[0] != "wednesday" {
		t.Fatalf("expected pattern unchanged, got %v", stored.TrainingDays)
	}
}

func TestOneTimeChangeKeepsPattern(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationScheduleService(pool)

	parentID := createTestParent(t, ctx, pool)
	t.Cleanup(func() { cleanupTestParents(t, ctx, pool, parentID) })

	registration := createTestRegistration(t, ctx, pool, parentID, "U12", "private")

	exceptionDate := time.Date(2031, 3, 6, 0, 0, 0, 0, time.UTC)
	result, err := service.ChangeSchedule(ctx, parentID, ChangeScheduleInput{
		RegistrationID: registration.ID,
		ChangeType:     "one_time",
		Mappings: []DayMapping{
			{OriginalDay: "tuesday", ReplacementDay: "thursday", ExceptionDate: exceptionDate},
		},
	})
	if err != nil {
		t.Fatalf("ChangeSchedule: %v", err)
	}
	if len(result.Exceptions) != 1 {
		t.Fatalf("expected 1 exception, got %d", len(result.Exceptions))
	}
	exc := result.Exceptions[0]
	if exc.OriginalDay != "tuesday" || exc.ReplacementDay != "thursday" {
		t.Fatalf("unexpected exception %+v", exc)
	}

	// The recurring pattern survives a one-time change.
	stored := fetchRegistration(t, ctx, pool, registration.ID)
	if len(stored.TrainingDays) != 1 || stored.TrainingDays[0] != "tuesday" {
		t.Fatalf("expected pattern still tuesday, got %v", stored.TrainingDays)
	}
	if stored.TimeSlot != "10:00-11:00" {
		t.Fatalf("expected time slot unchanged, got %q", stored.TimeSlot)
	}
}

func TestChangeScheduleRejectsGroupRegistrations(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationScheduleService(pool)

	parentID := createTestParent(t, ctx, pool)
	t.Cleanup(func() { cleanupTestParents(t, ctx, pool, parentID) })

	registration := createTestRegistration(t, ctx, pool, parentID, "U9", "group")

	_, err := service.ChangeSchedule(ctx, parentID, ChangeScheduleInput{
		RegistrationID: registration.ID,
		ChangeType:     "permanent",
		NewDays:        []string{"friday"},
	})
	if !errors.Is(err, ErrInvalidProgramType) {
		t.Fatalf("expected ErrInvalidProgramType, got %v", err)
	}
}
