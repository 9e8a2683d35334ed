package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/avargas-dev/AcademyBack/internal/models"
	"github.com/avargas-dev/AcademyBack/internal/services"
)

type stubScheduleService struct {
	changeResult       *services.ScheduleChangeResult
	changeErr          error
	historyResult      []models.ScheduleChange
	historyErr         error
	lastParentID       int64
	lastInput          services.ChangeScheduleInput
	lastRegistrationID int64
}

func (s *stubScheduleService) ChangeSchedule(_ context.Context, parentID int64, input services.ChangeScheduleInput) (*services.ScheduleChangeResult, error) {
	s.lastParentID = parentID
	s.lastInput = input
	return s.changeResult, s.changeErr
}

func (s *stubScheduleService) History(_ context.Context, parentID, registrationID int64) ([]models.ScheduleChange, error) {
	s.lastParentID = parentID
	s.lastRegistrationID = registrationID
	return s.historyResult, s.historyErr
}

func newScheduleApp(service scheduleApplicationService, role, userID string) *fiber.App {
	handler := &ScheduleHandler{service: service}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/api/v1/schedules/changes", handler.ChangeSchedule)
	app.Get("/api/v1/schedules/changes/:id", handler.History)
	return app
}

func TestChangeScheduleForwardsPermanentInput(t *testing.T) {
	service := &stubScheduleService{
		changeResult: &services.ScheduleChangeResult{
			Change:      &models.ScheduleChange{ID: 1, ChangeType: "permanent"},
			NewDays:     []string{"tuesday", "thursday"},
			NewTimeSlot: "10:00-11:00",
		},
	}
	app := newScheduleApp(service, "parent", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedules/changes", strings.NewReader(`{
		"registration_id": 3,
		"change_type": "permanent",
		"new_days": ["tuesday", "thursday"],
		"new_time_slot": "10:00-11:00"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastInput.ChangeType != "permanent" {
		t.Fatalf("expected permanent change, got %q", service.lastInput.ChangeType)
	}
	if len(service.lastInput.NewDays) != 2 {
		t.Fatalf("expected 2 new days, got %v", service.lastInput.NewDays)
	}
}

func TestChangeScheduleParsesMappingDates(t *testing.T) {
	service := &stubScheduleService{
		changeResult: &services.ScheduleChangeResult{
			Change: &models.ScheduleChange{ID: 2, ChangeType: "one_time"},
		},
	}
	app := newScheduleApp(service, "parent", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedules/changes", strings.NewReader(`{
		"registration_id": 3,
		"change_type": "one_time",
		"mappings": [
			{"original_day": "monday", "replacement_day": "wednesday", "date": "2026-09-07"}
		]
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if len(service.lastInput.Mappings) != 1 {
		t.Fatalf("expected 1 mapping, got %d", len(service.lastInput.Mappings))
	}
	mapping := service.lastInput.Mappings[0]
	if mapping.OriginalDay != "monday" || mapping.ReplacementDay != "wednesday" {
		t.Fatalf("unexpected mapping %+v", mapping)
	}
	if !mapping.ExceptionDate.Equal(time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected exception date %v", mapping.ExceptionDate)
	}
}

func TestChangeScheduleMapsConflict(t *testing.T) {
	app := newScheduleApp(&stubScheduleService{changeErr: services.ErrConflict}, "parent", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedules/changes", strings.NewReader(`{
		"registration_id": 3,
		"change_type": "permanent",
		"new_days": ["tuesday"],
		"new_time_slot": "10:00-11:00"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestHistoryForwardsRegistrationID(t *testing.T) {
	service := &stubScheduleService{
		historyResult: []models.ScheduleChange{{ID: 1}, {ID: 2}},
	}
	app := newScheduleApp(service, "parent", "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedules/changes/3", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastRegistrationID != 3 {
		t.Fatalf("expected registration id 3, got %d", service.lastRegistrationID)
	}
}
