package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/avargas-dev/AcademyBack/internal/models"
	"github.com/avargas-dev/AcademyBack/internal/services"
)

type stubSundayService struct {
	bookResult         *services.SundayBookingResult
	bookErr            error
	cancelResult       *services.SundayBookingResult
	cancelErr          error
	listResult         []models.SundaySlot
	listErr            error
	generateResult     []models.SundaySlot
	generateErr        error
	lastParentID       int64
	lastSlotID         int64
	lastRegistrationID int64
	lastBookingID      int64
	lastWeeks          int
}

func (s *stubSundayService) BookSundaySlot(_ context.Context, parentID, slotID, registrationID int64) (*services.SundayBookingResult, error) {
	s.lastParentID = parentID
	s.lastSlotID = slotID
	s.lastRegistrationID = registrationID
	return s.bookResult, s.bookErr
}

func (s *stubSundayService) CancelSundayBooking(_ context.Context, parentID, bookingID int64, _ *string) (*services.SundayBookingResult, error) {
	s.lastParentID = parentID
	s.lastBookingID = bookingID
	return s.cancelResult, s.cancelErr
}

func (s *stubSundayService) ListUpcomingSlots(_ context.Context) ([]models.SundaySlot, error) {
	return s.listResult, s.listErr
}

func (s *stubSundayService) GenerateSlots(_ context.Context, weeks int) ([]models.SundaySlot, error) {
	s.lastWeeks = weeks
	return s.generateResult, s.generateErr
}

func newSundayApp(service sundayApplicationService, role, userID string) *fiber.App {
	handler := &SundayHandler{service: service}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Get("/api/v1/sundays/slots", handler.ListSlots)
	app.Post("/api/v1/sundays/slots/generate", handler.GenerateSlots)
	app.Post("/api/v1/sundays/bookings", handler.BookSlot)
	app.Post("/api/v1/sundays/bookings/:id/cancel", handler.CancelBooking)
	return app
}

func TestBookSlotReturnsBookingAndSlot(t *testing.T) {
	service := &stubSundayService{
		bookResult: &services.SundayBookingResult{
			Booking: &models.SessionBooking{ID: 5, SessionType: "sunday", Status: "booked"},
			Slot:    &models.SundaySlot{ID: 2, CategoryBand: "U6-U10", Occupancy: 7, Capacity: 12},
		},
	}
	app := newSundayApp(service, "parent", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sundays/bookings", strings.NewReader(`{
		"slot_id": 2,
		"registration_id": 3
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
	if service.lastSlotID != 2 || service.lastRegistrationID != 3 {
		t.Fatalf("unexpected forwarded ids: slot %d registration %d", service.lastSlotID, service.lastRegistrationID)
	}
}

func TestBookSlotMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"slot full", services.ErrSlotFull, http.StatusConflict},
		{"duplicate", services.ErrDuplicateBooking, http.StatusConflict},
		{"payment pending", services.ErrPaymentRequired, http.StatusPaymentRequired},
		{"ineligible category", services.ErrIneligibleCategory, http.StatusUnprocessableEntity},
		{"wrong program", services.ErrInvalidProgramType, http.StatusUnprocessableEntity},
		{"past slot", services.ErrSlotPast, http.StatusUnprocessableEntity},
		{"not found", services.ErrNotFound, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newSundayApp(&stubSundayService{bookErr: tc.err}, "parent", "42")

			req := httptest.NewRequest(http.MethodPost, "/api/v1/sundays/bookings", strings.NewReader(`{
				"slot_id": 2,
				"registration_id": 3
			}`))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
		})
	}
}

func TestGenerateSlotsRequiresAdmin(t *testing.T) {
	app := newSundayApp(&stubSundayService{}, "parent", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sundays/slots/generate", strings.NewReader(`{"weeks": 4}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestGenerateSlotsForwardsWeeks(t *testing.T) {
	service := &stubSundayService{generateResult: []models.SundaySlot{{ID: 1}, {ID: 2}}}
	app := newSundayApp(service, "admin", "1")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sundays/slots/generate", strings.NewReader(`{"weeks": 4}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastWeeks != 4 {
		t.Fatalf("expected 4 weeks, got %d", service.lastWeeks)
	}
}

func TestCancelSundayBookingForwardsID(t *testing.T) {
	service := &stubSundayService{
		cancelResult: &services.SundayBookingResult{
			Booking: &models.SessionBooking{ID: 5, Status: "cancelled"},
			Slot:    &models.SundaySlot{ID: 2, Occupancy: 6},
		},
	}
	app := newSundayApp(service, "parent", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sundays/bookings/5/cancel", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastBookingID != 5 {
		t.Fatalf("expected booking id 5, got %d", service.lastBookingID)
	}
}
