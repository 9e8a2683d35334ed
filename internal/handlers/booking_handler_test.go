package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/avargas-dev/AcademyBack/internal/models"
	"github.com/avargas-dev/AcademyBack/internal/repository"
	"github.com/avargas-dev/AcademyBack/internal/services"
)

type stubBookingService struct {
	bookResult    *services.BookingResult
	bookErr       error
	cancelResult  *services.CancelResult
	cancelErr     error
	markResult    *models.SessionBooking
	markErr       error
	listResult    []models.SessionBooking
	listErr       error
	getResult     *models.SessionBooking
	getErr        error
	lastParentID  int64
	lastBookInput services.BookSessionInput
	lastBookingID int64
	lastReason    *string
	lastFilter    repository.BookingListFilter
	markedStatus  string
}

func (s *stubBookingService) Book(_ context.Context, parentID int64, input services.BookSessionInput) (*services.BookingResult, error) {
	s.lastParentID = parentID
	s.lastBookInput = input
	return s.bookResult, s.bookErr
}

func (s *stubBookingService) Cancel(_ context.Context, parentID, bookingID int64, reason *string) (*services.CancelResult, error) {
	s.lastParentID = parentID
	s.lastBookingID = bookingID
	s.lastReason = reason
	return s.cancelResult, s.cancelErr
}

func (s *stubBookingService) MarkAttended(_ context.Context, bookingID int64) (*models.SessionBooking, error) {
	s.lastBookingID = bookingID
	s.markedStatus = "attended"
	return s.markResult, s.markErr
}

func (s *stubBookingService) MarkNoShow(_ context.Context, bookingID int64) (*models.SessionBooking, error) {
	s.lastBookingID = bookingID
	s.markedStatus = "no_show"
	return s.markResult, s.markErr
}

func (s *stubBookingService) ListBookings(_ context.Context, parentID int64, filter repository.BookingListFilter) ([]models.SessionBooking, error) {
	s.lastParentID = parentID
	s.lastFilter = filter
	return s.listResult, s.listErr
}

func (s *stubBookingService) GetBooking(_ context.Context, parentID, bookingID int64) (*models.SessionBooking, error) {
	s.lastParentID = parentID
	s.lastBookingID = bookingID
	return s.getResult, s.getErr
}

func newBookingApp(service bookingApplicationService, role, userID string) *fiber.App {
	handler := &BookingHandler{service: service}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/api/v1/bookings", handler.BookSession)
	app.Get("/api/v1/bookings", handler.ListBookings)
	app.Get("/api/v1/bookings/:id", handler.GetBooking)
	app.Post("/api/v1/bookings/:id/cancel", handler.CancelBooking)
	app.Put("/api/v1/bookings/:id/attendance", handler.MarkAttendance)
	return app
}

func TestBookSessionReturnsCreatedBooking(t *testing.T) {
	service := &stubBookingService{
		bookResult: &services.BookingResult{
			Booking: &models.SessionBooking{
				ID:             7,
				ParentID:       42,
				RegistrationID: 3,
				SessionType:    "group",
				TimeSlot:       "17:00-18:15",
				CreditsUsed:    1,
				Status:         "booked",
			},
			CreditsRemaining: 9,
		},
	}
	app := newBookingApp(service, "parent", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{
		"registration_id": 3,
		"session_type": "group",
		"session_date": "2026-09-02",
		"time_slot": "17:00-18:15"
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
	if service.lastParentID != 42 {
		t.Fatalf("expected parent id 42, got %d", service.lastParentID)
	}
	if service.lastBookInput.RegistrationID != 3 {
		t.Fatalf("expected registration id 3, got %d", service.lastBookInput.RegistrationID)
	}
	if !service.lastBookInput.SessionDate.Equal(time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected session date %v", service.lastBookInput.SessionDate)
	}

	var body struct {
		CreditsRemaining int `json:"credits_remaining"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.CreditsRemaining != 9 {
		t.Fatalf("expected 9 credits remaining, got %d", body.CreditsRemaining)
	}
}

func TestBookSessionRejectsBadDate(t *testing.T) {
	app := newBookingApp(&stubBookingService{}, "parent", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{
		"registration_id": 3,
		"session_type": "group",
		"session_date": "next wednesday",
		"time_slot": "17:00-18:15"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestBookSessionMapsDomainErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"insufficient credits", services.ErrInsufficientCredits, http.StatusPaymentRequired},
		{"payment not verified", services.ErrPaymentRequired, http.StatusPaymentRequired},
		{"slot full", services.ErrSlotFull, http.StatusConflict},
		{"duplicate booking", services.ErrDuplicateBooking, http.StatusConflict},
		{"not found", services.ErrNotFound, http.StatusNotFound},
		{"forbidden", services.ErrForbidden, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newBookingApp(&stubBookingService{bookErr: tc.err}, "parent", "42")

			req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{
				"registration_id": 3,
				"session_type": "group",
				"session_date": "2026-09-02",
				"time_slot": "17:00-18:15"
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

func TestCancelBookingPassesReason(t *testing.T) {
	service := &stubBookingService{
		cancelResult: &services.CancelResult{
			Booking:          &models.SessionBooking{ID: 7, Status: "cancelled"},
			CreditsRefunded:  1,
			CreditsRemaining: 10,
		},
	}
	app := newBookingApp(service, "parent", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/7/cancel", strings.NewReader(`{
		"reason": "sick"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastBookingID != 7 {
		t.Fatalf("expected booking id 7, got %d", service.lastBookingID)
	}
	if service.lastReason == nil || *service.lastReason != "sick" {
		t.Fatalf("expected reason to be forwarded, got %v", service.lastReason)
	}
}

func TestCancelBookingMapsLateCancellation(t *testing.T) {
	app := newBookingApp(&stubBookingService{cancelErr: services.ErrSessionOccurred}, "parent", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/7/cancel", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestMarkAttendanceRequiresAdmin(t *testing.T) {
	app := newBookingApp(&stubBookingService{}, "parent", "42")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/bookings/7/attendance", strings.NewReader(`{
		"status": "attended"
	}`))
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

func TestMarkAttendanceDispatchesStatus(t *testing.T) {
	service := &stubBookingService{
		markResult: &models.SessionBooking{ID: 7, Status: "no_show"},
	}
	app := newBookingApp(service, "admin", "1")

	req := httptest.NewRequest(http.MethodPut, "/api/v1/bookings/7/attendance", strings.NewReader(`{
		"status": "no_show"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.markedStatus != "no_show" {
		t.Fatalf("expected no_show dispatch, got %q", service.markedStatus)
	}
}

func TestListBookingsRejectsBadTimeframe(t *testing.T) {
	app := newBookingApp(&stubBookingService{}, "parent", "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?timeframe=tomorrow", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListBookingsForwardsFilter(t *testing.T) {
	service := &stubBookingService{listResult: []models.SessionBooking{{ID: 1}}}
	app := newBookingApp(service, "parent", "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?timeframe=upcoming&status=booked", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastFilter.Timeframe != "upcoming" || service.lastFilter.Status != "booked" {
		t.Fatalf("unexpected filter %+v", service.lastFilter)
	}
}
