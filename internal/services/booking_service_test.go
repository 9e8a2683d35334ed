package services

import (
	"testing"
	"time"

	"github.com/avargas-dev/AcademyBack/internal/models"
)

func TestWithinRefundWindow(t *testing.T) {
	booking := &models.SessionBooking{
		SessionDate: time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
		TimeSlot:    "17:00-18:15",
	}

	// 25 hours before start: refundable.
	now := time.Date(2026, 9, 1, 16, 0, 0, 0, time.UTC)
	if !withinRefundWindow(booking, now) {
		t.Error("expected refund 25h before start")
	}

	// Exactly 24 hours before start: still refundable.
	now = time.Date(2026, 9, 1, 17, 0, 0, 0, time.UTC)
	if !withinRefundWindow(booking, now) {
		t.Error("expected refund exactly 24h before start")
	}

	// 23 hours before start: no refund.
	now = time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC)
	if withinRefundWindow(booking, now) {
		t.Error("expected no refund 23h before start")
	}

	// After the session: no refund.
	now = time.Date(2026, 9, 2, 19, 0, 0, 0, time.UTC)
	if withinRefundWindow(booking, now) {
		t.Error("expected no refund after session start")
	}
}

func TestSessionStart(t *testing.T) {
	date := time.Date(2026, 9, 2, 13, 45, 0, 0, time.UTC)

	got := sessionStart(date, "17:00-18:15")
	want := time.Date(2026, 9, 2, 17, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("sessionStart = %v, want %v", got, want)
	}

	// Unparseable labels fall back to midnight, the conservative bound.
	got = sessionStart(date, "evening")
	want = time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("sessionStart fallback = %v, want %v", got, want)
	}
}
