package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avargas-dev/AcademyBack/internal/models"
	"github.com/avargas-dev/AcademyBack/internal/repository"
)

func newIntegrationPaymentService(pool *pgxpool.Pool) *PaymentService {
	return NewPaymentService(pool, newIntegrationLedgerService(pool), nil)
}

func TestPaymentEventAppliedExactlyOnce(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationPaymentService(pool)
	ledger := newIntegrationLedgerService(pool)

	parentID := createTestParent(t, ctx, pool)
	t.Cleanup(func() { cleanupTestParents(t, ctx, pool, parentID) })

	event := PaymentEvent{
		EventType:   EventCheckoutCompleted,
		EventID:     fmt.Sprintf("evt-replay-%d", time.Now().UnixNano()),
		ParentID:    parentID,
		PackageType: "regular_10",
		AmountPaid:  350,
	}

	if err := service.HandleEvent(ctx, event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if err := service.HandleEvent(ctx, event); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed on replay, got %v", err)
	}

	balance, err := ledger.Balance(ctx, parentID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 10 {
		t.Fatalf("expected exactly one credit of 10, got balance %d", balance)
	}

	purchases, err := ledger.PurchaseHistory(ctx, parentID)
	if err != nil {
		t.Fatalf("PurchaseHistory: %v", err)
	}
	if len(purchases) != 1 {
		t.Fatalf("expected a single purchase row, got %d", len(purchases))
	}
}

func TestPaymentEventUpdatesRegistrationStatus(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationPaymentService(pool)

	parentID := createTestParent(t, ctx, pool)
	t.Cleanup(func() { cleanupTestParents(t, ctx, pool, parentID) })

	registration := createTestRegistration(t, ctx, pool, parentID, "U9", "group")
	if registration.PaymentStatus != "pending" {
		t.Fatalf("expected new registration pending, got %q", registration.PaymentStatus)
	}

	if err := service.HandleEvent(ctx, PaymentEvent{
		EventType:      EventInvoicePaid,
		EventID:        fmt.Sprintf("evt-paid-%d", time.Now().UnixNano()),
		ParentID:       parentID,
		RegistrationID: registration.ID,
	}); err != nil {
		t.Fatalf("HandleEvent invoice.paid: %v", err)
	}

	verified := fetchRegistration(t, ctx, pool, registration.ID)
	if verified.PaymentStatus != "verified" {
		t.Fatalf("expected verified, got %q", verified.PaymentStatus)
	}

	if err := service.HandleEvent(ctx, PaymentEvent{
		EventType:      EventInvoiceFailed,
		EventID:        fmt.Sprintf("evt-failed-%d", time.Now().UnixNano()),
		ParentID:       parentID,
		RegistrationID: registration.ID,
	}); err != nil {
		t.Fatalf("HandleEvent invoice.payment_failed: %v", err)
	}

	overdue := fetchRegistration(t, ctx, pool, registration.ID)
	if overdue.PaymentStatus != "overdue" {
		t.Fatalf("expected overdue, got %q", overdue.PaymentStatus)
	}
}

func TestPaymentEventBooksPaidSession(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationPaymentService(pool)

	parentID := createTestParent(t, ctx, pool)
	t.Cleanup(func() { cleanupTestParents(t, ctx, pool, parentID) })

	registration := createTestRegistration(t, ctx, pool, parentID, "U12", "semi_private")

	sessionDate := farFutureWeekday(t)
	if err := service.HandleEvent(ctx, PaymentEvent{
		EventType:      EventCheckoutCompleted,
		EventID:        fmt.Sprintf("evt-session-%d", time.Now().UnixNano()),
		ParentID:       parentID,
		RegistrationID: registration.ID,
		SessionType:    "semi_private",
		SessionDate:    &sessionDate,
		TimeSlot:       "11:00-12:00",
	}); err != nil {
		t.Fatalf("HandleEvent paid session: %v", err)
	}

	occupancy := slotOccupancy(t, ctx, pool, "semi_private", sessionDate, "11:00-12:00")
	if occupancy != 1 {
		t.Fatalf("expected occupancy 1, got %d", occupancy)
	}
}

func TestPaymentEventRejectsUnknownPackage(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	service := newIntegrationPaymentService(pool)

	parentID := createTestParent(t, ctx, pool)
	t.Cleanup(func() { cleanupTestParents(t, ctx, pool, parentID) })

	err := service.HandleEvent(ctx, PaymentEvent{
		EventType:   EventCheckoutCompleted,
		EventID:     fmt.Sprintf("evt-bad-%d", time.Now().UnixNano()),
		ParentID:    parentID,
		PackageType: "mega_100",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func fetchRegistration(t *testing.T, ctx context.Context, pool *pgxpool.Pool, registrationID int64) *models.Registration {
	t.Helper()

	registration, err := repository.NewRegistrationRepository(pool).GetByID(ctx, registrationID)
	if err != nil {
		t.Fatalf("GetByID registration: %v", err)
	}
	return registration
}
