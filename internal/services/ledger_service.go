package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avargas-dev/AcademyBack/internal/catalog"
	"github.com/avargas-dev/AcademyBack/internal/models"
	"github.com/avargas-dev/AcademyBack/internal/notify"
	"github.com/avargas-dev/AcademyBack/internal/repository"
)

const lowCreditThreshold = 2

// LedgerService owns credit accounts and purchases. Every mutation keeps
// the account total equal to the sum of remaining balances across the
// parent's non-expired purchases.
type LedgerService struct {
	db       *pgxpool.Pool
	credits  *repository.CreditRepository
	notifier notify.Publisher
}

func NewLedgerService(db *pgxpool.Pool, credits *repository.CreditRepository, notifier notify.Publisher) *LedgerService {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &LedgerService{db: db, credits: credits, notifier: notifier}
}

type CreditInput struct {
	ParentID       int64
	PackageType    string
	PaymentEventID string
}

type CreditResult struct {
	Purchase     *models.CreditPurchase
	TotalCredits int
}

// Credit applies a completed credit-package purchase. Idempotency on the
// payment event id is handled by the webhook pipeline before this runs,
// so a second call with a fresh event id is a genuine new purchase.
func (s *LedgerService) Credit(ctx context.Context, input CreditInput) (*CreditResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	result, err := s.CreditInTx(ctx, tx, input)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifier.Publish(notify.NewEvent(notify.EventCreditsPurchased, notify.ForParent(input.ParentID), map[string]any{
		"package_type":  result.Purchase.PackageType,
		"credits":       result.Purchase.CreditsPurchased,
		"total_credits": result.TotalCredits,
	}))

	return result, nil
}

// CreditInTx records the purchase and the account increment inside a
// caller-owned transaction, so the webhook pipeline can tie them to its
// event claim. The caller publishes the purchase event after its commit.
func (s *LedgerService) CreditInTx(ctx context.Context, tx pgx.Tx, input CreditInput) (*CreditResult, error) {
	pkg, ok := catalog.PackageByType(input.PackageType)
	if !ok {
		return nil, ErrValidation
	}

	txCredits := repository.NewCreditRepository(tx)

	purchase, err := txCredits.CreatePurchase(ctx, repository.CreatePurchaseInput{
		ParentID:       input.ParentID,
		PackageType:    pkg.Type,
		Credits:        pkg.Credits,
		PaymentEventID: input.PaymentEventID,
		ExpiresAt:      time.Now().UTC().Add(catalog.CreditValidity),
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyProcessed
		}
		return nil, err
	}

	account, err := txCredits.AddToAccount(ctx, input.ParentID, pkg.Credits)
	if err != nil {
		return nil, err
	}

	return &CreditResult{Purchase: purchase, TotalCredits: account.TotalCredits}, nil
}

type DebitResult struct {
	// PurchaseID is the purchase the first (usually only) credit came
	// from, so a later refund can credit it back.
	PurchaseID   *int64
	TotalCredits int
	// LowCredits asks the caller to publish a credits-low event once its
	// transaction has committed. Publishing earlier would alert the
	// parent about a debit that may still roll back.
	LowCredits bool
}

// Debit spends amount credits oldest-expiry-first inside its own
// transaction.
func (s *LedgerService) Debit(ctx context.Context, parentID int64, amount int) (*DebitResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	result, err := s.DebitInTx(ctx, tx, parentID, amount)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if result.LowCredits {
		s.PublishLowCredits(parentID, result.TotalCredits)
	}
	return result, nil
}

// PublishLowCredits emits the credits-low warning. Callers invoke it
// after the debit that crossed the threshold has committed.
func (s *LedgerService) PublishLowCredits(parentID int64, totalCredits int) {
	s.notifier.Publish(notify.NewEvent(notify.EventCreditsLow, notify.ForParent(parentID), map[string]any{
		"total_credits": totalCredits,
	}))
}

// DebitInTx runs the debit inside a caller-owned transaction so the
// booking engine can make capacity, ledger, and booking row move
// together. On ErrInsufficientCredits nothing is recorded: the caller's
// rollback undoes any partial purchase decrement.
func (s *LedgerService) DebitInTx(ctx context.Context, tx pgx.Tx, parentID int64, amount int) (*DebitResult, error) {
	if amount <= 0 {
		return nil, ErrValidation
	}

	txCredits := repository.NewCreditRepository(tx)
	now := time.Now().UTC()

	purchases, err := txCredits.SpendablePurchasesForUpdate(ctx, parentID, now)
	if err != nil {
		return nil, err
	}

	spendable := 0
	for _, p := range purchases {
		spendable += p.CreditsRemaining
	}
	if spendable < amount {
		return nil, ErrInsufficientCredits
	}

	var firstPurchaseID *int64
	remaining := amount
	for _, p := range purchases {
		if remaining == 0 {
			break
		}
		take := p.CreditsRemaining
		if take > remaining {
			take = remaining
		}
		if _, err := txCredits.SpendPurchase(ctx, p.ID, take); err != nil {
			return nil, err
		}
		if firstPurchaseID == nil {
			id := p.ID
			firstPurchaseID = &id
		}
		remaining -= take
	}

	account, err := txCredits.DeductFromAccount(ctx, parentID, amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientCredits
		}
		return nil, err
	}

	return &DebitResult{
		PurchaseID:   firstPurchaseID,
		TotalCredits: account.TotalCredits,
		LowCredits:   account.TotalCredits <= lowCreditThreshold,
	}, nil
}

// RefundInTx returns amount credits to the parent. When the originating
// purchase is still identifiable, unexpired, and under its purchased cap
// the credits go back onto it; otherwise the account total alone is
// topped up. Either way the account gains exactly amount.
func (s *LedgerService) RefundInTx(ctx context.Context, tx pgx.Tx, parentID int64, amount int, purchaseID *int64) (int, error) {
	if amount <= 0 {
		return 0, ErrValidation
	}

	txCredits := repository.NewCreditRepository(tx)

	if purchaseID != nil {
		if _, err := txCredits.RefundToPurchase(ctx, *purchaseID, amount, time.Now().UTC()); err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return 0, err
			}
			// Purchase expired or at cap; fall through to the
			// account-level top-up.
		}
	}

	account, err := txCredits.AddToAccount(ctx, parentID, amount)
	if err != nil {
		return 0, err
	}
	return account.TotalCredits, nil
}

// Balance returns the parent's spendable total. Parents without an
// account simply have zero credits.
func (s *LedgerService) Balance(ctx context.Context, parentID int64) (int, error) {
	account, err := s.credits.GetAccount(ctx, parentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return account.TotalCredits, nil
}

// BalanceInTx reads the account total with the caller's transaction, so
// an operation can report the balance it committed alongside.
func (s *LedgerService) BalanceInTx(ctx context.Context, tx pgx.Tx, parentID int64) (int, error) {
	account, err := repository.NewCreditRepository(tx).GetAccount(ctx, parentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return account.TotalCredits, nil
}

// PurchaseHistory lists the parent's purchases newest first.
func (s *LedgerService) PurchaseHistory(ctx context.Context, parentID int64) ([]models.CreditPurchase, error) {
	return s.credits.ListPurchases(ctx, parentID)
}
