package repository

import (
	"context"
	"time"

	"github.com/avargas-dev/AcademyBack/internal/models"
)

type CreditRepository struct {
	db DBTX
}

func NewCreditRepository(db DBTX) *CreditRepository {
	return &CreditRepository{db: db}
}

func (r *CreditRepository) GetAccount(ctx context.Context, parentID int64) (*models.CreditAccount, error) {
	query := `
		SELECT id, parent_id, total_credits, created_at, updated_at
		FROM credit_accounts
		WHERE parent_id = $1
	`
	var account models.CreditAccount
	err := r.db.QueryRow(ctx, query, parentID).Scan(
		&account.ID,
		&account.ParentID,
		&account.TotalCredits,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// AddToAccount credits the balance, creating the account row on first use.
func (r *CreditRepository) AddToAccount(ctx context.Context, parentID int64, amount int) (*models.CreditAccount, error) {
	query := `
		INSERT INTO credit_accounts (parent_id, total_credits)
		VALUES ($1, $2)
		ON CONFLICT (parent_id)
		DO UPDATE SET total_credits = credit_accounts.total_credits + $2, updated_at = NOW()
		RETURNING id, parent_id, total_credits, created_at, updated_at
	`
	var account models.CreditAccount
	err := r.db.QueryRow(ctx, query, parentID, amount).Scan(
		&account.ID,
		&account.ParentID,
		&account.TotalCredits,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// DeductFromAccount decrements the balance only when it covers the amount.
// The guard in the WHERE clause makes overdrawing impossible even under
// concurrent debits; no row means insufficient credits.
func (r *CreditRepository) DeductFromAccount(ctx context.Context, parentID int64, amount int) (*models.CreditAccount, error) {
	query := `
		UPDATE credit_accounts
		SET total_credits = total_credits - $2, updated_at = NOW()
		WHERE parent_id = $1 AND total_credits >= $2
		RETURNING id, parent_id, total_credits, created_at, updated_at
	`
	var account models.CreditAccount
	err := r.db.QueryRow(ctx, query, parentID, amount).Scan(
		&account.ID,
		&account.ParentID,
		&account.TotalCredits,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

type CreatePurchaseInput struct {
	ParentID       int64
	PackageType    string
	Credits        int
	PaymentEventID string
	ExpiresAt      time.Time
}

func (r *CreditRepository) CreatePurchase(ctx context.Context, input CreatePurchaseInput) (*models.CreditPurchase, error) {
	query := `
		INSERT INTO credit_purchases
			(parent_id, package_type, credits_purchased, credits_remaining, payment_event_id, status, expires_at)
		VALUES ($1, $2, $3, $3, $4, 'active', $5)
		RETURNING id, parent_id, package_type, credits_purchased, credits_remaining,
			payment_event_id, status, purchased_at, expires_at
	`
	var purchase models.CreditPurchase
	err := r.db.QueryRow(
		ctx,
		query,
		input.ParentID,
		input.PackageType,
		input.Credits,
		input.PaymentEventID,
		input.ExpiresAt,
	).Scan(
		&purchase.ID,
		&purchase.ParentID,
		&purchase.PackageType,
		&purchase.CreditsPurchased,
		&purchase.CreditsRemaining,
		&purchase.PaymentEventID,
		&purchase.Status,
		&purchase.PurchasedAt,
		&purchase.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// SpendablePurchasesForUpdate locks the parent's active, unexpired
// purchases oldest-expiry-first so a debit can spread across them without
// racing a concurrent debit on the same account.
func (r *CreditRepository) SpendablePurchasesForUpdate(ctx context.Context, parentID int64, now time.Time) ([]models.CreditPurchase, error) {
	query := `
		SELECT id, parent_id, package_type, credits_purchased, credits_remaining,
			payment_event_id, status, purchased_at, expires_at
		FROM credit_purchases
		WHERE parent_id = $1
		  AND status = 'active'
		  AND credits_remaining > 0
		  AND expires_at > $2
		ORDER BY expires_at ASC, id ASC
		FOR UPDATE
	`
	rows, err := r.db.Query(ctx, query, parentID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]models.CreditPurchase, 0)
	for rows.Next() {
		var purchase models.CreditPurchase
		if err := rows.Scan(
			&purchase.ID,
			&purchase.ParentID,
			&purchase.PackageType,
			&purchase.CreditsPurchased,
			&purchase.CreditsRemaining,
			&purchase.PaymentEventID,
			&purchase.Status,
			&purchase.PurchasedAt,
			&purchase.ExpiresAt,
		); err != nil {
			return nil, err
		}
		purchases = append(purchases, purchase)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return purchases, nil
}

// SpendPurchase takes amount credits off one purchase, flipping it to
// exhausted the moment the remaining balance hits zero. The balance guard
// keeps the decrement from going negative.
func (r *CreditRepository) SpendPurchase(ctx context.Context, purchaseID int64, amount int) (*models.CreditPurchase, error) {
	query := `
		UPDATE credit_purchases
		SET credits_remaining = credits_remaining - $2,
			status = CASE WHEN credits_remaining - $2 = 0 THEN 'exhausted' ELSE status END
		WHERE id = $1 AND credits_remaining >= $2
		RETURNING id, parent_id, package_type, credits_purchased, credits_remaining,
			payment_event_id, status, purchased_at, expires_at
	`
	var purchase models.CreditPurchase
	err := r.db.QueryRow(ctx, query, purchaseID, amount).Scan(
		&purchase.ID,
		&purchase.ParentID,
		&purchase.PackageType,
		&purchase.CreditsPurchased,
		&purchase.CreditsRemaining,
		&purchase.PaymentEventID,
		&purchase.Status,
		&purchase.PurchasedAt,
		&purchase.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// RefundToPurchase credits back onto the purchase that funded a booking,
// bounded so credits_remaining never exceeds credits_purchased and never
// lands on an expired purchase. No row means the cap or expiry blocked
// the purchase-level refund and the caller should top up the account
// directly instead.
func (r *CreditRepository) RefundToPurchase(ctx context.Context, purchaseID int64, amount int, now time.Time) (*models.CreditPurchase, error) {
	query := `
		UPDATE credit_purchases
		SET credits_remaining = credits_remaining + $2,
			status = 'active'
		WHERE id = $1
		  AND credits_remaining + $2 <= credits_purchased
		  AND expires_at > $3
		RETURNING id, parent_id, package_type, credits_purchased, credits_remaining,
			payment_event_id, status, purchased_at, expires_at
	`
	var purchase models.CreditPurchase
	err := r.db.QueryRow(ctx, query, purchaseID, amount, now).Scan(
		&purchase.ID,
		&purchase.ParentID,
		&purchase.PackageType,
		&purchase.CreditsPurchased,
		&purchase.CreditsRemaining,
		&purchase.PaymentEventID,
		&purchase.Status,
		&purchase.PurchasedAt,
		&purchase.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *CreditRepository) ListPurchases(ctx context.Context, parentID int64) ([]models.CreditPurchase, error) {
	query := `
		SELECT id, parent_id, package_type, credits_purchased, credits_remaining,
			payment_event_id, status, purchased_at, expires_at
		FROM credit_purchases
		WHERE parent_id = $1
		ORDER BY purchased_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]models.CreditPurchase, 0)
	for rows.Next() {
		var purchase models.CreditPurchase
		if err := rows.Scan(
			&purchase.ID,
			&purchase.ParentID,
			&purchase.PackageType,
			&purchase.CreditsPurchased,
			&purchase.CreditsRemaining,
			&purchase.PaymentEventID,
			&purchase.Status,
			&purchase.PurchasedAt,
			&purchase.ExpiresAt,
		); err != nil {
			return nil, err
		}
		purchases = append(purchases, purchase)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return purchases, nil
}

// ExpireOverduePurchases flips overdue purchases to expired and deducts
// their leftover balances from the owning accounts in the same statement,
// so the account total keeps matching the sum over active purchases.
// Returns the number of purchases flipped.
func (r *CreditRepository) ExpireOverduePurchases(ctx context.Context, now time.Time) (int64, error) {
	query := `
		WITH expired AS (
			UPDATE credit_purchases
			SET status = 'expired'
			WHERE status = 'active' AND expires_at <= $1
			RETURNING parent_id, credits_remaining
		), deducted AS (
			UPDATE credit_accounts a
			SET total_credits = GREATEST(a.total_credits - e.lost, 0), updated_at = NOW()
			FROM (
				SELECT parent_id, SUM(credits_remaining) AS lost
				FROM expired
				GROUP BY parent_id
			) e
			WHERE a.parent_id = e.parent_id
		)
		SELECT COUNT(*) FROM expired
	`
	var count int64
	if err := r.db.QueryRow(ctx, query, now).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
