package models

import "time"

// CreditAccount tracks a parent's spendable balance. TotalCredits always
// equals the sum of credits_remaining across the parent's non-expired
// purchases; zero-balance accounts are kept.
type CreditAccount struct {
	ID           int64     `json:"id"`
	ParentID     int64     `json:"parent_id"`
	TotalCredits int       `json:"total_credits"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreditPurchase struct {
	ID               int64     `json:"id"`
	ParentID         int64     `json:"parent_id"`
	PackageType      string    `json:"package_type"`
	CreditsPurchased int       `json:"credits_purchased"`
	CreditsRemaining int       `json:"credits_remaining"`
	PaymentEventID   string    `json:"payment_event_id"`
	Status           string    `json:"status"`
	PurchasedAt      time.Time `json:"purchased_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}
