package repository

import (
	"context"
)

// PaymentEventRepository records processed payment-processor event ids.
// The insert-if-not-exists is the idempotency gate for at-least-once
// webhook delivery.
type PaymentEventRepository struct {
	db DBTX
}

func NewPaymentEventRepository(db DBTX) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

// MarkProcessed claims an event id. It returns false when the id was
// already claimed by an earlier delivery, in which case the caller must
// skip the event's side effects.
func (r *PaymentEventRepository) MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	query := `
		INSERT INTO processed_payment_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, eventID, eventType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
