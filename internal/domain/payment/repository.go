package payment

import "context"

type Repository interface {
	// Upsert is keyed by order: re-requesting an intent for the same unpaid
	// order replaces the pending record instead of duplicating it.
	Upsert(ctx context.Context, p *Payment) error
	GetByOrder(ctx context.Context, orderID string) (*Payment, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Payment, error)
	// MarkSucceeded persists the successful payment and flips the owning
	// order to paid/confirmed in the same unit of work.
	MarkSucceeded(ctx context.Context, p *Payment) error
	MarkFailed(ctx context.Context, p *Payment) error
}
