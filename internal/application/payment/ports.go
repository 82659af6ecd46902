package payment

import "context"

// Intent is the gateway-side order registered ahead of checkout.
type Intent struct {
	GatewayOrderID string
	Amount         float64
	Currency       string
}

// Gateway abstracts the payment provider. VerifySignature must compare in
// constant time; its verdict is the only path to a paid order.
type Gateway interface {
	CreateIntent(ctx context.Context, amount float64, currency, receipt string) (*Intent, error)
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool
	KeyID() string
}
