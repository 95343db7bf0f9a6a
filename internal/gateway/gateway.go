// Package gateway defines the payment gateway capability and the registry
// that resolves gateway implementations by id.
// Gateway implementations handle all provider-specific API calls, including
// serialization, idempotency, and error mapping, normalizing raw provider
// responses into a common PaymentResult.
package gateway

import (
	"context"

	"github.com/upsader/BillingAPI/internal/domain"
)

// PaymentGateway is the interface implemented by each payment provider.
type PaymentGateway interface {
	// ProcessPayment attempts to charge the order's payable amount.
	// A declined payment is reported as a PaymentResult with Success=false
	// and a nil error. A non-nil error means the attempt could not complete
	// at all (network unreachable, timeout) and no outcome exists.
	ProcessPayment(ctx context.Context, order domain.OrderRequest) (domain.PaymentResult, error)

	// Name returns the provider name, e.g. "Stripe".
	Name() string
}
