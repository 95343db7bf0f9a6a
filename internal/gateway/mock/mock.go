// Package mock provides deterministic stand-in payment gateways used in
// mock mode and in tests.
package mock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/google/uuid"

	"github.com/upsader/BillingAPI/internal/domain"
)

// Default simulated provider latency, matching what a fast provider
// round-trip looks like.
const defaultDelay = 150 * time.Millisecond

// Gateway is a configurable mock PaymentGateway. With no options it
// approves every order after a fixed simulated delay and returns a
// provider-tagged synthetic transaction id.
type Gateway struct {
	name  string
	delay time.Duration

	// declineRule, when set, is evaluated against the order; a true result
	// declines the payment. Parameters: amount, user_id, order_number, gateway.
	declineRule *govaluate.EvaluableExpression

	// ProcessFunc overrides all behavior when set. Tests use it to script
	// transport errors and exotic results.
	ProcessFunc func(ctx context.Context, order domain.OrderRequest) (domain.PaymentResult, error)
}

// Option configures a mock Gateway.
type Option func(*Gateway)

// WithDelay overrides the simulated provider latency.
func WithDelay(d time.Duration) Option {
	return func(g *Gateway) { g.delay = d }
}

// WithDeclineRule installs a govaluate expression that declines matching
// orders, e.g. "amount >= 10000". An expression that fails to compile
// panics; decline rules come from operator config and tests, not callers.
func WithDeclineRule(expr string) Option {
	return func(g *Gateway) {
		compiled, err := govaluate.NewEvaluableExpression(expr)
		if err != nil {
			panic(fmt.Sprintf("mock gateway %s: invalid decline rule %q: %v", g.name, expr, err))
		}
		g.declineRule = compiled
	}
}

// New creates a mock gateway for the given provider name.
func New(name string, opts ...Option) *Gateway {
	if name == "" {
		panic("mock gateway name cannot be empty")
	}
	g := &Gateway{name: name, delay: defaultDelay}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewStripe creates the default mock Stripe gateway.
func NewStripe(opts ...Option) *Gateway {
	return New("Stripe", opts...)
}

// NewPayPal creates the default mock PayPal gateway.
func NewPayPal(opts ...Option) *Gateway {
	return New("PayPal", opts...)
}

// Name implements gateway.PaymentGateway.
func (g *Gateway) Name() string {
	return g.name
}

// ProcessPayment implements gateway.PaymentGateway. The simulated delay
// respects context cancellation, in which case a transport error is
// returned, mirroring a real provider call cut short.
func (g *Gateway) ProcessPayment(ctx context.Context, order domain.OrderRequest) (domain.PaymentResult, error) {
	if g.ProcessFunc != nil {
		return g.ProcessFunc(ctx, order)
	}

	select {
	case <-time.After(g.delay):
	case <-ctx.Done():
		return domain.PaymentResult{}, fmt.Errorf("mock %s: payment interrupted: %w", g.name, ctx.Err())
	}

	if g.declineRule != nil {
		declined, err := g.evaluateDeclineRule(order)
		if err != nil {
			return domain.PaymentResult{}, fmt.Errorf("mock %s: decline rule evaluation failed: %w", g.name, err)
		}
		if declined {
			return domain.PaymentResult{
				Success: false,
				Message: fmt.Sprintf("Mock %s payment declined by rule", g.name),
			}, nil
		}
	}

	return domain.PaymentResult{
		Success:       true,
		TransactionID: fmt.Sprintf("MOCK-%s-%s", strings.ToUpper(g.name), uuid.NewString()),
		Message:       fmt.Sprintf("Mock %s payment succeeded", g.name),
	}, nil
}

func (g *Gateway) evaluateDeclineRule(order domain.OrderRequest) (bool, error) {
	params := map[string]any{
		"amount":       order.PayableAmount.InexactFloat64(),
		"user_id":      order.UserID,
		"order_number": order.OrderNumber,
		"gateway":      order.PaymentGateway,
	}
	result, err := g.declineRule.Evaluate(params)
	if err != nil {
		return false, err
	}
	declined, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("decline rule returned %T, want bool", result)
	}
	return declined, nil
}
