// Package stripe implements a live PaymentGateway backed by the Stripe
// charges API. Card declines are normalized into declined PaymentResults;
// network-level failures surface as errors so the caller can tell the two
// apart. A circuit breaker fails fast while the endpoint is unhealthy.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/upsader/BillingAPI/internal/domain"
	"github.com/upsader/BillingAPI/internal/gateway/circuitbreaker"
)

const (
	stripeAPIBaseURL     = "https://api.stripe.com/v1"
	defaultRetryAttempts = 2
	defaultRetryDelay    = 500 * time.Millisecond
)

// Gateway is a live Stripe PaymentGateway.
type Gateway struct {
	httpClient *http.Client
	apiKey     string
	apiBaseURL string        // overridable for tests
	retryDelay time.Duration // pause between retry attempts
	breaker    *circuitbreaker.CircuitBreaker
}

// New creates a Stripe gateway. A nil client gets a 10s-timeout default.
func New(apiKey string, client *http.Client) *Gateway {
	if apiKey == "" {
		panic("stripe api key cannot be empty")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Gateway{
		httpClient: client,
		apiKey:     apiKey,
		apiBaseURL: stripeAPIBaseURL,
		retryDelay: defaultRetryDelay,
		breaker:    circuitbreaker.New(),
	}
}

// Name implements gateway.PaymentGateway.
func (g *Gateway) Name() string {
	return "Stripe"
}

// SetBaseURL points the gateway at a different API host. Tests use it to
// target an httptest server.
func (g *Gateway) SetBaseURL(base string) {
	g.apiBaseURL = base
}

// stripeErrorResponse is the error envelope returned by the Stripe API.
type stripeErrorResponse struct {
	Error struct {
		Type        string `json:"type"`
		Code        string `json:"code"`
		Message     string `json:"message"`
		DeclineCode string `json:"decline_code"`
	} `json:"error"`
}

// idempotencyKey builds a unique key per charge attempt. Stripe caps the
// header at 255 characters.
func idempotencyKey(orderNumber string) string {
	key := fmt.Sprintf("%s-%s", orderNumber, uuid.NewString())
	if len(key) > 255 {
		return key[:255]
	}
	return key
}

// chargePayload builds the form body for a Stripe charge. Stripe expects
// the amount in the currency's smallest unit.
func chargePayload(order domain.OrderRequest) url.Values {
	cents := order.PayableAmount.Mul(decimal.NewFromInt(100)).Round(0)
	payload := url.Values{}
	payload.Set("amount", cents.String())
	payload.Set("currency", "usd")
	payload.Set("source", "tok_visa")
	if order.Description != "" {
		payload.Set("description", order.Description)
	} else {
		payload.Set("description", fmt.Sprintf("Charge for order %s", order.OrderNumber))
	}
	payload.Set("metadata[order_number]", order.OrderNumber)
	payload.Set("metadata[user_id]", order.UserID)
	return payload
}

// ProcessPayment implements gateway.PaymentGateway. Transient failures
// (network errors, 429, 5xx) are retried up to defaultRetryAttempts times
// before being reported as a transport error.
func (g *Gateway) ProcessPayment(ctx context.Context, order domain.OrderRequest) (domain.PaymentResult, error) {
	if !g.breaker.Allow() {
		return domain.PaymentResult{}, fmt.Errorf("stripe: circuit open, skipping charge for order %s", order.OrderNumber)
	}

	requestBody := chargePayload(order).Encode()

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt <= defaultRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(g.retryDelay):
			case <-ctx.Done():
				g.breaker.RecordFailure()
				return domain.PaymentResult{}, fmt.Errorf("stripe: charge interrupted: %w", ctx.Err())
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiBaseURL+"/charges", strings.NewReader(requestBody))
		if err != nil {
			g.breaker.RecordFailure()
			return domain.PaymentResult{}, fmt.Errorf("stripe: failed to create http request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
		req.Header.Set("Idempotency-Key", idempotencyKey(order.OrderNumber))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		currentResp, doErr := g.httpClient.Do(req)
		if doErr != nil {
			lastErr = fmt.Errorf("stripe: http client error on attempt %d: %w", attempt+1, doErr)
			continue
		}

		if currentResp.StatusCode == http.StatusTooManyRequests || currentResp.StatusCode >= http.StatusInternalServerError {
			body, _ := io.ReadAll(currentResp.Body)
			currentResp.Body.Close()
			lastErr = fmt.Errorf("stripe: received HTTP %d on attempt %d: %s", currentResp.StatusCode, attempt+1, string(body))
			continue
		}

		resp = currentResp
		break
	}

	if resp == nil {
		g.breaker.RecordFailure()
		return domain.PaymentResult{}, lastErr
	}
	defer resp.Body.Close()
	g.breaker.RecordSuccess()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return domain.PaymentResult{}, fmt.Errorf("stripe: failed to read response body: %w", readErr)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var charge struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		if err := json.Unmarshal(body, &charge); err != nil {
			return domain.PaymentResult{}, fmt.Errorf("stripe: failed to decode charge response: %w", err)
		}
		return domain.PaymentResult{
			Success:       true,
			TransactionID: charge.ID,
			Message:       fmt.Sprintf("Stripe charge %s", charge.Status),
		}, nil
	}

	// 4xx from Stripe is a business decline, not a transport failure.
	var errResp stripeErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return domain.PaymentResult{
			Success: false,
			Message: errResp.Error.Message,
		}, nil
	}
	return domain.PaymentResult{
		Success: false,
		Message: fmt.Sprintf("Stripe charge failed with HTTP %d", resp.StatusCode),
	}, nil
}
