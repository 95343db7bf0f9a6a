package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upsader/BillingAPI/internal/domain"
)

func testOrder() domain.OrderRequest {
	return domain.OrderRequest{
		OrderNumber:    "ORD1",
		UserID:         "U1",
		PayableAmount:  decimal.RequireFromString("100.00"),
		PaymentGateway: "Stripe",
		Description:    "widgets",
	}
}

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*Gateway, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gw := New("sk_test_123", srv.Client())
	gw.SetBaseURL(srv.URL)
	gw.retryDelay = time.Millisecond
	return gw, srv
}

func TestProcessPayment_SuccessfulCharge(t *testing.T) {
	var gotAuth, gotIdem, gotAmount string
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")
		gotAmount = r.PostFormValue("amount")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "ch_123", "status": "succeeded"}`))
	})

	result, err := gw.ProcessPayment(context.Background(), testOrder())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "ch_123", result.TransactionID)
	assert.Equal(t, "Bearer sk_test_123", gotAuth)
	assert.NotEmpty(t, gotIdem)
	assert.Equal(t, "10000", gotAmount, "amount should be sent in cents")
}

func TestProcessPayment_CardDeclinedIsResultNotError(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error": {"type": "card_error", "code": "card_declined", "message": "Your card was declined.", "decline_code": "insufficient_funds"}}`))
	})

	result, err := gw.ProcessPayment(context.Background(), testOrder())
	require.NoError(t, err, "a decline is a normal outcome, not a transport error")

	assert.False(t, result.Success)
	assert.Equal(t, "Your card was declined.", result.Message)
	assert.Empty(t, result.TransactionID)
}

func TestProcessPayment_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"id": "ch_retry", "status": "succeeded"}`))
	})

	result, err := gw.ProcessPayment(context.Background(), testOrder())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "ch_retry", result.TransactionID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestProcessPayment_ExhaustedRetriesIsTransportError(t *testing.T) {
	var calls atomic.Int32
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := gw.ProcessPayment(context.Background(), testOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")
	assert.Equal(t, int32(defaultRetryAttempts+1), calls.Load())
}

func TestProcessPayment_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 5; i++ {
		_, err := gw.ProcessPayment(context.Background(), testOrder())
		require.Error(t, err)
	}

	_, err := gw.ProcessPayment(context.Background(), testOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
}

func TestNew_EmptyKeyPanics(t *testing.T) {
	assert.Panics(t, func() { New("", nil) })
}
