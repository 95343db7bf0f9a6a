package billing

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upsader/BillingAPI/internal/domain"
	gatewaymock "github.com/upsader/BillingAPI/internal/gateway/mock"
	"github.com/upsader/BillingAPI/internal/receipt/memory"
)

// Note on global metrics: billing metrics are registered globally via
// promauto, so state persists across tests. The assertions below measure
// increments (final - initial) to stay order-independent.

func TestProcessOrder_Metrics_SuccessIncrements(t *testing.T) {
	initialPersisted := testutil.ToFloat64(GetOrdersTotal().WithLabelValues("Stripe", statusPersisted))
	initialObservations := testutil.CollectAndCount(GetPaymentDurationSeconds())

	svc := NewService(newTestRegistry(t, fastStripe()), memory.New(), nil, zap.NewNop())

	order := validOrder()
	order.OrderNumber = "ORD-METRICS-" + time.Now().Format("150405.000000000")
	_, err := svc.ProcessOrder(context.Background(), order)
	require.NoError(t, err)

	finalPersisted := testutil.ToFloat64(GetOrdersTotal().WithLabelValues("Stripe", statusPersisted))
	assert.Equal(t, initialPersisted+1, finalPersisted, "persisted counter should increment by 1")

	finalObservations := testutil.CollectAndCount(GetPaymentDurationSeconds())
	assert.GreaterOrEqual(t, finalObservations, initialObservations, "payment duration should be observed")
}

func TestProcessOrder_Metrics_DeclineLabel(t *testing.T) {
	initialDeclined := testutil.ToFloat64(GetOrdersTotal().WithLabelValues("Stripe", statusDeclined))

	declining := gatewaymock.New("Stripe", gatewaymock.WithDelay(time.Millisecond))
	declining.ProcessFunc = func(ctx context.Context, order domain.OrderRequest) (domain.PaymentResult, error) {
		return domain.PaymentResult{Success: false, Message: "insufficient funds"}, nil
	}
	svc := NewService(newTestRegistry(t, declining), memory.New(), nil, zap.NewNop())

	order := domain.OrderRequest{
		OrderNumber:    "ORD-DECLINE-METRIC",
		UserID:         "U1",
		PayableAmount:  decimal.NewFromInt(10),
		PaymentGateway: "Stripe",
	}
	_, err := svc.ProcessOrder(context.Background(), order)
	require.Error(t, err)

	finalDeclined := testutil.ToFloat64(GetOrdersTotal().WithLabelValues("Stripe", statusDeclined))
	assert.Equal(t, initialDeclined+1, finalDeclined)
}

func TestOrdersTotal_GatheredWithLabels(t *testing.T) {
	// Force at least one sample so the family is present in the registry.
	GetOrdersTotal().WithLabelValues("Stripe", statusPersisted).Add(0)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var found *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "billing_orders_total" {
			found = mf
			break
		}
	}
	require.NotNil(t, found, "billing_orders_total should be registered")

	labelNames := map[string]bool{}
	for _, m := range found.GetMetric() {
		for _, lp := range m.GetLabel() {
			labelNames[lp.GetName()] = true
		}
	}
	assert.True(t, labelNames["gateway"], "gateway label expected")
	assert.True(t, labelNames["status"], "status label expected")
}
