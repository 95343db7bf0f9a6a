package billing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_orders_total",
			Help: "Processed order attempts by gateway and terminal status.",
		},
		[]string{"gateway", "status"},
	)

	paymentDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billing_payment_duration_seconds",
			Help:    "Latency of gateway payment invocations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"gateway"},
	)
)

// Terminal status labels for billing_orders_total.
const (
	statusPersisted = "persisted"
	statusDeclined  = "declined"
	statusDuplicate = "duplicate_rejected"
	statusError     = "error"
)

// GetOrdersTotal exposes the orders counter for tests.
func GetOrdersTotal() *prometheus.CounterVec {
	return ordersTotal
}

// GetPaymentDurationSeconds exposes the payment latency histogram for tests.
func GetPaymentDurationSeconds() *prometheus.HistogramVec {
	return paymentDurationSeconds
}
