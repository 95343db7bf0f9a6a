// Package billing contains the order-processing core: it validates an
// incoming order, resolves the payment gateway, invokes the charge,
// enforces order-number uniqueness, and persists the resulting receipt.
package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/upsader/BillingAPI/internal/domain"
	"github.com/upsader/BillingAPI/internal/gateway"
	"github.com/upsader/BillingAPI/internal/receipt"
	"github.com/upsader/BillingAPI/internal/reporting"
)

// Service coordinates validation, payment, and persistence for one order.
// It holds no mutable state of its own; every invocation is a single
// deterministic attempt with no internal retries.
type Service struct {
	registry *gateway.Registry
	store    receipt.Store
	recorder *reporting.Recorder
	logger   *zap.Logger
}

// NewService creates a Service. The recorder may be nil when retrospective
// reporting is not wanted.
func NewService(registry *gateway.Registry, store receipt.Store, recorder *reporting.Recorder, logger *zap.Logger) *Service {
	if registry == nil {
		panic("gateway registry cannot be nil")
	}
	if store == nil {
		panic("receipt store cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry: registry,
		store:    store,
		recorder: recorder,
		logger:   logger,
	}
}

// record feeds the retrospective recorder, when one is configured.
func (s *Service) record(order domain.OrderRequest, status string, err error) {
	if s.recorder == nil {
		return
	}
	entry := reporting.Entry{
		Timestamp:   time.Now().UTC(),
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      status,
		Amount:      order.PayableAmount,
		Gateway:     order.PaymentGateway,
	}
	if err != nil {
		entry.ErrorKind = domain.KindOf(err).String()
		entry.ErrorMessage = err.Error()
	}
	s.recorder.Record(entry)
}

// ProcessOrder runs the payment pipeline for one order and returns the
// persisted receipt.
//
// The duplicate-order-number check deliberately runs after the gateway
// charge, matching the system's observed behavior: a duplicate submission
// is charged with the provider and then rejected without a receipt, and
// the charge is not reversed. Callers retrying a failed submission must
// use a fresh order number.
//
// Cancellation is propagated to the gateway and the store, but the
// pipeline does not abort between a completed charge and persistence; if
// the caller goes away mid-charge the provider may still complete it,
// an at-least-once-charge risk accepted here.
func (s *Service) ProcessOrder(ctx context.Context, order domain.OrderRequest) (*domain.Receipt, error) {
	tracer := otel.Tracer("billing")
	ctx, span := tracer.Start(ctx, "Billing.ProcessOrder")
	defer span.End()

	s.logger.Info("processing order",
		zap.String("order_number", order.OrderNumber),
		zap.String("gateway", order.PaymentGateway))

	if err := validateOrder(order); err != nil {
		ordersTotal.WithLabelValues(order.PaymentGateway, statusError).Inc()
		s.record(order, reporting.StatusError, err)
		return nil, err
	}

	gw, err := s.registry.Resolve(order.PaymentGateway)
	if err != nil {
		s.logger.Warn("gateway resolution failed",
			zap.String("order_number", order.OrderNumber),
			zap.String("gateway", order.PaymentGateway))
		ordersTotal.WithLabelValues(order.PaymentGateway, statusError).Inc()
		s.record(order, reporting.StatusError, err)
		return nil, err
	}

	payStart := time.Now()
	result, err := gw.ProcessPayment(ctx, order)
	paymentDurationSeconds.WithLabelValues(order.PaymentGateway).Observe(time.Since(payStart).Seconds())
	if err != nil {
		// Transport failure: no payment outcome exists, distinct from a decline.
		s.logger.Error("gateway invocation failed",
			zap.String("order_number", order.OrderNumber),
			zap.String("gateway", order.PaymentGateway),
			zap.Error(err))
		ordersTotal.WithLabelValues(order.PaymentGateway, statusError).Inc()
		wrapped := domain.Wrap(domain.KindTransport, err, "payment gateway %s unavailable", order.PaymentGateway)
		s.record(order, reporting.StatusError, wrapped)
		return nil, wrapped
	}

	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = "payment failed for order " + order.OrderNumber
		}
		s.logger.Info("payment declined",
			zap.String("order_number", order.OrderNumber),
			zap.String("reason", msg))
		ordersTotal.WithLabelValues(order.PaymentGateway, statusDeclined).Inc()
		declineErr := domain.E(domain.KindPaymentProcessing, "%s", msg)
		s.record(order, reporting.StatusDeclined, declineErr)
		return nil, declineErr
	}

	exists, err := s.store.Exists(ctx, order.OrderNumber)
	if err != nil {
		ordersTotal.WithLabelValues(order.PaymentGateway, statusError).Inc()
		s.record(order, reporting.StatusError, err)
		return nil, err
	}
	if exists {
		s.logger.Warn("order number already exists, payment not reversed",
			zap.String("order_number", order.OrderNumber),
			zap.String("transaction_id", result.TransactionID))
		ordersTotal.WithLabelValues(order.PaymentGateway, statusDuplicate).Inc()
		dupErr := domain.E(domain.KindValidation, "order number %s already exists", order.OrderNumber)
		s.record(order, reporting.StatusDuplicate, dupErr)
		return nil, dupErr
	}

	rcpt := domain.Receipt{
		ID:             uuid.NewString(),
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		Amount:         order.PayableAmount,
		PaymentGateway: order.PaymentGateway,
		Description:    order.Description,
		ProcessedDate:  time.Now().UTC(),
		TransactionID:  result.TransactionID,
	}

	batch := s.store.Begin()
	if err := batch.Add(ctx, rcpt); err != nil {
		ordersTotal.WithLabelValues(order.PaymentGateway, statusError).Inc()
		s.record(order, reporting.StatusError, err)
		return nil, err
	}
	if err := batch.Commit(ctx); err != nil {
		ordersTotal.WithLabelValues(order.PaymentGateway, statusError).Inc()
		s.record(order, reporting.StatusError, err)
		return nil, err
	}

	s.logger.Info("receipt persisted",
		zap.String("order_number", rcpt.OrderNumber),
		zap.String("receipt_id", rcpt.ID),
		zap.String("transaction_id", rcpt.TransactionID))
	ordersTotal.WithLabelValues(order.PaymentGateway, statusPersisted).Inc()
	s.record(order, reporting.StatusPersisted, nil)
	return &rcpt, nil
}

// GetReceipt returns the receipt persisted for orderNumber.
func (s *Service) GetReceipt(ctx context.Context, orderNumber string) (*domain.Receipt, error) {
	ctx, span := otel.Tracer("billing").Start(ctx, "Billing.GetReceipt")
	defer span.End()

	rcpt, err := s.store.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if rcpt == nil {
		s.logger.Warn("receipt not found", zap.String("order_number", orderNumber))
		return nil, domain.E(domain.KindNotFound, "receipt for order %s not found", orderNumber)
	}
	return rcpt, nil
}

// validateOrder checks the four required fields in a fixed order and
// reports the first failing one.
func validateOrder(order domain.OrderRequest) error {
	if order.OrderNumber == "" {
		return domain.E(domain.KindValidation, "order number is required")
	}
	if order.UserID == "" {
		return domain.E(domain.KindValidation, "user id is required")
	}
	if order.PayableAmount.Sign() <= 0 {
		return domain.E(domain.KindValidation, "payable amount must be greater than zero")
	}
	if order.PaymentGateway == "" {
		return domain.E(domain.KindValidation, "payment gateway is required")
	}
	return nil
}
