package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/upsader/BillingAPI/internal/billing"
	"github.com/upsader/BillingAPI/internal/config"
	"github.com/upsader/BillingAPI/internal/domain"
	"github.com/upsader/BillingAPI/internal/gateway"
	"github.com/upsader/BillingAPI/internal/gateway/mock"
	"github.com/upsader/BillingAPI/internal/gateway/stripe"
	"github.com/upsader/BillingAPI/internal/monitor"
	"github.com/upsader/BillingAPI/internal/receipt"
	"github.com/upsader/BillingAPI/internal/receipt/memory"
	"github.com/upsader/BillingAPI/internal/receipt/postgres"
	"github.com/upsader/BillingAPI/internal/reporting"
)

// server bundles the dependency graph built once at startup. The billing
// service, registry, and store are constructed here and shared by all
// requests; handlers close over this struct.
type server struct {
	service  *billing.Service
	recorder *reporting.Recorder
	monitor  *monitor.ContractMonitor
	logger   *zap.Logger
}

// statusForError maps the billing error taxonomy to HTTP status codes.
// This mapping is the boundary's concern; the service never sees it.
func statusForError(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindInvalidArgument:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindPaymentProcessing:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// maxRequestBodyBytes bounds the process-order payload; order requests are
// a few hundred bytes.
const maxRequestBodyBytes = 1 << 20

func (s *server) processOrderHandler(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	if !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body is not valid JSON"})
		return
	}

	valid, schemaErrs, err := s.monitor.Validate(body)
	if err != nil {
		s.logger.Error("contract validation error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": monitor.FormatErrors(schemaErrs)})
		return
	}

	var order domain.OrderRequest
	if err := json.Unmarshal(body, &order); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format: " + err.Error()})
		return
	}

	rcpt, err := s.service.ProcessOrder(c.Request.Context(), order)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": errorMessage(err)})
		return
	}
	c.JSON(http.StatusOK, rcpt)
}

func (s *server) getReceiptHandler(c *gin.Context) {
	rcpt, err := s.service.GetReceipt(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": errorMessage(err)})
		return
	}
	c.JSON(http.StatusOK, rcpt)
}

func (s *server) reportHandler(c *gin.Context) {
	c.JSON(http.StatusOK, reporting.GenerateRetrospective(s.recorder.Entries()))
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// errorMessage returns the caller-facing message of a billing error,
// hiding wrapped causes for unclassified failures.
func errorMessage(err error) string {
	var be *domain.Error
	if errors.As(err, &be) {
		if be.Kind == domain.KindStorage || be.Kind == domain.KindTransport {
			return "internal server error"
		}
		return be.Message
	}
	return "internal server error"
}

func setupRouter(s *server) *gin.Engine {
	engine := gin.Default()
	engine.Use(otelgin.Middleware("billing-api"))

	api := engine.Group("/api/billing")
	api.POST("/process-order", s.processOrderHandler)
	api.GET("/receipts/:orderNumber", s.getReceiptHandler)
	api.GET("/report", s.reportHandler)

	engine.GET("/health", healthHandler)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return engine
}

// buildRegistry wires payment gateways per the configured mode. Mock mode
// registers the deterministic Stripe and PayPal stand-ins; live mode
// registers the real Stripe adapter and keeps the PayPal mock until a live
// PayPal integration lands.
func buildRegistry(cfg config.Config, logger *zap.Logger) (*gateway.Registry, error) {
	registry := gateway.NewRegistry()

	var mockOpts []mock.Option
	if cfg.MockDeclineRule != "" {
		mockOpts = append(mockOpts, mock.WithDeclineRule(cfg.MockDeclineRule))
	}

	switch cfg.GatewayMode {
	case config.GatewayModeLive:
		if cfg.StripeAPIKey == "" {
			return nil, errors.New("live gateway mode requires BILLING_STRIPE_API_KEY")
		}
		if err := registry.Register("Stripe", stripe.New(cfg.StripeAPIKey, nil)); err != nil {
			return nil, err
		}
		if err := registry.Register("PayPal", mock.NewPayPal(mockOpts...)); err != nil {
			return nil, err
		}
	default:
		if err := registry.Register("Stripe", mock.NewStripe(mockOpts...)); err != nil {
			return nil, err
		}
		if err := registry.Register("PayPal", mock.NewPayPal(mockOpts...)); err != nil {
			return nil, err
		}
	}

	logger.Info("payment gateways registered",
		zap.String("mode", cfg.GatewayMode),
		zap.Strings("gateways", registry.IDs()))
	return registry, nil
}

func buildStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (receipt.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store, err := postgres.New(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	default:
		return memory.New(), func() {}, nil
	}
}

func initTracing(logger *zap.Logger) func(context.Context) error {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		logger.Fatal("failed to create trace exporter", zap.Error(err))
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()
	ctx := context.Background()

	shutdownTracing := initTracing(logger)
	defer shutdownTracing(ctx)

	registry, err := buildRegistry(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build gateway registry", zap.Error(err))
	}

	store, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build receipt store", zap.Error(err))
	}
	defer closeStore()

	contractMonitor, err := monitor.NewContractMonitor()
	if err != nil {
		logger.Fatal("failed to compile order schema", zap.Error(err))
	}

	recorder := reporting.NewRecorder()
	srv := &server{
		service:  billing.NewService(registry, store, recorder, logger),
		recorder: recorder,
		monitor:  contractMonitor,
		logger:   logger,
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: setupRouter(srv),
	}

	go func() {
		logger.Info("starting server", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownGracePeriod)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
