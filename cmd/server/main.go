package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"custom-gateway/internal/config"
	"custom-gateway/internal/database"
	"custom-gateway/internal/domain"
	"custom-gateway/internal/events"
	"custom-gateway/internal/handler"
	"custom-gateway/internal/infrastructure/payment"
	"custom-gateway/internal/logger"
	"custom-gateway/internal/metrics"
	"custom-gateway/internal/repo"
	"custom-gateway/internal/security"
	"custom-gateway/internal/service"
	"custom-gateway/internal/settings"
	"custom-gateway/internal/telemetry"
	"custom-gateway/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const serviceName = "custom-gateway"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatal("failed to build logger: ", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(cfg.TracingEnabled, serviceName, os.Stdout)
	if err != nil {
		zl.Fatal("failed to set up tracing", zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, cfg.Database.DSN(), zl)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		zl.Fatal("failed to migrate database", zap.Error(err))
	}

	store, writer, err := newSettingsStore(ctx, cfg, db)
	if err != nil {
		zl.Fatal("failed to set up settings store", zap.Error(err))
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.Kafka.Brokers != "" {
		publisher = events.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, zl)
	}
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ledger := repo.NewOrderLedger(db.DB())
	tokens := security.NewTokens(cfg.Security.TokenSecret, cfg.Security.TokenTTL)
	adapter := service.NewGatewayAdapter(newGateway(cfg), cfg.Gateway.MaxRetries, cfg.Gateway.RetryBackoff, m, zl)
	orderService := service.NewOrderService(
		service.NewIntakeService(ledger, tokens, zl),
		ledger,
		store,
		adapter,
		publisher,
		m,
		zl,
		service.OrderServiceConfig{
			SuccessURL:  cfg.Gateway.SuccessURL,
			CheckoutURL: cfg.Gateway.CheckoutURL,
			StaleAfter:  cfg.StaleAfter(),
		},
	)

	h, err := handler.New(orderService, tokens, ledger, writer, db, zl)
	if err != nil {
		zl.Fatal("failed to build handlers", zap.Error(err))
	}
	router := h.Router(handler.RouterConfig{
		ServiceName:    serviceName,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RateLimit:      cfg.HTTP.RateLimit,
		RateBurst:      cfg.HTTP.RateBurst,
		AdminToken:     cfg.Settings.AdminToken,
		Metrics:        m.Handler(),
	})

	reconciler := worker.NewReconciliationWorker(ledger, store, adapter, publisher, m, zl, worker.Options{
		Interval:     cfg.Worker.Interval,
		GracePeriod:  cfg.Worker.GracePeriod,
		BatchSize:    cfg.Worker.BatchSize,
		SettleWindow: cfg.Worker.SettleWindow,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		reconciler.Run(ctx)
	}()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zl.Info("starting HTTP server",
			zap.String("port", cfg.Port),
			zap.String("processor", cfg.Gateway.Processor),
			zap.String("settings_source", cfg.Settings.Source))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	wg.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		zl.Warn("tracer shutdown failed", zap.Error(err))
	}
	zl.Info("server exited")
}

func newGateway(cfg *config.Config) payment.PaymentGateway {
	switch cfg.Gateway.Processor {
	case "http":
		return payment.NewHTTPGateway(cfg.Gateway.BaseURL, cfg.Gateway.RequestTimeout)
	case "stripe":
		return payment.NewStripeGateway(cfg.Gateway.BaseURL, cfg.Gateway.RequestTimeout)
	default:
		return payment.NewMockGateway(payment.WithLatency(100 * time.Millisecond))
	}
}

// newSettingsStore returns the configured store and, for Postgres, the
// writer behind the admin API.
func newSettingsStore(ctx context.Context, cfg *config.Config, db database.Service) (settings.Store, settings.Writer, error) {
	switch cfg.Settings.Source {
	case "secretsmanager":
		sm, err := settings.NewSecretsManager(ctx, cfg.Settings.SecretName, cfg.Settings.AWSEndpoint)
		if err != nil {
			return nil, nil, err
		}
		return sm, nil, nil
	case "env":
		return settings.NewStatic(domain.GatewayCredentials{
			APIKey:   cfg.Settings.APIKey,
			Secret:   cfg.Settings.Secret,
			TestMode: cfg.Settings.TestMode,
		}), nil, nil
	default:
		pg := settings.NewPostgres(db.DB())
		return pg, pg, nil
	}
}
