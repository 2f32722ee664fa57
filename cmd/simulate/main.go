package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"custom-gateway/internal/config"
	"custom-gateway/internal/database"
	"custom-gateway/internal/domain"
	"custom-gateway/internal/events"
	"custom-gateway/internal/infrastructure/payment"
	"custom-gateway/internal/metrics"
	"custom-gateway/internal/repo"
	"custom-gateway/internal/security"
	"custom-gateway/internal/service"
	"custom-gateway/internal/settings"
	"custom-gateway/internal/worker"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// simulate pushes orders through a flaky mock processor, then lets the
// reconciliation worker clean up the phantom charges.
func main() {
	orders := flag.Int("orders", 20, "number of checkouts to simulate")
	usePostgres := flag.Bool("postgres", false, "record orders in the configured Postgres instead of memory")
	flag.Parse()

	ctx := context.Background()
	zl := zap.NewNop()

	ledger := repo.NewMemoryLedger()
	if *usePostgres {
		cfg, err := config.Load()
		if err != nil {
			log.Fatal(err)
		}
		db, err := database.NewPostgres(ctx, cfg.Database.DSN(), zl)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			log.Fatal(err)
		}
		ledger = repo.NewOrderLedger(db.DB())
	}

	gateway := payment.NewMockGateway(
		payment.WithRandomOutcomes(70, 20),
		payment.WithLatency(100*time.Millisecond),
		payment.WithDeclineReason("card_declined"),
	)
	store := settings.NewStatic(domain.GatewayCredentials{APIKey: "pk_sim", Secret: "sk_sim", TestMode: true})
	tokens := security.NewTokens("simulation", time.Minute)
	m := metrics.New(prometheus.NewRegistry())
	adapter := service.NewGatewayAdapter(gateway, 0, 0, m, zl)
	orderService := service.NewOrderService(
		service.NewIntakeService(ledger, tokens, zl),
		ledger, store, adapter, events.Noop{}, m, zl,
		service.OrderServiceConfig{SuccessURL: "http://localhost:3000/success", CheckoutURL: "http://localhost:3000/checkout"},
	)

	fmt.Printf("--- STARTING SIMULATION (%d ORDERS) ---\n", *orders)
	for i := 0; i < *orders; i++ {
		token, _, err := tokens.Issue()
		if err != nil {
			log.Fatal(err)
		}
		res, err := orderService.Checkout(ctx, service.Submission{
			Amount:          fmt.Sprintf("%d.99", 10+i),
			Currency:        "USD",
			Email:           fmt.Sprintf("buyer%d@example.com", i),
			AntiReplayToken: token,
		})

		fmt.Printf("[%d] order %s ... ", i+1, res.OrderID)
		if err != nil {
			fmt.Printf("FAILED: %v\n", err)
		} else {
			fmt.Printf("SUCCESS\n")
		}

		// a phantom charge shows up here as pending with money taken
		if res.OrderID != uuid.Nil {
			fresh, err := ledger.FindById(ctx, res.OrderID)
			if err == nil {
				fmt.Printf("    -> ledger status: %s\n", fresh.Status)
			}
		}
	}

	fmt.Println("--- RECONCILING ---")
	reconciler := worker.NewReconciliationWorker(ledger, store, adapter, events.Noop{}, m, zl, worker.Options{
		Interval:    time.Second,
		GracePeriod: 0,
		BatchSize:   100,
	})
	if err := reconciler.RunOnce(ctx); err != nil {
		log.Fatal(err)
	}

	stuck, err := ledger.FindStuckOrders(ctx, 0, 100)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("charged orders at processor: %d, still pending: %d\n", gateway.Charged(), len(stuck))
}
