package worker

import (
	"context"
	"errors"
	"time"

	"custom-gateway/internal/domain"
	"custom-gateway/internal/events"
	"custom-gateway/internal/infrastructure/payment"
	"custom-gateway/internal/metrics"
	"custom-gateway/internal/repo"
	"custom-gateway/internal/settings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReasonNoCharge is recorded on pending orders the processor never charged.
const ReasonNoCharge = "no charge found"

type StatusChecker interface {
	Confirm(ctx context.Context, orderID uuid.UUID, creds domain.GatewayCredentials) (payment.StatusResult, error)
}

type Options struct {
	Interval    time.Duration
	GracePeriod time.Duration
	BatchSize   int

	// SettleWindow is how long after creation a "not found" answer is
	// treated as inconclusive. Processors whose status lookup lags behind
	// their charge API need it; zero trusts the first answer.
	SettleWindow time.Duration
}

// ReconciliationWorker resolves orders left pending after an unknown
// charge outcome by asking the processor what actually happened.
type ReconciliationWorker struct {
	ledger    repo.OrderLedger
	settings  settings.Store
	checker   StatusChecker
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	opts      Options
}

func NewReconciliationWorker(
	ledger repo.OrderLedger,
	store settings.Store,
	checker StatusChecker,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
	opts Options,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		ledger:    ledger,
		settings:  store,
		checker:   checker,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		opts:      opts,
	}
}

func (rw *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.opts.Interval)
	defer ticker.Stop()

	rw.logger.Info("reconciliation worker started",
		zap.Duration("interval", rw.opts.Interval),
		zap.Duration("grace_period", rw.opts.GracePeriod))

	for {
		select {
		case <-ctx.Done():
			rw.logger.Info("reconciliation worker stopped")
			return
		case <-ticker.C:
			if err := rw.RunOnce(ctx); err != nil {
				rw.logger.Error("reconciliation pass failed", zap.Error(err))
			}
		}
	}
}

// RunOnce makes a single pass over stuck orders.
func (rw *ReconciliationWorker) RunOnce(ctx context.Context) error {
	stuck, err := rw.ledger.FindStuckOrders(ctx, rw.opts.GracePeriod, rw.opts.BatchSize)
	if err != nil {
		return err
	}
	if len(stuck) == 0 {
		return nil
	}

	creds, err := rw.settings.Credentials(ctx)
	if err != nil {
		return err
	}
	if !creds.Complete() {
		return domain.Configuration("cannot reconcile without gateway credentials")
	}

	rw.logger.Info("found stuck orders", zap.Int("count", len(stuck)))
	for i := range stuck {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rw.reconcile(ctx, &stuck[i], creds)
	}
	return nil
}

func (rw *ReconciliationWorker) reconcile(ctx context.Context, order *domain.Order, creds domain.GatewayCredentials) {
	log := rw.logger.With(zap.String("order_id", order.ID.String()))

	status, err := rw.checker.Confirm(ctx, order.ID, creds)
	if err != nil {
		log.Warn("status check failed, retrying next pass", zap.Error(err))
		rw.metrics.Reconciled("error")
		return
	}

	var (
		result string
		txnID  string
		reason string
	)
	switch {
	case status.Found && status.Response.Success:
		txnID = status.Response.TransactionID
		result = "completed"
		err = rw.ledger.MarkComplete(ctx, order.ID, domain.TransactionRecord{
			TransactionID:   txnID,
			ProcessorStatus: status.Response.Status,
		})
	case status.Found:
		reason = firstNonEmpty(status.Response.Reason, status.Response.Status, "declined")
		result = "failed"
		err = rw.ledger.MarkFailed(ctx, order.ID, reason)
	case time.Since(order.CreatedAt) < rw.opts.SettleWindow:
		log.Info("no charge found yet, waiting for the processor to settle",
			zap.Duration("settle_window", rw.opts.SettleWindow))
		rw.metrics.Reconciled("unsettled")
		return
	default:
		reason = ReasonNoCharge
		result = "abandoned"
		err = rw.ledger.MarkFailed(ctx, order.ID, reason)
	}

	if errors.Is(err, domain.ErrInvalidTransition) {
		log.Info("order resolved concurrently, skipping")
		rw.metrics.Reconciled("conflict")
		return
	}
	if err != nil {
		log.Error("failed to record reconciliation", zap.Error(err))
		rw.metrics.Reconciled("error")
		return
	}

	log.Info("order reconciled", zap.String("result", result), zap.String("reason", reason))
	rw.metrics.Reconciled(result)

	resolved, err := rw.ledger.FindById(ctx, order.ID)
	if err != nil {
		log.Warn("reload after reconciliation failed", zap.Error(err))
		return
	}
	event := events.OrderOutcome{
		OrderID:       resolved.ID,
		Status:        string(resolved.Status),
		Amount:        resolved.Amount.Value.String(),
		Currency:      resolved.Amount.Currency,
		TransactionID: txnID,
		Reason:        reason,
		Source:        "reconciliation",
		Timestamp:     time.Now().UTC(),
	}
	if err := rw.publisher.PublishOutcome(ctx, event); err != nil {
		log.Warn("outcome event not published", zap.Error(err))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
