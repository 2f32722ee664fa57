package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"custom-gateway/internal/domain"
	"custom-gateway/internal/events"
	"custom-gateway/internal/logger"
	"custom-gateway/internal/metrics"
	"custom-gateway/internal/repo"
	"custom-gateway/internal/settings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ReasonNotConfigured is recorded on orders that could not be charged
// because the gateway credentials were missing.
const ReasonNotConfigured = "gateway not configured"

// OrderProcessor is the capability a host invokes for the custom gateway.
type OrderProcessor interface {
	Intake(ctx context.Context, sub Submission) (uuid.UUID, error)
	Process(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
}

type CheckoutResult struct {
	OrderID  uuid.UUID          `json:"order_id"`
	Status   domain.OrderStatus `json:"status"`
	Redirect string             `json:"redirect"`
}

type OrderService struct {
	intake    *IntakeService
	ledger    repo.OrderLedger
	settings  settings.Store
	adapter   *GatewayAdapter
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time

	successURL  string
	checkoutURL string
	staleAfter  time.Duration
}

type OrderServiceConfig struct {
	SuccessURL  string
	CheckoutURL string

	// StaleAfter stops Process from charging orders pending longer than
	// this; reconciliation owns them from then on. Zero disables the check.
	StaleAfter time.Duration
}

func NewOrderService(
	intake *IntakeService,
	ledger repo.OrderLedger,
	store settings.Store,
	adapter *GatewayAdapter,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg OrderServiceConfig,
) *OrderService {
	return &OrderService{
		intake:      intake,
		ledger:      ledger,
		settings:    store,
		adapter:     adapter,
		publisher:   publisher,
		metrics:     m,
		logger:      logger,
		tracer:      otel.Tracer("custom-gateway/service"),
		now:         time.Now,
		successURL:  cfg.SuccessURL,
		checkoutURL: cfg.CheckoutURL,
		staleAfter:  cfg.StaleAfter,
	}
}

func (s *OrderService) Intake(ctx context.Context, sub Submission) (uuid.UUID, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Intake")
	defer span.End()

	id, err := s.intake.Intake(ctx, sub)
	if err != nil {
		recordSpanError(span, err)
		return uuid.Nil, err
	}
	span.SetAttributes(attribute.String("order.id", id.String()))
	return id, nil
}

// Process charges a pending order once and records the outcome. A
// transient failure leaves the order pending for reconciliation and is
// returned together with the order.
func (s *OrderService) Process(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Process",
		trace.WithAttributes(attribute.String("order.id", orderID.String())))
	defer span.End()
	log := logger.FromContext(ctx, s.logger).With(zap.String("order_id", orderID.String()))

	order, err := s.ledger.FindById(ctx, orderID)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if order.Status != domain.OrderPending {
		err := domain.InvalidTransition(orderID, order.Status, domain.OrderComplete)
		recordSpanError(span, err)
		return order, err
	}
	if s.staleAfter > 0 && s.now().Sub(order.CreatedAt) >= s.staleAfter {
		err := &domain.Error{
			Kind:    domain.KindInvalidTransition,
			Message: fmt.Sprintf("order %s has been pending since %s and is left to reconciliation", orderID, order.CreatedAt.Format(time.RFC3339)),
		}
		recordSpanError(span, err)
		return order, err
	}

	creds, err := s.settings.Credentials(ctx)
	if err != nil {
		recordSpanError(span, err)
		return order, fmt.Errorf("load gateway credentials: %w", err)
	}
	if !creds.Complete() {
		log.Error("gateway credentials incomplete, failing order")
		cfgErr := domain.Configuration("gateway api key and secret must be configured")
		return s.fail(context.WithoutCancel(ctx), span, log, order, ReasonNotConfigured, cfgErr)
	}

	txn, chargeErr := s.adapter.Charge(ctx, order, creds)
	// the charge may have happened; the ledger write must outlive the caller
	commitCtx := context.WithoutCancel(ctx)

	switch {
	case chargeErr == nil:
		if err := s.ledger.MarkComplete(commitCtx, orderID, *txn); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				return s.completeConflict(commitCtx, span, log, orderID, txn, err)
			}
			recordSpanError(span, err)
			return order, fmt.Errorf("mark order complete: %w", err)
		}
		log.Info("payment complete", zap.String("transaction_id", txn.TransactionID))
		return s.finish(ctx, span, orderID, txn.TransactionID, "")

	case errors.Is(chargeErr, domain.ErrPaymentDeclined):
		var de *domain.Error
		errors.As(chargeErr, &de)
		log.Info("payment declined", zap.String("reason", de.Message))
		return s.fail(commitCtx, span, log, order, de.Message, chargeErr)

	case errors.Is(chargeErr, domain.ErrConfiguration):
		log.Error("processor rejected gateway credentials")
		return s.fail(commitCtx, span, log, order, ReasonNotConfigured, chargeErr)

	default:
		log.Warn("charge outcome unknown, leaving order pending for reconciliation", zap.Error(chargeErr))
		s.metrics.OrderOutcome(string(domain.OrderPending))
		recordSpanError(span, chargeErr)
		return order, chargeErr
	}
}

// Checkout runs Intake then Process and picks where to send the buyer.
func (s *OrderService) Checkout(ctx context.Context, sub Submission) (CheckoutResult, error) {
	id, err := s.Intake(ctx, sub)
	if err != nil {
		return CheckoutResult{Redirect: s.checkoutURL}, err
	}

	order, err := s.Process(ctx, id)
	result := CheckoutResult{OrderID: id, Status: domain.OrderPending, Redirect: s.checkoutURL}
	if order != nil {
		result.Status = order.Status
	}
	if err != nil {
		return result, err
	}
	if order.Status == domain.OrderComplete {
		result.Redirect = successRedirect(s.successURL, order.PurchaseKey)
	}
	return result, nil
}

func (s *OrderService) fail(ctx context.Context, span trace.Span, log *zap.Logger, order *domain.Order, reason string, cause error) (*domain.Order, error) {
	recordSpanError(span, cause)
	if err := s.ledger.MarkFailed(ctx, order.ID, reason); err != nil {
		log.Error("failed to mark order failed", zap.Error(err))
		return order, errors.Join(cause, fmt.Errorf("mark order failed: %w", err))
	}
	updated, err := s.finish(ctx, span, order.ID, "", reason)
	if err != nil {
		return order, errors.Join(cause, err)
	}
	return updated, cause
}

// completeConflict handles a charge that succeeded on an order someone
// else resolved meanwhile. Only a completion by that other writer is
// consistent with the money taken.
func (s *OrderService) completeConflict(ctx context.Context, span trace.Span, log *zap.Logger, orderID uuid.UUID, txn *domain.TransactionRecord, cause error) (*domain.Order, error) {
	current, err := s.ledger.FindById(ctx, orderID)
	if err != nil {
		recordSpanError(span, err)
		return nil, errors.Join(cause, fmt.Errorf("reload order: %w", err))
	}
	if current.Status == domain.OrderComplete {
		log.Warn("order already completed", zap.String("transaction_id", txn.TransactionID))
		return current, nil
	}

	log.Error("charge succeeded but order was already resolved",
		zap.String("transaction_id", txn.TransactionID),
		zap.String("processor_status", txn.ProcessorStatus),
		zap.String("status", string(current.Status)),
		zap.String("failure_reason", current.FailureReason))
	s.metrics.OrderOutcome("conflict")
	err = fmt.Errorf("charge %s captured for %s order %s: %w", txn.TransactionID, current.Status, orderID, cause)
	recordSpanError(span, err)
	publishOutcome(ctx, s.publisher, s.logger, current, txn.TransactionID, "charged after resolution", "checkout")
	return current, err
}

// finish reloads the order, publishes its outcome and counts it.
func (s *OrderService) finish(ctx context.Context, span trace.Span, orderID uuid.UUID, transactionID, reason string) (*domain.Order, error) {
	order, err := s.ledger.FindById(context.WithoutCancel(ctx), orderID)
	if err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}
	span.SetAttributes(attribute.String("order.status", string(order.Status)))
	s.metrics.OrderOutcome(string(order.Status))
	publishOutcome(ctx, s.publisher, s.logger, order, transactionID, reason, "checkout")
	return order, nil
}

func publishOutcome(ctx context.Context, p events.Publisher, log *zap.Logger, order *domain.Order, transactionID, reason, source string) {
	event := events.OrderOutcome{
		OrderID:       order.ID,
		Status:        string(order.Status),
		Amount:        order.Amount.Value.String(),
		Currency:      order.Amount.Currency,
		TransactionID: transactionID,
		Reason:        reason,
		Source:        source,
		Timestamp:     time.Now().UTC(),
	}
	if err := p.PublishOutcome(ctx, event); err != nil {
		log.Warn("outcome event not published", zap.String("order_id", order.ID.String()), zap.Error(err))
	}
}

func successRedirect(base, purchaseKey string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("payment_key", purchaseKey)
	u.RawQuery = q.Encode()
	return u.String()
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
