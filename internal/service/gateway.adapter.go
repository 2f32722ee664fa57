package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"custom-gateway/internal/domain"
	"custom-gateway/internal/infrastructure/payment"
	"custom-gateway/internal/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GatewayAdapter turns one order into one idempotent processor charge and
// interprets the answer. It never changes order status.
type GatewayAdapter struct {
	gateway        payment.PaymentGateway
	maxRetries     uint64
	initialBackoff time.Duration
	metrics        *metrics.Metrics
	logger         *zap.Logger
}

func NewGatewayAdapter(gateway payment.PaymentGateway, maxRetries uint64, initialBackoff time.Duration, m *metrics.Metrics, logger *zap.Logger) *GatewayAdapter {
	return &GatewayAdapter{
		gateway:        gateway,
		maxRetries:     maxRetries,
		initialBackoff: initialBackoff,
		metrics:        m,
		logger:         logger,
	}
}

// Charge returns the transaction record of an approved charge. Declines
// come back as payment declined errors and are never retried. Unknown
// outcomes are retried up to maxRetries times with the same idempotency
// key, then reported as transient.
func (a *GatewayAdapter) Charge(ctx context.Context, order *domain.Order, creds domain.GatewayCredentials) (*domain.TransactionRecord, error) {
	if !creds.Complete() {
		return nil, domain.Configuration("gateway api key and secret must be configured")
	}

	req := payment.ChargeRequest{
		OrderID:       order.ID,
		Amount:        order.Amount,
		Email:         order.Email,
		Credentials:   creds,
		PaymentMethod: paymentMethod(order),
	}

	var resp payment.ChargeResponse
	operation := func() error {
		start := time.Now()
		r, err := a.gateway.Charge(ctx, req)
		switch {
		case errors.Is(err, payment.ErrCredentialsRejected):
			a.metrics.ObserveCharge("rejected", time.Since(start))
			return backoff.Permanent(domain.Configuration("processor rejected the gateway credentials"))
		case err != nil:
			a.metrics.ObserveCharge("unavailable", time.Since(start))
			return err
		case !r.Success:
			a.metrics.ObserveCharge("declined", time.Since(start))
		case r.TransactionID == "":
			a.metrics.ObserveCharge("unavailable", time.Since(start))
			return fmt.Errorf("%w: approved charge without transaction id", payment.ErrUnavailable)
		default:
			a.metrics.ObserveCharge("success", time.Since(start))
		}
		resp = r
		return nil
	}

	notify := func(err error, next time.Duration) {
		a.logger.Warn("charge outcome unknown, retrying",
			zap.String("order_id", order.ID.String()),
			zap.Duration("backoff", next),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(operation, a.policy(ctx), notify); err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return nil, de
		}
		return nil, domain.TransientGateway(err)
	}

	if !resp.Success {
		return nil, domain.Declined(resp.Reason)
	}
	return &domain.TransactionRecord{
		OrderID:         order.ID,
		TransactionID:   resp.TransactionID,
		ProcessorStatus: resp.Status,
	}, nil
}

// Confirm asks the processor what happened to an order's charge.
func (a *GatewayAdapter) Confirm(ctx context.Context, orderID uuid.UUID, creds domain.GatewayCredentials) (payment.StatusResult, error) {
	if !creds.Complete() {
		return payment.StatusResult{}, domain.Configuration("gateway api key and secret must be configured")
	}
	return a.gateway.CheckStatus(ctx, orderID, creds)
}

func (a *GatewayAdapter) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.initialBackoff
	return backoff.WithContext(backoff.WithMaxRetries(b, a.maxRetries), ctx)
}

func paymentMethod(order *domain.Order) string {
	if pm, ok := order.Purchaser["payment_method"].(string); ok {
		return pm
	}
	return ""
}
