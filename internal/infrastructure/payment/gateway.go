package payment

import (
	"context"
	"errors"

	"custom-gateway/internal/domain"

	"github.com/google/uuid"
)

var (
	// ErrUnavailable marks failures where the charge outcome is unknown:
	// network errors, timeouts, 408/429 and 5xx responses.
	ErrUnavailable = errors.New("payment processor unavailable")
	// ErrCredentialsRejected means the processor refused the api key or secret.
	ErrCredentialsRejected = errors.New("payment processor rejected credentials")
)

type ChargeRequest struct {
	OrderID     uuid.UUID
	Amount      domain.Money
	Email       string
	Credentials domain.GatewayCredentials
	// PaymentMethod is an optional processor token collected at checkout.
	PaymentMethod string
}

// ChargeResponse is the processor's verdict. Success false with a nil
// error is a decline; Reason carries the processor's code.
type ChargeResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
}

// StatusResult answers a reconciliation query. Found is false when the
// processor has no charge for the order.
type StatusResult struct {
	Found    bool
	Response ChargeResponse
}

// PaymentGateway charges with the order ID as idempotency key, so
// repeating a Charge for the same order never charges twice.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResponse, error)
	CheckStatus(ctx context.Context, orderID uuid.UUID, creds domain.GatewayCredentials) (StatusResult, error)
}
