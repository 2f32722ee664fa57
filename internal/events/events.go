package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OrderOutcome is published when an order reaches a terminal status.
type OrderOutcome struct {
	EventID       string    `json:"event_id"`
	OrderID       uuid.UUID `json:"order_id"`
	Status        string    `json:"status"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id,omitempty"`
}

type Publisher interface {
	PublishOutcome(ctx context.Context, event OrderOutcome) error
	Close() error
}

// Noop drops every event; used when no brokers are configured.
type Noop struct{}

func (Noop) PublishOutcome(context.Context, OrderOutcome) error { return nil }
func (Noop) Close() error { return nil }
