package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPending  OrderStatus = "pending"
	OrderComplete OrderStatus = "complete"
	OrderFailed   OrderStatus = "failed"
)

// GatewayID is the identifier the checkout uses to select this gateway.
const GatewayID = "custom_gateway"

func (s OrderStatus) Terminal() bool {
	return s == OrderComplete || s == OrderFailed
}

// CanTransition reports whether an order in status s may move to next.
// Only pending orders move, and only to a terminal status.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	return s == OrderPending && next.Terminal()
}

type Order struct {
	ID            uuid.UUID         `json:"id"`
	Amount        Money             `json:"amount"`
	Email         string            `json:"email"`
	Purchaser     map[string]any    `json:"purchaser_info,omitempty"`
	Cart          []json.RawMessage `json:"cart"`
	Gateway       string            `json:"gateway"`
	PurchaseKey   string            `json:"purchase_key"`
	Status        OrderStatus       `json:"status"`
	FailureReason string            `json:"failure_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NewPendingOrder builds an order awaiting its charge. The ID is left
// empty; the ledger assigns it on CreatePending.
func NewPendingOrder(amount Money, email string, purchaser map[string]any, cart []json.RawMessage, now time.Time) *Order {
	if cart == nil {
		cart = []json.RawMessage{}
	}
	return &Order{
		Amount:      amount,
		Email:       email,
		Purchaser:   purchaser,
		Cart:        cart,
		Gateway:     GatewayID,
		PurchaseKey: newPurchaseKey(),
		Status:      OrderPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newPurchaseKey() string {
	return uuid.NewString()
}
