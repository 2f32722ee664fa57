package repo

import (
	"context"
	"time"

	"custom-gateway/internal/domain"

	"github.com/google/uuid"
)

// OrderLedger is the only writer of order status and transaction records.
// Each write is atomic per order id: concurrent writers on the same order
// are serialized and exactly one terminal transition can succeed.
type OrderLedger interface {
	// CreatePending persists a new pending order, assigning its ID when unset.
	CreatePending(ctx context.Context, order *domain.Order) (uuid.UUID, error)
	// MarkComplete moves a pending order to complete and attaches its transaction record.
	MarkComplete(ctx context.Context, orderID uuid.UUID, txn domain.TransactionRecord) error
	// MarkFailed moves a pending order to failed, recording reason.
	MarkFailed(ctx context.Context, orderID uuid.UUID, reason string) error

	FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindTransaction(ctx context.Context, orderID uuid.UUID) (*domain.TransactionRecord, error)
	// FindStuckOrders lists pending orders not touched for olderThan, oldest
	// first. A limit of zero or less returns all of them.
	FindStuckOrders(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error)
}
