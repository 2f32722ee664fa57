package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"custom-gateway/internal/domain"

	"github.com/google/uuid"
)

// insertTransaction runs inside the transition transaction so the record
// and the status change commit together. order_id is the primary key,
// which rejects a second record for the same order.
func insertTransaction(ctx context.Context, tx *sql.Tx, t *domain.TransactionRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (order_id, transaction_id, processor_status, created_at) VALUES ($1, $2, $3, $4)`,
		t.OrderID, t.TransactionID, t.ProcessorStatus, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction for order %s: %w", t.OrderID, err)
	}
	return nil
}

// FindTransaction returns the record attached to a complete order, or
// NotFound when the order has none.
func (r *orderRepo) FindTransaction(ctx context.Context, orderID uuid.UUID) (*domain.TransactionRecord, error) {
	var t domain.TransactionRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT order_id, transaction_id, processor_status, created_at FROM transactions WHERE order_id = $1`,
		orderID,
	).Scan(&t.OrderID, &t.TransactionID, &t.ProcessorStatus, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound(orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction for order %s: %w", orderID, err)
	}
	return &t, nil
}
