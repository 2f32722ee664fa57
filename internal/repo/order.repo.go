package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"custom-gateway/internal/domain"

	"github.com/google/uuid"
)

const orderColumns = `id, amount, currency, email, purchaser_info, cart, gateway, purchase_key, status, failure_reason, created_at, updated_at`

type orderRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewOrderLedger returns a Postgres-backed ledger. Transitions lock the
// order row with SELECT ... FOR UPDATE inside a transaction.
func NewOrderLedger(db *sql.DB) OrderLedger {
	return &orderRepo{db: db, now: time.Now}
}

func (r *orderRepo) CreatePending(ctx context.Context, order *domain.Order) (uuid.UUID, error) {
	if order.Status != domain.OrderPending {
		return uuid.Nil, fmt.Errorf("create order: status must be pending, got %q", order.Status)
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	purchaser, err := marshalPurchaser(order.Purchaser)
	if err != nil {
		return uuid.Nil, err
	}
	cart, err := json.Marshal(order.Cart)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create order: encode cart: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		order.ID, order.Amount.Value, order.Amount.Currency, order.Email, purchaser, cart,
		order.Gateway, order.PurchaseKey, order.Status, order.FailureReason, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create order: %w", err)
	}
	return order.ID, nil
}

func (r *orderRepo) MarkComplete(ctx context.Context, orderID uuid.UUID, txn domain.TransactionRecord) error {
	txn.OrderID = orderID
	return r.transition(ctx, orderID, domain.OrderComplete, "", &txn)
}

func (r *orderRepo) MarkFailed(ctx context.Context, orderID uuid.UUID, reason string) error {
	return r.transition(ctx, orderID, domain.OrderFailed, reason, nil)
}

func (r *orderRepo) transition(ctx context.Context, id uuid.UUID, to domain.OrderStatus, reason string, txn *domain.TransactionRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	var current domain.OrderStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(id)
	}
	if err != nil {
		return fmt.Errorf("lock order %s: %w", id, err)
	}
	if !current.CanTransition(to) {
		return domain.InvalidTransition(id, current, to)
	}

	now := r.now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, failure_reason = $3, updated_at = $4 WHERE id = $1`,
		id, to, reason, now,
	); err != nil {
		return fmt.Errorf("update order %s: %w", id, err)
	}

	if txn != nil {
		if txn.CreatedAt.IsZero() {
			txn.CreatedAt = now
		}
		if err := insertTransaction(ctx, tx, txn); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

func (r *orderRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", id, err)
	}
	return order, nil
}

func (r *orderRepo) FindStuckOrders(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error) {
	// LIMIT NULL is no limit
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE status = $1 AND updated_at < $2
		 ORDER BY updated_at
		 LIMIT $3`,
		domain.OrderPending, r.now().Add(-olderThan), lim,
	)
	if err != nil {
		return nil, fmt.Errorf("find stuck orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stuck order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*domain.Order, error) {
	var (
		o         domain.Order
		purchaser []byte
		cart      []byte
	)
	err := s.Scan(
		&o.ID,
		&o.Amount.Value,
		&o.Amount.Currency,
		&o.Email,
		&purchaser,
		&cart,
		&o.Gateway,
		&o.PurchaseKey,
		&o.Status,
		&o.FailureReason,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(purchaser, &o.Purchaser); err != nil {
		return nil, fmt.Errorf("decode purchaser_info: %w", err)
	}
	if err := json.Unmarshal(cart, &o.Cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &o, nil
}

func marshalPurchaser(p map[string]any) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("create order: encode purchaser_info: %w", err)
	}
	return b, nil
}
