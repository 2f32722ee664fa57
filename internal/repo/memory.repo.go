package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"custom-gateway/internal/domain"

	"github.com/google/uuid"
)

type memoryLedger struct {
	locks *keyedMutex

	mu           sync.RWMutex
	orders       map[uuid.UUID]domain.Order
	transactions map[uuid.UUID]domain.TransactionRecord

	now func() time.Time
}

// NewMemoryLedger returns an in-process ledger for tests and the simulator.
func NewMemoryLedger() OrderLedger {
	return newMemoryLedger(time.Now)
}

func newMemoryLedger(now func() time.Time) *memoryLedger {
	return &memoryLedger{
		locks:        newKeyedMutex(),
		orders:       make(map[uuid.UUID]domain.Order),
		transactions: make(map[uuid.UUID]domain.TransactionRecord),
		now:          now,
	}
}

func (m *memoryLedger) CreatePending(_ context.Context, order *domain.Order) (uuid.UUID, error) {
	if order.Status != domain.OrderPending {
		return uuid.Nil, fmt.Errorf("create order: status must be pending, got %q", order.Status)
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[order.ID]; exists {
		return uuid.Nil, fmt.Errorf("create order: %s already exists", order.ID)
	}
	m.orders[order.ID] = cloneOrder(*order)
	return order.ID, nil
}

func (m *memoryLedger) MarkComplete(_ context.Context, orderID uuid.UUID, txn domain.TransactionRecord) error {
	txn.OrderID = orderID
	return m.transition(orderID, domain.OrderComplete, "", &txn)
}

func (m *memoryLedger) MarkFailed(_ context.Context, orderID uuid.UUID, reason string) error {
	return m.transition(orderID, domain.OrderFailed, reason, nil)
}

func (m *memoryLedger) transition(id uuid.UUID, to domain.OrderStatus, reason string, txn *domain.TransactionRecord) error {
	unlock := m.locks.Lock(id.String())
	defer unlock()

	m.mu.RLock()
	order, ok := m.orders[id]
	m.mu.RUnlock()
	if !ok {
		return domain.NotFound(id)
	}
	if !order.Status.CanTransition(to) {
		return domain.InvalidTransition(id, order.Status, to)
	}

	now := m.now()
	order.Status = to
	order.FailureReason = reason
	order.UpdatedAt = now

	m.mu.Lock()
	defer m.mu.Unlock()
	if txn != nil {
		if _, exists := m.transactions[id]; exists {
			return fmt.Errorf("insert transaction for order %s: record already exists", id)
		}
		if txn.CreatedAt.IsZero() {
			txn.CreatedAt = now
		}
		m.transactions[id] = *txn
	}
	m.orders[id] = order
	return nil
}

func (m *memoryLedger) FindById(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, domain.NotFound(id)
	}
	o := cloneOrder(order)
	return &o, nil
}

func (m *memoryLedger) FindTransaction(_ context.Context, orderID uuid.UUID) (*domain.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transactions[orderID]
	if !ok {
		return nil, domain.NotFound(orderID)
	}
	return &t, nil
}

func (m *memoryLedger) FindStuckOrders(_ context.Context, olderThan time.Duration, limit int) ([]domain.Order, error) {
	cutoff := m.now().Add(-olderThan)

	m.mu.RLock()
	var stuck []domain.Order
	for _, o := range m.orders {
		if o.Status == domain.OrderPending && o.UpdatedAt.Before(cutoff) {
			stuck = append(stuck, cloneOrder(o))
		}
	}
	m.mu.RUnlock()

	sort.Slice(stuck, func(i, j int) bool { return stuck[i].UpdatedAt.Before(stuck[j].UpdatedAt) })
	if limit > 0 && len(stuck) > limit {
		stuck = stuck[:limit]
	}
	return stuck, nil
}

// cloneOrder copies the slice and map fields so callers cannot mutate
// stored state.
func cloneOrder(o domain.Order) domain.Order {
	if o.Purchaser != nil {
		p := make(map[string]any, len(o.Purchaser))
		for k, v := range o.Purchaser {
			p[k] = v
		}
		o.Purchaser = p
	}
	if o.Cart != nil {
		c := make([]json.RawMessage, len(o.Cart))
		copy(c, o.Cart)
		o.Cart = c
	}
	return o
}
