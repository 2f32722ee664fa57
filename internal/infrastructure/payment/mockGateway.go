package payment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"custom-gateway/internal/domain"

	"github.com/google/uuid"
)

type Outcome int

const (
	OutcomeApprove Outcome = iota
	OutcomeDecline
	// OutcomePhantom charges the card but reports a timeout to the caller.
	OutcomePhantom
	// OutcomeUnavailable fails before any charge happens.
	OutcomeUnavailable
)

type MockOption func(*MockGateway)

// WithScript makes successive new charges follow outcomes in order.
// Once the script runs out the default outcome applies.
func WithScript(outcomes ...Outcome) MockOption {
	return func(m *MockGateway) { m.script = append(m.script, outcomes...) }
}

// WithRandomOutcomes picks outcomes by percentage; the remainder after
// approve and decline is phantom charges.
func WithRandomOutcomes(approvePct, declinePct int) MockOption {
	return func(m *MockGateway) {
		m.decide = func() Outcome {
			chance := rand.IntN(100)
			switch {
			case chance < approvePct:
				return OutcomeApprove
			case chance < approvePct+declinePct:
				return OutcomeDecline
			default:
				return OutcomePhantom
			}
		}
	}
}

func WithLatency(d time.Duration) MockOption {
	return func(m *MockGateway) { m.latency = d }
}

func WithDeclineReason(reason string) MockOption {
	return func(m *MockGateway) { m.declineReason = reason }
}

// MockGateway is an in-memory processor. Charges are remembered per order
// so a repeated charge returns the first result.
type MockGateway struct {
	mu      sync.RWMutex
	charges map[uuid.UUID]ChargeResponse
	calls   int

	script        []Outcome
	decide        func() Outcome
	latency       time.Duration
	declineReason string
}

func NewMockGateway(opts ...MockOption) *MockGateway {
	m := &MockGateway{
		charges:       make(map[uuid.UUID]ChargeResponse),
		decide:        func() Outcome { return OutcomeApprove },
		declineReason: "card_declined",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResponse, error) {
	m.mu.Lock()
	m.calls++
	if prev, exists := m.charges[req.OrderID]; exists {
		m.mu.Unlock()
		return prev, nil
	}
	outcome := m.next()
	m.mu.Unlock()

	if err := m.wait(ctx); err != nil {
		return ChargeResponse{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch outcome {
	case OutcomeDecline:
		return m.record(req.OrderID, ChargeResponse{Status: "declined", Reason: m.declineReason}), nil
	case OutcomePhantom:
		m.record(req.OrderID, approved())
		return ChargeResponse{}, fmt.Errorf("%w: connection timeout", ErrUnavailable)
	case OutcomeUnavailable:
		return ChargeResponse{}, fmt.Errorf("%w: service unavailable", ErrUnavailable)
	default:
		return m.record(req.OrderID, approved()), nil
	}
}

func (m *MockGateway) CheckStatus(ctx context.Context, orderID uuid.UUID, _ domain.GatewayCredentials) (StatusResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp, exists := m.charges[orderID]
	return StatusResult{Found: exists, Response: resp}, nil
}

// Calls counts Charge invocations, including idempotent replays.
func (m *MockGateway) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Charged reports how many orders hold a successful charge.
func (m *MockGateway) Charged() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.charges {
		if c.Success {
			n++
		}
	}
	return n
}

// next must be called with mu held.
func (m *MockGateway) next() Outcome {
	if len(m.script) > 0 {
		o := m.script[0]
		m.script = m.script[1:]
		return o
	}
	return m.decide()
}

// record keeps the first result stored for an order and returns it.
func (m *MockGateway) record(orderID uuid.UUID, resp ChargeResponse) ChargeResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, exists := m.charges[orderID]; exists {
		return prev
	}
	m.charges[orderID] = resp
	return resp
}

func (m *MockGateway) wait(ctx context.Context) error {
	if m.latency <= 0 {
		return nil
	}
	t := time.NewTimer(m.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func approved() ChargeResponse {
	return ChargeResponse{
		Success:       true,
		TransactionID: "mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		Status:        "succeeded",
	}
}
