package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishOutcomeKeyedByOrder(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaProducer(w, zap.NewNop())
	orderID := uuid.New()

	err := p.PublishOutcome(context.Background(), OrderOutcome{
		OrderID:       orderID,
		Status:        "complete",
		Amount:        "49.99",
		Currency:      "USD",
		TransactionID: "TRANS_123",
		Source:        "checkout",
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, orderID.String(), string(w.msgs[0].Key))

	var got OrderOutcome
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.NotEmpty(t, got.EventID)
	assert.False(t, got.Timestamp.IsZero())
	assert.Equal(t, "TRANS_123", got.TransactionID)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishOutcomeSurvivesCancelledCaller(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaProducer(w, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.PublishOutcome(ctx, OrderOutcome{OrderID: uuid.New(), Status: "failed"}))
	assert.Len(t, w.msgs, 1)
}

func TestPublishOutcomeError(t *testing.T) {
	p := newKafkaProducer(&fakeWriter{err: errors.New("leader not available")}, zap.NewNop())
	err := p.PublishOutcome(context.Background(), OrderOutcome{OrderID: uuid.New()})
	assert.ErrorContains(t, err, "leader not available")
}
