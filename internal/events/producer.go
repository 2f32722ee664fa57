package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducer struct {
	writer  messageWriter
	logger  *zap.Logger
	timeout time.Duration
}

// NewKafkaProducer writes to topic on the comma separated brokers.
// Messages are keyed by order id so one order's events stay ordered.
func NewKafkaProducer(brokers, topic string, logger *zap.Logger) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return newKafkaProducer(writer, logger)
}

func newKafkaProducer(w messageWriter, logger *zap.Logger) *KafkaProducer {
	return &KafkaProducer{writer: w, logger: logger, timeout: 10 * time.Second}
}

func (p *KafkaProducer) PublishOutcome(ctx context.Context, event OrderOutcome) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode outcome event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID.String()),
		Value: value,
	})
	if err != nil {
		p.logger.Error("failed to publish outcome event",
			zap.String("order_id", event.OrderID.String()),
			zap.Error(err))
		return fmt.Errorf("publish outcome event: %w", err)
	}

	p.logger.Info("outcome event published",
		zap.String("event_id", event.EventID),
		zap.String("order_id", event.OrderID.String()),
		zap.String("status", event.Status))
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
