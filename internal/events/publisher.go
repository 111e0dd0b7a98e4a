package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Event names published by the application
const (
	UserRegistered       = "user.registered"
	InterestCreated      = "interest.created"
	MatchCreated         = "match.created"
	VerificationApproved = "verification.approved"
	PaymentCompleted     = "payment.completed"
)

// Bus publishes domain events for downstream consumers
type Bus interface {
	Publish(ctx context.Context, event string, payload interface{}) error
	Close() error
}

type envelope struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

type kafkaBus struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaBus creates a Kafka-backed event bus
func NewKafkaBus(brokers []string, topic string, logger *zap.Logger) Bus {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &kafkaBus{writer: writer, logger: logger}
}

func (b *kafkaBus) Publish(ctx context.Context, event string, payload interface{}) error {
	body, err := json.Marshal(envelope{Event: event, Timestamp: time.Now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event),
		Value: body,
	}); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	b.logger.Debug("Event published", zap.String("event", event))
	return nil
}

func (b *kafkaBus) Close() error {
	return b.writer.Close()
}

type nopBus struct{}

// NewNopBus returns a bus that drops all events. Used when no brokers
// are configured.
func NewNopBus() Bus {
	return nopBus{}
}

func (nopBus) Publish(ctx context.Context, event string, payload interface{}) error { return nil }
func (nopBus) Close() error                                                         { return nil }
