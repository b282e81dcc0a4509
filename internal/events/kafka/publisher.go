// Package kafka publishes engine events to a Kafka topic. Delivery is
// fire-and-forget from the engine's perspective: the lifecycle manager logs
// failures but never fails the originating operation.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/facturio/invoice-engine/internal/core/domain"
	portssvc "github.com/facturio/invoice-engine/internal/core/ports/services"
)

// Publisher writes invoice events to a single Kafka topic, partitioned by
// invoice ID.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a Publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
	}, nil
}

var _ portssvc.EventPublisher = (*Publisher)(nil)

// PublishInvoiceCreated emits the creation event payload.
func (p *Publisher) PublishInvoiceCreated(ctx context.Context, event domain.InvoiceCreatedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal invoice created event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.InvoiceID),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

// Close flushes buffered messages and releases the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards events. Used when no brokers are configured.
type NoopPublisher struct{}

var _ portssvc.EventPublisher = (*NoopPublisher)(nil)

func (NoopPublisher) PublishInvoiceCreated(context.Context, domain.InvoiceCreatedEvent) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
