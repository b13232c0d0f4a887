// Package kafka publishes domain events as JSON messages keyed by aggregate id.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domoutbox "github.com/ecommerce-mvp/shop/internal/domain/outbox"
	"github.com/segmentio/kafka-go"
)

const (
	headerEventName = "event-name"
	// Publishes are synchronous single messages; the writer must not hold them for a batch.
	batchTimeout = 10 * time.Millisecond
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    1,
		BatchTimeout: batchTimeout,
	}}
}

func (p *Publisher) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	msg, err := encode(e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write %s: %w", e.EventName(), err)
	}
	return nil
}

// Close flushes pending writes.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func encode(e domoutbox.Event) (kafka.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: encode %s: %w", e.EventName(), err)
	}
	return kafka.Message{
		Key:   []byte(e.AggregateID()),
		Value: data,
		Headers: []kafka.Header{
			{Key: headerEventName, Value: []byte(e.EventName())},
		},
		Time: time.Now().UTC(),
	}, nil
}
