package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{writer: writer}
}

func (p *Producer) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	})
}

// PublishFulfillmentRetry keys the message by order number so retries for
// one order stay on one partition.
func (p *Producer) PublishFulfillmentRetry(ctx context.Context, orderNumber, reason string) error {
	event := FulfillmentRetryEvent{
		OrderNumber: orderNumber,
		Reason:      reason,
		FailedAt:    time.Now().UTC(),
	}
	if err := p.Publish(ctx, orderNumber, event); err != nil {
		return fmt.Errorf("failed to publish fulfillment retry for %s: %w", orderNumber, err)
	}
	log.Info().Str("order_number", orderNumber).Msg("Producer: fulfillment retry queued")
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
