package queue

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

type MessageHandler func(ctx context.Context, key, value []byte) error

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads fulfillment retry events with a consumer group, so offsets
// are committed as each message is read.
type Consumer struct {
	reader     messageReader
	newBackOff func() backoff.BackOff
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, newBackOff: readBackOff}
}

func readBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Consume blocks until ctx is cancelled. Handler errors are logged and the
// message is committed anyway. Read errors back off exponentially and the
// delay resets after the next successful read.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	wait := c.newBackOff()
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			delay := wait.NextBackOff()
			if delay == backoff.Stop {
				return err
			}
			log.Error().Err(err).Dur("retry_in", delay).Msg("Consumer: error reading message")
			if err := sleepContext(ctx, delay); err != nil {
				return err
			}
			continue
		}
		wait.Reset()

		if err := handler(ctx, msg.Key, msg.Value); err != nil {
			log.Error().Err(err).Str("key", string(msg.Key)).Int64("offset", msg.Offset).Msg("Consumer: error handling message")
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
