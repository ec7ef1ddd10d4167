// Package kafkabus hands rendered notifications to a Kafka topic.
package kafkabus

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"CatalogNotifier/internal/channel"
	"CatalogNotifier/internal/config"
	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/ports"
)

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Channel writes one message per envelope, keyed by subscriber so a
// subscriber's notifications stay ordered on one partition.
type Channel struct {
	writer writer
}

var _ ports.MessageChannel = (*Channel)(nil)

// NewChannel builds a synchronous writer that waits for all replicas.
func NewChannel(cfg config.KafkaConfig) (*Channel, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka channel requires at least one broker address")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka channel requires a topic")
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}
	return &Channel{writer: w}, nil
}

func (c *Channel) Name() string { return "kafka" }

func (c *Channel) Send(ctx context.Context, env domain.Envelope) error {
	data, err := channel.EncodePayload(env)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPermanentSend, err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(env.SubscriberID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "message-id", Value: []byte(env.MessageID)},
		},
	}
	if err := c.writer.WriteMessages(ctx, msg); err != nil {
		return classify(err)
	}
	return nil
}

func (c *Channel) Close() error {
	if c.writer == nil {
		return nil
	}
	return c.writer.Close()
}

func classify(err error) error {
	cause := err
	var writeErrs kafka.WriteErrors
	if errors.As(err, &writeErrs) {
		for _, e := range writeErrs {
			if e != nil {
				cause = e
				break
			}
		}
	}

	if errors.Is(cause, context.Canceled) {
		return cause
	}

	var kerr kafka.Error
	if errors.As(cause, &kerr) && !kerr.Temporary() {
		return fmt.Errorf("%w: kafka: %w", domain.ErrPermanentSend, err)
	}
	return fmt.Errorf("%w: kafka: %w", domain.ErrTransientSend, err)
}
