// Package natsbus hands rendered notifications to a JetStream subject, where
// an external relay picks them up for delivery.
package natsbus

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"CatalogNotifier/internal/channel"
	"CatalogNotifier/internal/config"
	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/ports"
)

const publishTimeout = 5 * time.Second

type publisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Channel publishes one JSON payload per envelope.
type Channel struct {
	nc      *nats.Conn
	js      publisher
	subject string
}

var _ ports.MessageChannel = (*Channel)(nil)

// NewChannel connects to NATS and, when a stream name is configured, makes
// sure the stream captures the subject.
func NewChannel(ctx context.Context, cfg config.NATSConfig) (*Channel, error) {
	if cfg.URL == "" || cfg.Subject == "" {
		return nil, errors.New("nats channel requires url and subject")
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("catalog-notifier"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	if cfg.Stream != "" {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:      cfg.Stream,
			Subjects:  []string{cfg.Subject},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.WorkQueuePolicy,
			MaxAge:    7 * 24 * time.Hour,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Stream, err)
		}
	}

	return &Channel{nc: nc, js: js, subject: cfg.Subject}, nil
}

func newChannel(js publisher, subject string) *Channel {
	return &Channel{js: js, subject: subject}
}

func (c *Channel) Name() string { return "nats" }

// Send publishes the envelope. The message id doubles as the JetStream
// de-duplication id.
func (c *Channel) Send(ctx context.Context, env domain.Envelope) error {
	data, err := channel.EncodePayload(env)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPermanentSend, err)
	}

	msg := &nats.Msg{
		Subject: c.subject,
		Data:    data,
		Header:  nats.Header{"Subscriber-Id": []string{strconv.FormatInt(env.SubscriberID, 10)}},
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	var opts []jetstream.PublishOpt
	if env.MessageID != "" {
		opts = append(opts, jetstream.WithMsgID(env.MessageID))
	}
	if _, err := c.js.PublishMsg(ctx, msg, opts...); err != nil {
		return classify(err)
	}
	return nil
}

// Close releases the NATS connection.
func (c *Channel) Close() error {
	if c.nc != nil {
		c.nc.Close()
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, nats.ErrMaxPayload), errors.Is(err, nats.ErrBadSubject):
		return fmt.Errorf("%w: nats: %w", domain.ErrPermanentSend, err)
	default:
		return fmt.Errorf("%w: nats: %w", domain.ErrTransientSend, err)
	}
}
