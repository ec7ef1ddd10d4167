package channel

import (
	"context"
	"log/slog"

	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/ports"
)

// LogChannel writes envelopes to the log instead of delivering them (dry runs).
type LogChannel struct {
	logger *slog.Logger
}

var _ ports.MessageChannel = (*LogChannel)(nil)

func NewLogChannel(logger *slog.Logger) *LogChannel {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LogChannel{logger: logger}
}

func (l *LogChannel) Name() string { return "log" }

func (l *LogChannel) Send(ctx context.Context, env domain.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.logger.Info("notification (dry run)",
		"message_id", env.MessageID,
		"subscriber_id", env.SubscriberID,
		"to", env.Contact.Address,
		"subject", env.Subject,
		"items", len(env.Items),
	)
	return nil
}
