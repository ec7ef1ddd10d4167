// Package mail delivers notifications over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gomail "github.com/wneessen/go-mail"

	"CatalogNotifier/internal/config"
	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/ports"
)

// Channel sends one multipart (HTML + plain text) message per envelope.
type Channel struct {
	host string
	from string
	opts []gomail.Option
}

var _ ports.MessageChannel = (*Channel)(nil)

// NewChannel validates the relay settings up front.
func NewChannel(cfg config.SMTPConfig) (*Channel, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}
	if err := gomail.NewMsg().From(cfg.From); err != nil {
		return nil, fmt.Errorf("smtp from address: %w", err)
	}

	policy, err := tlsPolicy(cfg.TLS)
	if err != nil {
		return nil, err
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(policy),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	return &Channel{host: cfg.Host, from: cfg.From, opts: opts}, nil
}

func (c *Channel) Name() string { return "smtp" }

// Send dials the relay and submits the message on a fresh connection.
func (c *Channel) Send(ctx context.Context, env domain.Envelope) error {
	msg, err := c.buildMessage(env)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPermanentSend, err)
	}

	client, err := gomail.NewClient(c.host, c.opts...)
	if err != nil {
		return fmt.Errorf("%w: smtp client: %w", domain.ErrPermanentSend, err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return classify(err)
	}
	return nil
}

func (c *Channel) buildMessage(env domain.Envelope) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(c.from); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}

	var err error
	if env.Contact.Name != "" {
		err = msg.AddToFormat(env.Contact.Name, env.Contact.Address)
	} else {
		err = msg.To(env.Contact.Address)
	}
	if err != nil {
		return nil, fmt.Errorf("recipient %q: %w", env.Contact.Address, err)
	}

	msg.Subject(env.Subject)
	if env.MessageID != "" {
		msg.SetMessageIDWithValue(env.MessageID)
	}
	msg.SetDate()
	msg.SetBodyString(gomail.TypeTextPlain, env.TextBody)
	msg.AddAlternativeString(gomail.TypeTextHTML, env.HTMLBody)

	return msg, nil
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var sendErr *gomail.SendError
	if errors.As(err, &sendErr) && !sendErr.IsTemp() {
		return fmt.Errorf("%w: smtp: %w", domain.ErrPermanentSend, err)
	}
	return fmt.Errorf("%w: smtp: %w", domain.ErrTransientSend, err)
}

func tlsPolicy(value string) (gomail.TLSPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "opportunistic":
		return gomail.TLSOpportunistic, nil
	case "mandatory":
		return gomail.TLSMandatory, nil
	case "none":
		return gomail.NoTLS, nil
	default:
		return gomail.NoTLS, fmt.Errorf("unknown smtp tls policy %q", value)
	}
}
