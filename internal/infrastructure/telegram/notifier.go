package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/ports"
)

const defaultAPIURL = "https://api.telegram.org"

// Notifier sends notifications through the Telegram bot API. The contact
// address is the subscriber's chat id.
type Notifier struct {
	botToken string
	apiURL   string
	client   *http.Client
}

var _ ports.MessageChannel = (*Notifier)(nil)

// NewNotifier registers bot token and API base URL.
func NewNotifier(botToken, apiURL string, client *http.Client) *Notifier {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Notifier{
		botToken: botToken,
		apiURL:   strings.TrimRight(apiURL, "/"),
		client:   client,
	}
}

func (n *Notifier) Name() string { return "telegram" }

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts the plain-text body to the subscriber's chat.
func (n *Notifier) Send(ctx context.Context, env domain.Envelope) error {
	if n.botToken == "" {
		return fmt.Errorf("%w: telegram notifier misconfigured", domain.ErrPermanentSend)
	}
	chatID := strings.TrimSpace(env.Contact.Address)
	if chatID == "" {
		return fmt.Errorf("%w: empty chat id", domain.ErrPermanentSend)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiURL, n.botToken)
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", env.Subject+"\n\n"+env.TextBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: new request: %w", domain.ErrPermanentSend, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: do request: %w", domain.ErrTransientSend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var body apiResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	_ = json.Unmarshal(raw, &body)

	return fmt.Errorf("%w: telegram error: %s %s", classifyStatus(resp.StatusCode), resp.Status, body.Description)
}

func classifyStatus(code int) error {
	if code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
		return domain.ErrTransientSend
	}
	return domain.ErrPermanentSend
}
