package channel

import (
	"encoding/json"
	"fmt"

	"CatalogNotifier/internal/domain"
)

// Payload is the JSON document brokers carry to the downstream mail relay.
type Payload struct {
	MessageID    string        `json:"message_id"`
	SubscriberID int64         `json:"subscriber_id"`
	To           string        `json:"to"`
	Name         string        `json:"name,omitempty"`
	Subject      string        `json:"subject"`
	HTML         string        `json:"html"`
	Text         string        `json:"text"`
	Items        []PayloadItem `json:"items"`
}

// PayloadItem is one matched catalog item.
type PayloadItem struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Category string `json:"category"`
	Added    string `json:"added"`
}

// EncodePayload serializes an envelope for broker channels.
func EncodePayload(env domain.Envelope) ([]byte, error) {
	p := Payload{
		MessageID:    env.MessageID,
		SubscriberID: env.SubscriberID,
		To:           env.Contact.Address,
		Name:         env.Contact.Name,
		Subject:      env.Subject,
		HTML:         env.HTMLBody,
		Text:         env.TextBody,
		Items:        make([]PayloadItem, 0, len(env.Items)),
	}
	for _, it := range env.Items {
		p.Items = append(p.Items, PayloadItem{
			ID:       it.ID,
			Title:    it.Title,
			Author:   it.Author,
			Category: it.CategoryName,
			Added:    it.AddedDate.Format(domain.DateLayout),
		})
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return data, nil
}
