package channel

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CatalogNotifier/internal/config"
	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/ports"
)

func TestRegistryBuild(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register("LOG", func(config.Config) (ports.MessageChannel, error) { return NewLogChannel(nil), nil })
	r.Register("broken", func(config.Config) (ports.MessageChannel, error) { return nil, errors.New("no brokers") })

	ch, err := r.Build(" log ", config.Config{})
	require.NoError(t, err)
	assert.Equal(t, "log", ch.Name())

	_, err = r.Build("broken", config.Config{})
	assert.ErrorContains(t, err, "no brokers")

	_, err = r.Build("pigeon", config.Config{})
	assert.ErrorContains(t, err, "broken, log")
	assert.Equal(t, []string{"broken", "log"}, r.Kinds())
}

func TestEncodePayload(t *testing.T) {
	t.Parallel()

	env := domain.Envelope{
		MessageID:    "m-1",
		SubscriberID: 7,
		Contact:      domain.Contact{SubscriberID: 7, Name: "Ada", Address: "ada@example.org"},
		Subject:      "New Books",
		HTMLBody:     "<p>x</p>",
		TextBody:     "x",
		Items: []domain.CatalogItem{{
			ID: 3, Title: "Dune", Author: "Herbert", CategoryName: "Sci-Fi",
			AddedDate: time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC),
		}},
	}

	data, err := EncodePayload(env)
	require.NoError(t, err)

	var got Payload
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "ada@example.org", got.To)
	assert.Equal(t, int64(7), got.SubscriberID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, PayloadItem{ID: 3, Title: "Dune", Author: "Herbert", Category: "Sci-Fi", Added: "2025-11-08"}, got.Items[0])
}

func TestLogChannelHonoursCancellation(t *testing.T) {
	t.Parallel()

	ch := NewLogChannel(nil)
	require.NoError(t, ch.Send(context.Background(), domain.Envelope{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ch.Send(ctx, domain.Envelope{}), context.Canceled)
}
