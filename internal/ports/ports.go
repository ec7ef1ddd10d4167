package ports

import (
	"context"
	"time"

	"CatalogNotifier/internal/domain"
)

// CatalogStore pages through items added on a given day.
// An empty next token means there are no more pages.
type CatalogStore interface {
	QueryByDate(ctx context.Context, day time.Time, pageToken string, limit int) ([]domain.CatalogItem, string, error)
}

// SubscriptionStore pages through all active subscriptions.
type SubscriptionStore interface {
	QueryActive(ctx context.Context, pageToken string, limit int) ([]domain.Subscription, string, error)
}

// CustomerDirectory resolves a subscriber to a deliverable contact.
type CustomerDirectory interface {
	ResolveContact(ctx context.Context, subscriberID int64) (domain.Contact, error)
}

// MessageChannel delivers a rendered envelope (SMTP, Telegram, brokers).
type MessageChannel interface {
	Name() string
	Send(ctx context.Context, envelope domain.Envelope) error
}

// Renderer produces the message content for a subscriber's matched items.
type Renderer interface {
	Render(contact domain.Contact, items []domain.CatalogItem) (domain.Envelope, error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// Metrics records operator-facing counters for runs and deliveries.
type Metrics interface {
	RunFinished(report domain.RunReport)
	DispatchFinished(outcome domain.DispatchOutcome)
	MatchedPairs(n int)
	MalformedSubscription()
}
