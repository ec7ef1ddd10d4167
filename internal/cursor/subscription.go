package cursor

import (
	"context"

	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/ports"
)

// SubscriptionCursor yields active subscriptions in fixed-size batches.
// It is re-walked from the start once per catalog batch.
type SubscriptionCursor struct {
	pager pager[domain.Subscription]
}

// NewSubscriptionCursor wraps a subscription store.
func NewSubscriptionCursor(store ports.SubscriptionStore, batchSize int) *SubscriptionCursor {
	return &SubscriptionCursor{pager: newPager[domain.Subscription](store.QueryActive, batchSize)}
}

// NextBatch returns the next batch and whether more batches follow.
func (c *SubscriptionCursor) NextBatch(ctx context.Context) ([]domain.Subscription, bool, error) {
	return c.pager.next(ctx)
}

// Reset rewinds the cursor to the first batch.
func (c *SubscriptionCursor) Reset() {
	c.pager.reset()
}

// Walk rewinds the cursor and calls visit for every batch until the set is exhausted
// or visit returns an error.
func (c *SubscriptionCursor) Walk(ctx context.Context, visit func([]domain.Subscription) error) error {
	c.Reset()
	for {
		batch, more, err := c.NextBatch(ctx)
		if err != nil {
			return err
		}
		if len(batch) > 0 {
			if err := visit(batch); err != nil {
				return err
			}
		}
		if !more {
			return nil
		}
	}
}
