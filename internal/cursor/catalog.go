package cursor

import (
	"context"
	"time"

	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/ports"
)

// CatalogCursor yields the items added on one day in pages of a fixed size.
//
// Every item of the day is returned once across all pages, within the limits
// of the store's own read consistency: rows committed mid-run may or may not
// be observed.
type CatalogCursor struct {
	day   time.Time
	pager pager[domain.CatalogItem]
}

// NewCatalogCursor binds a store to a target day.
func NewCatalogCursor(store ports.CatalogStore, day time.Time, pageSize int) *CatalogCursor {
	day = domain.Day(day)
	fetch := func(ctx context.Context, token string, limit int) ([]domain.CatalogItem, string, error) {
		return store.QueryByDate(ctx, day, token, limit)
	}
	return &CatalogCursor{day: day, pager: newPager[domain.CatalogItem](fetch, pageSize)}
}

// Day returns the target day.
func (c *CatalogCursor) Day() time.Time {
	return c.day
}

// NextBatch returns the next page and whether more pages follow.
// Failures are wrapped with domain.ErrStoreUnavailable.
func (c *CatalogCursor) NextBatch(ctx context.Context) ([]domain.CatalogItem, bool, error) {
	return c.pager.next(ctx)
}

// Pages reports how many pages were fetched since the last reset.
func (c *CatalogCursor) Pages() int {
	return c.pager.pages
}

// Reset rewinds the cursor to the first page.
func (c *CatalogCursor) Reset() {
	c.pager.reset()
}
