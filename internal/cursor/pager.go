package cursor

import (
	"context"
	"errors"
	"fmt"

	"CatalogNotifier/internal/domain"
)

type pageFunc[T any] func(ctx context.Context, token string, limit int) ([]T, string, error)

// pager walks a token-paginated result set forward only.
type pager[T any] struct {
	fetch pageFunc[T]
	limit int
	token string
	done  bool
	pages int
}

func newPager[T any](fetch pageFunc[T], limit int) pager[T] {
	if limit < 1 {
		limit = 1
	}
	return pager[T]{fetch: fetch, limit: limit}
}

func (p *pager[T]) next(ctx context.Context) ([]T, bool, error) {
	if p.done {
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	batch, next, err := p.fetch(ctx, p.token, p.limit)
	if err != nil {
		return nil, false, storeError(ctx, err)
	}
	if next != "" && next == p.token {
		return nil, false, fmt.Errorf("%w: page token %q did not advance", domain.ErrStoreUnavailable, next)
	}

	p.pages++
	p.token = next
	p.done = next == ""
	return batch, !p.done, nil
}

func (p *pager[T]) reset() {
	p.token = ""
	p.done = false
	p.pages = 0
}

// storeError keeps cancellation distinguishable and classifies everything else as an unavailable store.
func storeError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
