package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"CatalogNotifier/internal/dispatch"
	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/render"
)

var errConnRefused = errors.New("dial tcp 10.0.0.5:5432: connection refused")

type fakeCatalog struct {
	mu      sync.Mutex
	items   []domain.CatalogItem
	failOn  int
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (f *fakeCatalog) QueryByDate(ctx context.Context, day time.Time, token string, limit int) ([]domain.CatalogItem, string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if f.entered != nil && call == 1 {
		close(f.entered)
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}
	if f.failOn > 0 && call == f.failOn {
		return nil, "", errConnRefused
	}

	var sameDay []domain.CatalogItem
	for _, it := range f.items {
		if domain.Day(it.AddedDate).Equal(day) {
			sameDay = append(sameDay, it)
		}
	}
	return offsetPage(sameDay, token, limit)
}

type fakeSubscriptions struct {
	mu     sync.Mutex
	subs   []domain.Subscription
	failOn int
	calls  int
}

func (f *fakeSubscriptions) QueryActive(_ context.Context, token string, limit int) ([]domain.Subscription, string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	if f.failOn > 0 && call == f.failOn {
		return nil, "", errConnRefused
	}
	return offsetPage(f.subs, token, limit)
}

func offsetPage[T any](all []T, token string, limit int) ([]T, string, error) {
	offset := 0
	if token != "" {
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, "", err
		}
		offset = n
	}
	end := min(offset+limit, len(all))
	next := ""
	if end < len(all) {
		next = strconv.Itoa(end)
	}
	return all[offset:end], next, nil
}

type fakeDirectory struct {
	missing map[int64]bool
}

func (f fakeDirectory) ResolveContact(_ context.Context, id int64) (domain.Contact, error) {
	if f.missing[id] {
		return domain.Contact{}, domain.ErrContactNotFound
	}
	return domain.Contact{SubscriberID: id, Address: fmt.Sprintf("u%d@example.org", id)}, nil
}

type fakeChannel struct {
	mu        sync.Mutex
	sent      []domain.Envelope
	afterSend func(n int)
}

func (f *fakeChannel) Name() string { return "fake" }

func (f *fakeChannel) Send(_ context.Context, env domain.Envelope) error {
	f.mu.Lock()
	f.sent = append(f.sent, env)
	n := len(f.sent)
	f.mu.Unlock()
	if f.afterSend != nil {
		f.afterSend(n)
	}
	return nil
}

// delivered maps subscriber id to the item ids of its single notification.
func (f *fakeChannel) delivered() map[int64][]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[int64][]int64{}
	for _, env := range f.sent {
		for _, it := range env.Items {
			out[env.SubscriberID] = append(out[env.SubscriberID], it.ID)
		}
	}
	return out
}

func (f *fakeChannel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fixture struct {
	catalog  *fakeCatalog
	subs     *fakeSubscriptions
	channel  *fakeChannel
	pipeline *Pipeline
}

type fixtureOpts struct {
	pageSize  int
	batchSize int
	preload   bool
	workers   int
	missing   map[int64]bool
}

func newFixture(items []domain.CatalogItem, subs []domain.Subscription, opts fixtureOpts) *fixture {
	f := &fixture{
		catalog: &fakeCatalog{items: items},
		subs:    &fakeSubscriptions{subs: subs},
		channel: &fakeChannel{},
	}
	d := dispatch.New(dispatch.Deps{
		Directory: fakeDirectory{missing: opts.missing},
		Channel:   f.channel,
		Renderer:  render.NewHTMLRenderer(""),
		Workers:   opts.workers,
	})
	f.pipeline = NewPipeline(PipelineDeps{
		Catalog:               f.catalog,
		Subscriptions:         f.subs,
		Dispatcher:            d,
		CatalogPageSize:       opts.pageSize,
		SubscriptionBatchSize: opts.batchSize,
		PreloadSubscriptions:  opts.preload,
		Now:                   func() time.Time { return today.Add(12 * time.Hour) },
	})
	return f
}

var today = time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC)

const (
	horror  int64 = 1
	fantasy int64 = 2
	poetry  int64 = 3
)

func item(id int64, author string, category int64) domain.CatalogItem {
	return domain.CatalogItem{ID: id, Title: "Book " + strconv.FormatInt(id, 10), Author: author, CategoryID: category, AddedDate: today}
}

func byAuthor(id, subscriber int64, author string) domain.Subscription {
	return domain.Subscription{ID: id, SubscriberID: subscriber, AuthorFilter: &author}
}

func byCategory(id, subscriber int64, category int64) domain.Subscription {
	return domain.Subscription{ID: id, SubscriberID: subscriber, CategoryFilter: &category}
}

func sortedSets(m map[int64][]int64) map[int64][]int64 {
	for k := range m {
		sort.Slice(m[k], func(i, j int) bool { return m[k][i] < m[k][j] })
	}
	return m
}
