// Package aggregate collapses matched pairs into one item set per subscriber.
package aggregate

import "CatalogNotifier/internal/domain"

// Bundle is the frozen, ordered set of items one subscriber will be notified about.
type Bundle struct {
	SubscriberID int64
	Items        []domain.CatalogItem
}

type entry struct {
	items []domain.CatalogItem
	seen  map[int64]struct{}
}

// Accumulator maps subscriber ids to deduplicated matched items, preserving
// insertion order. A subscriber becomes a key only with its first item, so
// no entry is ever empty. Not safe for concurrent use; parallel scanners
// keep one accumulator each and Merge afterwards.
type Accumulator struct {
	order   []int64
	entries map[int64]*entry
	pairs   int
}

// New creates an empty accumulator for one run.
func New() *Accumulator {
	return &Accumulator{entries: map[int64]*entry{}}
}

// Fold inserts every pair and returns how many were new for their subscriber.
func (a *Accumulator) Fold(pairs []domain.Match) int {
	added := 0
	for _, p := range pairs {
		if a.add(p.SubscriberID, p.Item) {
			added++
		}
	}
	a.pairs += len(pairs)
	return added
}

// Merge unions other into a. other is left untouched.
func (a *Accumulator) Merge(other *Accumulator) {
	if other == nil {
		return
	}
	for _, id := range other.order {
		for _, item := range other.entries[id].items {
			a.add(id, item)
		}
	}
	a.pairs += other.pairs
}

func (a *Accumulator) add(subscriberID int64, item domain.CatalogItem) bool {
	e, ok := a.entries[subscriberID]
	if !ok {
		e = &entry{seen: map[int64]struct{}{}}
		a.entries[subscriberID] = e
		a.order = append(a.order, subscriberID)
	}
	if _, dup := e.seen[item.ID]; dup {
		return false
	}
	e.seen[item.ID] = struct{}{}
	e.items = append(e.items, item)
	return true
}

// Len returns the number of subscribers with at least one match.
func (a *Accumulator) Len() int {
	return len(a.order)
}

// Pairs returns how many pairs were folded, duplicates included.
func (a *Accumulator) Pairs() int {
	return a.pairs
}

// Items returns the items collected so far for one subscriber.
func (a *Accumulator) Items(subscriberID int64) []domain.CatalogItem {
	e, ok := a.entries[subscriberID]
	if !ok {
		return nil
	}
	return append([]domain.CatalogItem(nil), e.items...)
}

// Freeze copies the accumulated state into bundles ordered by first match.
// The result shares no memory with the accumulator and is safe to read from
// many goroutines.
func (a *Accumulator) Freeze() []Bundle {
	bundles := make([]Bundle, 0, len(a.order))
	for _, id := range a.order {
		items := a.entries[id].items
		bundles = append(bundles, Bundle{
			SubscriberID: id,
			Items:        append([]domain.CatalogItem(nil), items...),
		})
	}
	return bundles
}
