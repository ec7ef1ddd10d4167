// Package matcher pairs catalog items with the subscriptions interested in them.
package matcher

import "CatalogNotifier/internal/domain"

// Matches reports whether sub is interested in item: the author filter equals
// the item author OR the category filter equals the item category. A
// subscription without filters matches nothing.
func Matches(sub domain.Subscription, item domain.CatalogItem) bool {
	if sub.AuthorFilter != nil && *sub.AuthorFilter == item.Author {
		return true
	}
	if sub.CategoryFilter != nil && *sub.CategoryFilter == item.CategoryID {
		return true
	}
	return false
}

// Match returns every (subscriber, item) pair in items × subs whose predicate
// holds, in subscription-major order. It has no side effects.
func Match(items []domain.CatalogItem, subs []domain.Subscription) []domain.Match {
	var pairs []domain.Match
	for _, sub := range subs {
		if !sub.Valid() {
			continue
		}
		for _, item := range items {
			if Matches(sub, item) {
				pairs = append(pairs, domain.Match{
					SubscriberID:   sub.SubscriberID,
					SubscriptionID: sub.ID,
					Item:           item,
				})
			}
		}
	}
	return pairs
}

// Malformed returns the subscriptions in subs that carry no filter.
func Malformed(subs []domain.Subscription) []domain.Subscription {
	var out []domain.Subscription
	for _, sub := range subs {
		if !sub.Valid() {
			out = append(out, sub)
		}
	}
	return out
}
