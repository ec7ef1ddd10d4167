package domain

// Subscription expresses a subscriber's interest in an author, a category, or both.
// Nil filters are absent.
type Subscription struct {
	ID             int64
	SubscriberID   int64
	AuthorFilter   *string
	CategoryFilter *int64
}

// Valid reports whether at least one filter is present.
func (s Subscription) Valid() bool {
	return s.AuthorFilter != nil || s.CategoryFilter != nil
}

// Match is a (subscriber, item) pair produced when a subscription predicate holds.
type Match struct {
	SubscriberID   int64
	SubscriptionID int64
	Item           CatalogItem
}
