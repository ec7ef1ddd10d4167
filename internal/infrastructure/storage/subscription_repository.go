package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/ports"
)

// SubscriptionRepository pages through the subscriptions table.
type SubscriptionRepository struct {
	db      *sql.DB
	dialect Dialect
}

var _ ports.SubscriptionStore = (*SubscriptionRepository)(nil)

// NewSubscriptionRepository wires a sql.DB implementation.
func NewSubscriptionRepository(db *sql.DB, dialect Dialect) *SubscriptionRepository {
	return &SubscriptionRepository{db: db, dialect: dialect}
}

// QueryActive returns up to limit subscriptions with id greater than the token.
func (r *SubscriptionRepository) QueryActive(ctx context.Context, pageToken string, limit int) ([]domain.Subscription, string, error) {
	if r.db == nil {
		return nil, "", fmt.Errorf("%w: subscription database not configured", domain.ErrStoreUnavailable)
	}
	after, err := decodeToken(pageToken)
	if err != nil {
		return nil, "", err
	}

	q := r.dialect.builder().
		Select("id", "customer_id", "author", "category_id").
		From("subscriptions").
		OrderBy("id").
		Limit(uint64(limit) + 1)
	if after > 0 {
		q = q.Where(sq.Gt{"id": after})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, "", fmt.Errorf("build subscription query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", unavailable("query subscriptions", err)
	}

	subs := make([]domain.Subscription, 0, limit)
	for rows.Next() {
		var (
			sub      domain.Subscription
			author   sql.NullString
			category sql.NullInt64
		)
		if err := rows.Scan(&sub.ID, &sub.SubscriberID, &author, &category); err != nil {
			_ = rows.Close()
			return nil, "", unavailable("scan subscription row", err)
		}
		if author.Valid {
			sub.AuthorFilter = &author.String
		}
		if category.Valid {
			sub.CategoryFilter = &category.Int64
		}
		subs = append(subs, sub)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, "", unavailable("subscription rows iteration", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, "", unavailable("close subscription rows", closeErr)
	}

	next := ""
	if len(subs) > limit {
		subs = subs[:limit]
		next = encodeToken(subs[len(subs)-1].ID)
	}
	return subs, next, nil
}
