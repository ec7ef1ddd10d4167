package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/ports"
)

// CatalogRepository reads newly added books with keyset pagination on id.
// Each page is a separate statement, so the day is seen with the store's
// per-statement read consistency.
type CatalogRepository struct {
	db      *sql.DB
	dialect Dialect
}

var _ ports.CatalogStore = (*CatalogRepository)(nil)

// NewCatalogRepository wires a sql.DB implementation.
func NewCatalogRepository(db *sql.DB, dialect Dialect) *CatalogRepository {
	return &CatalogRepository{db: db, dialect: dialect}
}

// QueryByDate returns up to limit books added on day with id greater than the token.
func (r *CatalogRepository) QueryByDate(ctx context.Context, day time.Time, pageToken string, limit int) ([]domain.CatalogItem, string, error) {
	if r.db == nil {
		return nil, "", fmt.Errorf("%w: catalog database not configured", domain.ErrStoreUnavailable)
	}
	after, err := decodeToken(pageToken)
	if err != nil {
		return nil, "", err
	}

	q := r.dialect.builder().
		Select("b.id", "b.title", "b.author", "b.category_id", "COALESCE(c.category_name, '')", "b.added_date").
		From("books b").
		LeftJoin("book_categories c ON c.id = b.category_id").
		Where(sq.Eq{"b.added_date": day.Format(domain.DateLayout)}).
		OrderBy("b.id").
		Limit(uint64(limit) + 1)
	if after > 0 {
		q = q.Where(sq.Gt{"b.id": after})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, "", fmt.Errorf("build catalog query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", unavailable("query catalog", err)
	}

	items := make([]domain.CatalogItem, 0, limit)
	for rows.Next() {
		var (
			item  domain.CatalogItem
			added string
		)
		if err := rows.Scan(&item.ID, &item.Title, &item.Author, &item.CategoryID, &item.CategoryName, &added); err != nil {
			_ = rows.Close()
			return nil, "", unavailable("scan catalog row", err)
		}
		if item.AddedDate, err = parseDate(added); err != nil {
			_ = rows.Close()
			return nil, "", fmt.Errorf("book %d: %w", item.ID, err)
		}
		items = append(items, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, "", unavailable("catalog rows iteration", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, "", unavailable("close catalog rows", closeErr)
	}

	next := ""
	if len(items) > limit {
		items = items[:limit]
		next = encodeToken(items[len(items)-1].ID)
	}
	return items, next, nil
}

// parseDate accepts "2006-01-02" and the RFC 3339 text drivers produce for DATE columns.
func parseDate(value string) (time.Time, error) {
	if len(value) < len(domain.DateLayout) {
		return time.Time{}, fmt.Errorf("invalid added_date %q", value)
	}
	t, err := time.Parse(domain.DateLayout, value[:len(domain.DateLayout)])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid added_date %q: %w", value, err)
	}
	return t, nil
}
