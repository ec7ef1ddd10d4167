package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema of the bookstore tables the pipeline reads. Rows are written by the
// catalog and subscription services; a cancelled subscription is deleted.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS book_categories (
    id %[1]s,
    category_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS books (
    id %[1]s,
    author TEXT NOT NULL,
    title TEXT NOT NULL,
    category_id BIGINT NOT NULL REFERENCES book_categories(id),
    added_date DATE NOT NULL,
    version INTEGER NOT NULL DEFAULT 0,
    CONSTRAINT uk_books_author_title UNIQUE (author, title)
);

CREATE INDEX IF NOT EXISTS idx_books_added_date_id ON books(added_date, id);

CREATE TABLE IF NOT EXISTS customers (
    id %[1]s,
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL,
    email_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
    confirmation_token TEXT,
    telegram_chat_id TEXT
);

CREATE TABLE IF NOT EXISTS subscriptions (
    id %[1]s,
    customer_id BIGINT NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
    author TEXT,
    category_id BIGINT REFERENCES book_categories(id),
    version INTEGER NOT NULL DEFAULT 0,
    CONSTRAINT uk_subscription_customer_author_category UNIQUE (customer_id, author, category_id)
);
`

// Schema renders the DDL for the dialect.
func (d Dialect) Schema() string {
	idColumn := "BIGSERIAL PRIMARY KEY"
	if d.Driver == DriverSQLite {
		idColumn = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return fmt.Sprintf(schemaTemplate, idColumn)
}

// ApplySchema creates missing tables and indexes.
func ApplySchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if _, err := db.ExecContext(ctx, dialect.Schema()); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
