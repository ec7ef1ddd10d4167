package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/ports"
)

// ContactField selects which customer column becomes the contact address.
type ContactField string

const (
	ContactEmail    ContactField = "email"
	ContactTelegram ContactField = "telegram_chat_id"
)

// ContactFieldFor maps a channel kind to the address it delivers to.
func ContactFieldFor(channelKind string) ContactField {
	if strings.EqualFold(strings.TrimSpace(channelKind), "telegram") {
		return ContactTelegram
	}
	return ContactEmail
}

// CustomerDirectory resolves subscribers from the customers table.
type CustomerDirectory struct {
	db      *sql.DB
	dialect Dialect
	field   ContactField
}

var _ ports.CustomerDirectory = (*CustomerDirectory)(nil)

// NewCustomerDirectory wires a sql.DB implementation. An empty field means e-mail.
func NewCustomerDirectory(db *sql.DB, dialect Dialect, field ContactField) *CustomerDirectory {
	if field == "" {
		field = ContactEmail
	}
	return &CustomerDirectory{db: db, dialect: dialect, field: field}
}

// ResolveContact returns the customer's address for the configured field.
// E-mail addresses must be confirmed; a Telegram chat id only has to be set.
func (d *CustomerDirectory) ResolveContact(ctx context.Context, subscriberID int64) (domain.Contact, error) {
	if d.db == nil {
		return domain.Contact{}, fmt.Errorf("customer database not configured")
	}

	address := "email"
	if d.field == ContactTelegram {
		address = "COALESCE(telegram_chat_id, '')"
	}

	query, args, err := d.dialect.builder().
		Select("first_name", "last_name", address, "email_confirmed").
		From("customers").
		Where(sq.Eq{"id": subscriberID}).
		ToSql()
	if err != nil {
		return domain.Contact{}, fmt.Errorf("build customer query: %w", err)
	}

	var (
		first, last, addr string
		confirmed         bool
	)
	err = d.db.QueryRowContext(ctx, query, args...).Scan(&first, &last, &addr, &confirmed)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Contact{}, fmt.Errorf("customer %d: %w", subscriberID, domain.ErrContactNotFound)
	}
	if err != nil {
		return domain.Contact{}, fmt.Errorf("lookup customer %d: %w", subscriberID, err)
	}

	addr = strings.TrimSpace(addr)
	if addr == "" {
		return domain.Contact{}, fmt.Errorf("customer %d has no %s: %w", subscriberID, d.field, domain.ErrContactNotFound)
	}
	if d.field == ContactEmail && !confirmed {
		return domain.Contact{}, fmt.Errorf("customer %d: %w", subscriberID, domain.ErrContactUnconfirmed)
	}

	return domain.Contact{
		SubscriberID: subscriberID,
		Name:         strings.TrimSpace(first + " " + last),
		Address:      addr,
	}, nil
}
