package domain

import "time"

// DateLayout is the calendar-day format used for addition dates.
const DateLayout = "2006-01-02"

// CatalogItem is a catalog entry added on a given day. Read-only inside the pipeline.
type CatalogItem struct {
	ID           int64
	Title        string
	Author       string
	CategoryID   int64
	CategoryName string
	AddedDate    time.Time
}

// Day truncates t to a UTC calendar day so it can be compared with AddedDate.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
