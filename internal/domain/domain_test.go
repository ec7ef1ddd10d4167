package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionValid(t *testing.T) {
	t.Parallel()

	author := "A"
	category := int64(3)

	assert.False(t, Subscription{ID: 1}.Valid())
	assert.True(t, Subscription{ID: 2, AuthorFilter: &author}.Valid())
	assert.True(t, Subscription{ID: 3, CategoryFilter: &category}.Valid())
	assert.True(t, Subscription{ID: 4, AuthorFilter: &author, CategoryFilter: &category}.Valid())
}

func TestDayTruncatesToUTCDate(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+9", 9*60*60)
	in := time.Date(2025, time.November, 8, 1, 30, 0, 0, loc)

	got := Day(in)
	assert.Equal(t, time.Date(2025, time.November, 8, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, "2025-11-08", got.Format(DateLayout))
}

func TestRunReportDuration(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, time.November, 8, 12, 0, 0, 0, time.UTC)
	r := RunReport{StartedAt: start}
	assert.Zero(t, r.Duration())

	r.FinishedAt = start.Add(90 * time.Second)
	assert.Equal(t, 90*time.Second, r.Duration())
}
