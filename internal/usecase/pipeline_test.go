package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CatalogNotifier/internal/domain"
)

func TestScenarioSingleAuthorMatch(t *testing.T) {
	t.Parallel()

	f := newFixture(
		[]domain.CatalogItem{item(1, "A", horror)},
		[]domain.Subscription{byAuthor(1, 1, "A")},
		fixtureOpts{},
	)

	report, err := f.pipeline.RunDailyMatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.RunSucceeded, report.Status)
	assert.Equal(t, map[int64][]int64{1: {1}}, f.channel.delivered())
	assert.Equal(t, 1, f.channel.count())
	assert.Equal(t, 1, report.Sent)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, today, report.Date)
}

func TestScenarioCategoryMatchesBothItemsInOneNotification(t *testing.T) {
	t.Parallel()

	f := newFixture(
		[]domain.CatalogItem{item(1, "A", horror), item(2, "B", horror)},
		[]domain.Subscription{byCategory(1, 1, horror)},
		fixtureOpts{pageSize: 1, batchSize: 1},
	)

	report, err := f.pipeline.RunDailyMatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, f.channel.count())
	assert.Equal(t, map[int64][]int64{1: {1, 2}}, f.channel.delivered())
	assert.Equal(t, 1, report.Subscribers)
	assert.Equal(t, 2, report.MatchedPairs)
}

func TestScenarioNoItemsIsSuccessfulWithoutDispatch(t *testing.T) {
	t.Parallel()

	yesterday := item(1, "A", horror)
	yesterday.AddedDate = today.AddDate(0, 0, -1)

	f := newFixture([]domain.CatalogItem{yesterday}, []domain.Subscription{byAuthor(1, 1, "A")}, fixtureOpts{})

	report, err := f.pipeline.RunDailyMatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.RunSucceeded, report.Status)
	assert.Zero(t, f.channel.count())
	assert.Zero(t, report.ItemsScanned)
	assert.Zero(t, f.subs.calls, "no subscription scan without items")
}

func TestScenarioCatalogFailureMidRunDispatchesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(
		[]domain.CatalogItem{item(1, "A", horror), item(2, "A", horror), item(3, "A", horror)},
		[]domain.Subscription{byAuthor(1, 1, "A")},
		fixtureOpts{pageSize: 1},
	)
	f.catalog.failOn = 2

	report, err := f.pipeline.RunDailyMatch(context.Background())
	require.Error(t, err)

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, domain.RunFailed, report.Status)
	assert.Zero(t, f.channel.count(), "page 1 matches must not be sent")
	assert.Equal(t, 1, report.MatchedPairs)
	assert.Equal(t, StateIdle, f.pipeline.State())
}

func TestSubscriptionStoreFailureAbortsRun(t *testing.T) {
	t.Parallel()

	f := newFixture(
		[]domain.CatalogItem{item(1, "A", horror), item(2, "B", horror)},
		[]domain.Subscription{byAuthor(1, 1, "A"), byAuthor(2, 2, "B")},
		fixtureOpts{pageSize: 1, batchSize: 1},
	)
	f.subs.failOn = 3

	report, err := f.pipeline.RunDailyMatch(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, domain.RunFailed, report.Status)
	assert.Zero(t, f.channel.count())
}

func TestScenarioContactNotFoundIsolated(t *testing.T) {
	t.Parallel()

	f := newFixture(
		[]domain.CatalogItem{item(1, "A", horror)},
		[]domain.Subscription{byAuthor(1, 1, "A"), byCategory(2, 2, horror)},
		fixtureOpts{workers: 2, missing: map[int64]bool{1: true}},
	)

	report, err := f.pipeline.RunDailyMatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.RunSucceeded, report.Status)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, map[int64][]int64{2: {1}}, f.channel.delivered())
}

func TestOneDispatchPerSubscriberAndNoDuplicateItems(t *testing.T) {
	t.Parallel()

	items := []domain.CatalogItem{item(1, "A", horror), item(2, "A", fantasy), item(3, "C", horror)}
	subs := []domain.Subscription{
		byAuthor(1, 1, "A"),
		byCategory(2, 1, horror),
		byAuthor(3, 1, "A"),
		byCategory(4, 2, poetry),
		{ID: 5, SubscriberID: 3},
	}
	f := newFixture(items, subs, fixtureOpts{pageSize: 2, batchSize: 2})

	report, err := f.pipeline.RunDailyMatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, f.channel.count())
	assert.Equal(t, map[int64][]int64{1: {1, 2, 3}}, sortedSets(f.channel.delivered()))
	assert.Equal(t, 1, report.MalformedSeen, "malformed subscription reported once per run")
	assert.Equal(t, 6, report.MatchedPairs)
}

func TestBatchingIsTransparent(t *testing.T) {
	t.Parallel()

	authors := []string{"A", "B", "C", "D"}
	var items []domain.CatalogItem
	for i := int64(1); i <= 23; i++ {
		items = append(items, item(i, authors[i%4], 1+i%3))
	}
	var subs []domain.Subscription
	for i := int64(1); i <= 17; i++ {
		switch i % 3 {
		case 0:
			subs = append(subs, byAuthor(i, i%7, authors[i%4]))
		case 1:
			subs = append(subs, byCategory(i, i%7, 1+i%3))
		default:
			s := byAuthor(i, i%7, authors[(i+1)%4])
			c := 1 + (i+2)%3
			s.CategoryFilter = &c
			subs = append(subs, s)
		}
	}

	run := func(opts fixtureOpts) map[int64][]int64 {
		f := newFixture(items, subs, opts)
		_, err := f.pipeline.RunDailyMatch(context.Background())
		require.NoError(t, err)
		return sortedSets(f.channel.delivered())
	}

	small := run(fixtureOpts{pageSize: 1, batchSize: 1})
	large := run(fixtureOpts{pageSize: 10000, batchSize: 10000})
	preloaded := run(fixtureOpts{pageSize: 4, batchSize: 3, preload: true, workers: 4})

	assert.NotEmpty(t, small)
	assert.Equal(t, large, small)
	assert.Equal(t, large, preloaded)
}

func TestPreloadReadsSubscriptionsOncePerRun(t *testing.T) {
	t.Parallel()

	items := []domain.CatalogItem{item(1, "A", horror), item(2, "A", horror), item(3, "A", horror)}
	subs := []domain.Subscription{byAuthor(1, 1, "A"), byAuthor(2, 2, "A")}

	f := newFixture(items, subs, fixtureOpts{pageSize: 1, batchSize: 1, preload: true})
	_, err := f.pipeline.RunDailyMatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.subs.calls)

	g := newFixture(items, subs, fixtureOpts{pageSize: 1, batchSize: 1})
	_, err = g.pipeline.RunDailyMatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, g.subs.calls)

	assert.Equal(t, f.channel.delivered(), g.channel.delivered())
}

func TestConcurrentTriggerIsSkipped(t *testing.T) {
	t.Parallel()

	f := newFixture([]domain.CatalogItem{item(1, "A", horror)}, []domain.Subscription{byAuthor(1, 1, "A")}, fixtureOpts{})
	f.catalog.entered = make(chan struct{})
	f.catalog.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.pipeline.RunDailyMatch(context.Background())
		done <- err
	}()

	<-f.catalog.entered
	assert.Equal(t, StateCatalogScan, f.pipeline.State())

	report, err := f.pipeline.RunDailyMatch(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
	assert.Equal(t, domain.RunSkipped, report.Status)

	close(f.catalog.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.channel.count())
	assert.Equal(t, StateIdle, f.pipeline.State())

	_, err = f.pipeline.RunDailyMatch(context.Background())
	require.NoError(t, err, "guard is released after the run")
	assert.Equal(t, 2, f.channel.count())
}

func TestCancellationDuringScanDispatchesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture([]domain.CatalogItem{item(1, "A", horror)}, []domain.Subscription{byAuthor(1, 1, "A")}, fixtureOpts{})
	f.catalog.entered = make(chan struct{})
	f.catalog.release = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.pipeline.RunDailyMatch(ctx)
		done <- err
	}()

	<-f.catalog.entered
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, errors.Is(err, domain.ErrStoreUnavailable))
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}
	assert.Zero(t, f.channel.count())
}

func TestCancellationAfterFinalSendKeepsRunSuccessful(t *testing.T) {
	t.Parallel()

	f := newFixture(
		[]domain.CatalogItem{item(1, "A", horror)},
		[]domain.Subscription{byAuthor(1, 1, "A"), byAuthor(2, 2, "A")},
		fixtureOpts{workers: 1},
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.channel.afterSend = func(n int) {
		if n == 2 {
			cancel()
		}
	}

	report, err := f.pipeline.RunDailyMatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RunSucceeded, report.Status)
	assert.Equal(t, 2, report.Sent)
	assert.Zero(t, report.Failed)
}

func TestRunForDateUsesGivenDay(t *testing.T) {
	t.Parallel()

	old := item(7, "A", horror)
	old.AddedDate = today.AddDate(0, 0, -3)
	f := newFixture([]domain.CatalogItem{old, item(8, "A", horror)}, []domain.Subscription{byAuthor(1, 1, "A")}, fixtureOpts{})

	report, err := f.pipeline.RunForDate(context.Background(), old.AddedDate.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, old.AddedDate, report.Date)
	assert.Equal(t, map[int64][]int64{1: {7}}, f.channel.delivered())
}

func TestMisconfiguredPipelineFails(t *testing.T) {
	t.Parallel()

	report, err := NewPipeline(PipelineDeps{}).RunDailyMatch(context.Background())
	assert.Error(t, err)
	assert.Equal(t, domain.RunFailed, report.Status)
}
