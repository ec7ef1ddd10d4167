package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"CatalogNotifier/internal/aggregate"
	"CatalogNotifier/internal/cursor"
	"CatalogNotifier/internal/dispatch"
	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/matcher"
	"CatalogNotifier/internal/metrics"
	"CatalogNotifier/internal/ports"
)

const (
	DefaultCatalogPageSize       = 5000
	DefaultSubscriptionBatchSize = 250
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Catalog               ports.CatalogStore
	Subscriptions         ports.SubscriptionStore
	Dispatcher            *dispatch.Dispatcher
	Metrics               ports.Metrics
	Logger                *slog.Logger
	CatalogPageSize       int
	SubscriptionBatchSize int
	PreloadSubscriptions  bool
	Location              *time.Location
	Now                   func() time.Time
}

// Pipeline implements the daily subscription-matching workflow.
// At most one run is active at a time.
type Pipeline struct {
	catalog       ports.CatalogStore
	subscriptions ports.SubscriptionStore
	dispatcher    *dispatch.Dispatcher
	metrics       ports.Metrics
	logger        *slog.Logger
	pageSize      int
	batchSize     int
	preload       bool
	location      *time.Location
	now           func() time.Time

	running atomic.Bool
	state   atomic.Int32
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		catalog:       deps.Catalog,
		subscriptions: deps.Subscriptions,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		pageSize:      deps.CatalogPageSize,
		batchSize:     deps.SubscriptionBatchSize,
		preload:       deps.PreloadSubscriptions,
		location:      deps.Location,
		now:           deps.Now,
	}
	if p.metrics == nil {
		p.metrics = metrics.Nop{}
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.pageSize < 1 {
		p.pageSize = DefaultCatalogPageSize
	}
	if p.batchSize < 1 {
		p.batchSize = DefaultSubscriptionBatchSize
	}
	if p.location == nil {
		p.location = time.UTC
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// State returns the current stage of the state machine.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

func (p *Pipeline) setState(s State) {
	p.state.Store(int32(s))
}

// RunDailyMatch processes the items added today in the pipeline's time zone.
func (p *Pipeline) RunDailyMatch(ctx context.Context) (domain.RunReport, error) {
	return p.RunForDate(ctx, p.now().In(p.location))
}

// RunForDate scans the items added on day, matches them against every active
// subscription and sends one notification per matched subscriber.
//
// A store failure or cancellation during the scan aborts the run before any
// notification is sent. Per-subscriber delivery failures are counted in the
// report and do not fail the run. If another run is active the call returns
// domain.ErrRunInProgress without doing anything.
func (p *Pipeline) RunForDate(ctx context.Context, day time.Time) (domain.RunReport, error) {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Info("run skipped: another run is active", "date", domain.Day(day).Format(domain.DateLayout))
		report := domain.RunReport{Date: domain.Day(day), Status: domain.RunSkipped, Err: domain.ErrRunInProgress}
		p.metrics.RunFinished(report)
		return report, domain.ErrRunInProgress
	}
	defer p.running.Store(false)
	defer p.setState(StateIdle)

	report := domain.RunReport{
		RunID:     uuid.NewString(),
		Date:      domain.Day(day),
		StartedAt: p.now(),
	}
	logger := p.logger.With("run_id", report.RunID, "date", report.Date.Format(domain.DateLayout))
	logger.Info("run started")

	if p.catalog == nil || p.subscriptions == nil || p.dispatcher == nil {
		return p.fail(logger, report, fmt.Errorf("pipeline misconfigured"))
	}

	acc, err := p.scan(ctx, logger, &report)
	if err != nil {
		return p.fail(logger, report, err)
	}

	p.setState(StateDispatching)
	bundles := acc.Freeze()
	report.Subscribers = len(bundles)
	if len(bundles) > 0 {
		summary, err := p.dispatcher.DispatchAll(ctx, bundles)
		report.Sent = summary.Sent
		report.Failed = summary.Failed
		report.Skipped = summary.Skipped
		if err != nil {
			return p.fail(logger, report, fmt.Errorf("dispatch interrupted after %d of %d subscribers: %w",
				len(summary.Outcomes), len(bundles), err))
		}
	}

	report.Status = domain.RunSucceeded
	report.FinishedAt = p.now()
	p.metrics.RunFinished(report)
	logger.Info("run finished",
		"items", report.ItemsScanned,
		"matched_pairs", report.MatchedPairs,
		"subscribers", report.Subscribers,
		"sent", report.Sent,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"duration", report.Duration(),
	)
	return report, nil
}

// scan walks every catalog page against the full subscription set. The
// returned accumulator is complete; on error it is dropped by the caller.
func (p *Pipeline) scan(ctx context.Context, logger *slog.Logger, report *domain.RunReport) (*aggregate.Accumulator, error) {
	p.setState(StateCatalogScan)

	acc := aggregate.New()
	items := cursor.NewCatalogCursor(p.catalog, report.Date, p.pageSize)
	subs := p.subscriptionSource()
	malformed := map[int64]struct{}{}

	for {
		batch, more, err := items.NextBatch(ctx)
		if err != nil {
			return nil, fmt.Errorf("catalog page %d: %w", items.Pages()+1, err)
		}
		report.ItemBatches++
		report.ItemsScanned += len(batch)

		if len(batch) > 0 {
			p.setState(StateSubscriptionScan)
			err := subs.Walk(ctx, func(subBatch []domain.Subscription) error {
				report.SubscriptionBatches++
				for _, bad := range matcher.Malformed(subBatch) {
					if _, seen := malformed[bad.ID]; seen {
						continue
					}
					malformed[bad.ID] = struct{}{}
					report.MalformedSeen++
					p.metrics.MalformedSubscription()
					logger.Warn("subscription has no filter, ignoring", "subscription_id", bad.ID, "subscriber_id", bad.SubscriberID)
				}

				pairs := matcher.Match(batch, subBatch)
				p.setState(StateAggregating)
				acc.Fold(pairs)
				p.setState(StateSubscriptionScan)

				report.MatchedPairs += len(pairs)
				p.metrics.MatchedPairs(len(pairs))
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("subscription scan for catalog page %d: %w", items.Pages(), err)
			}
			p.setState(StateCatalogScan)
		}

		if !more {
			return acc, nil
		}
	}
}

func (p *Pipeline) fail(logger *slog.Logger, report domain.RunReport, err error) (domain.RunReport, error) {
	report.Status = domain.RunFailed
	report.Err = err
	report.FinishedAt = p.now()
	p.metrics.RunFinished(report)

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Warn("run cancelled", "error", err, "sent", report.Sent)
	case errors.Is(err, domain.ErrStoreUnavailable):
		logger.Error("run aborted: store unavailable, nothing dispatched", "error", err)
	default:
		logger.Error("run failed", "error", err)
	}
	return report, err
}

type subscriptionWalker interface {
	Walk(ctx context.Context, visit func([]domain.Subscription) error) error
}

func (p *Pipeline) subscriptionSource() subscriptionWalker {
	c := cursor.NewSubscriptionCursor(p.subscriptions, p.batchSize)
	if p.preload {
		return &preloadedSubscriptions{cursor: c}
	}
	return c
}

// preloadedSubscriptions reads the subscription set once per run and replays
// it for every catalog page.
type preloadedSubscriptions struct {
	cursor  *cursor.SubscriptionCursor
	batches [][]domain.Subscription
	loaded  bool
}

func (s *preloadedSubscriptions) Walk(ctx context.Context, visit func([]domain.Subscription) error) error {
	if !s.loaded {
		err := s.cursor.Walk(ctx, func(batch []domain.Subscription) error {
			s.batches = append(s.batches, batch)
			return nil
		})
		if err != nil {
			s.batches = nil
			return err
		}
		s.loaded = true
	}
	for _, batch := range s.batches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := visit(batch); err != nil {
			return err
		}
	}
	return nil
}
