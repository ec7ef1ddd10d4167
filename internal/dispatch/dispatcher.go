// Package dispatch sends one consolidated notification per subscriber.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"CatalogNotifier/internal/aggregate"
	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/ports"
)

// Deps wires the collaborators a Dispatcher needs.
type Deps struct {
	Directory ports.CustomerDirectory
	Channel   ports.MessageChannel
	Renderer  ports.Renderer
	Metrics   ports.Metrics
	Workers   int
	Logger    *slog.Logger
}

// Dispatcher resolves, renders and sends notifications. Failures are isolated per subscriber.
type Dispatcher struct {
	directory ports.CustomerDirectory
	channel   ports.MessageChannel
	renderer  ports.Renderer
	metrics   ports.Metrics
	workers   int
	logger    *slog.Logger
}

// Summary collects the outcome of every attempted subscriber.
type Summary struct {
	Outcomes     []domain.DispatchOutcome
	Sent         int
	Failed       int
	Skipped      int
	NotAttempted int
}

// New builds a dispatcher; Workers below 1 means sequential delivery.
func New(deps Deps) *Dispatcher {
	workers := deps.Workers
	if workers < 1 {
		workers = 1
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		directory: deps.Directory,
		channel:   deps.Channel,
		renderer:  deps.Renderer,
		metrics:   deps.Metrics,
		workers:   workers,
		logger:    logger,
	}
}

// Dispatch notifies one subscriber about all of its items in a single message.
func (d *Dispatcher) Dispatch(ctx context.Context, subscriberID int64, items []domain.CatalogItem) domain.DispatchOutcome {
	outcome := domain.DispatchOutcome{SubscriberID: subscriberID, Items: len(items)}
	outcome.Err = d.deliver(ctx, subscriberID, items)

	switch {
	case outcome.Err == nil:
		outcome.Status = domain.DeliverySent
		d.logger.Debug("notification sent", "subscriber_id", subscriberID, "items", len(items))
	case errors.Is(outcome.Err, domain.ErrContactUnconfirmed):
		outcome.Status = domain.DeliverySkipped
		d.logger.Info("subscriber skipped", "subscriber_id", subscriberID, "reason", errorClass(outcome.Err))
	default:
		outcome.Status = domain.DeliveryFailed
		d.logger.Warn("notification failed",
			"subscriber_id", subscriberID,
			"items", len(items),
			"class", errorClass(outcome.Err),
			"error", outcome.Err,
		)
	}

	if d.metrics != nil {
		d.metrics.DispatchFinished(outcome)
	}
	return outcome
}

func (d *Dispatcher) deliver(ctx context.Context, subscriberID int64, items []domain.CatalogItem) error {
	if d.directory == nil || d.channel == nil || d.renderer == nil {
		return fmt.Errorf("dispatcher misconfigured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	contact, err := d.directory.ResolveContact(ctx, subscriberID)
	if err != nil {
		return fmt.Errorf("resolve contact: %w", err)
	}

	envelope, err := d.renderer.Render(contact, items)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if err := d.channel.Send(ctx, envelope); err != nil {
		return fmt.Errorf("send via %s: %w", d.channel.Name(), err)
	}
	return nil
}

// DispatchAll fans bundles out to the worker pool and waits for every
// started delivery. Bundles are only read. Once ctx is cancelled no new
// deliveries start; ctx's error is returned with the partial summary only if
// a bundle was left unsent or a delivery was cut short by the cancellation.
func (d *Dispatcher) DispatchAll(ctx context.Context, bundles []aggregate.Bundle) (Summary, error) {
	outcomes := make([]domain.DispatchOutcome, len(bundles))
	started := make([]bool, len(bundles))

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, bundle := range bundles {
		if ctx.Err() != nil {
			break
		}
		started[i] = true
		g.Go(func() error {
			outcomes[i] = d.Dispatch(ctx, bundle.SubscriberID, bundle.Items)
			return nil
		})
	}
	_ = g.Wait()

	var (
		summary     Summary
		interrupted bool
	)
	for i, ok := range started {
		if !ok {
			summary.NotAttempted++
			continue
		}
		o := outcomes[i]
		summary.Outcomes = append(summary.Outcomes, o)
		switch o.Status {
		case domain.DeliverySent:
			summary.Sent++
		case domain.DeliverySkipped:
			summary.Skipped++
		default:
			summary.Failed++
			if errors.Is(o.Err, context.Canceled) || errors.Is(o.Err, context.DeadlineExceeded) {
				interrupted = true
			}
		}
	}

	if err := ctx.Err(); err != nil && (interrupted || summary.NotAttempted > 0) {
		return summary, err
	}
	return summary, nil
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, domain.ErrContactNotFound):
		return "contact_not_found"
	case errors.Is(err, domain.ErrContactUnconfirmed):
		return "contact_unconfirmed"
	case errors.Is(err, domain.ErrTransientSend):
		return "transient"
	case errors.Is(err, domain.ErrPermanentSend):
		return "permanent"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "unknown"
	}
}
