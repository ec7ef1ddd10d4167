// Package metrics exposes run and delivery counters to operators.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/ports"
)

const defaultNamespace = "catalog_notifier"

// Prometheus implements ports.Metrics. Failed runs and zero-match successful
// runs land in different runs_total series; every per-subscriber delivery
// failure increments dispatch_total{status="failed"}.
type Prometheus struct {
	runs            *prometheus.CounterVec
	runDuration     prometheus.Histogram
	lastSuccess     prometheus.Gauge
	lastSubscribers prometheus.Gauge
	dispatches      *prometheus.CounterVec
	matched         prometheus.Counter
	malformed       prometheus.Counter
}

var _ ports.Metrics = (*Prometheus)(nil)

// NewPrometheus registers the collectors on reg (prometheus.DefaultRegisterer when nil).
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = defaultNamespace
	}

	p := &Prometheus{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Daily match runs by result (succeeded, failed, skipped).",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of completed runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		lastSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_subscribers",
			Help:      "Subscribers with at least one match in the last finished run.",
		}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Per-subscriber notifications by status (sent, failed, skipped).",
		}, []string{"status"}),
		matched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matched_pairs_total",
			Help:      "Subscriber/item pairs produced by the matcher.",
		}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_subscriptions_total",
			Help:      "Subscriptions without any filter encountered during scans.",
		}),
	}

	for _, c := range []prometheus.Collector{
		p.runs, p.runDuration, p.lastSuccess, p.lastSubscribers, p.dispatches, p.matched, p.malformed,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return p, nil
}

func (p *Prometheus) RunFinished(report domain.RunReport) {
	p.runs.WithLabelValues(string(report.Status)).Inc()
	if report.Status == domain.RunSkipped {
		return
	}
	p.runDuration.Observe(report.Duration().Seconds())
	p.lastSubscribers.Set(float64(report.Subscribers))
	if report.Status == domain.RunSucceeded {
		p.lastSuccess.Set(float64(report.FinishedAt.Unix()))
	}
}

func (p *Prometheus) DispatchFinished(outcome domain.DispatchOutcome) {
	p.dispatches.WithLabelValues(string(outcome.Status)).Inc()
}

func (p *Prometheus) MatchedPairs(n int) {
	p.matched.Add(float64(n))
}

func (p *Prometheus) MalformedSubscription() {
	p.malformed.Inc()
}
