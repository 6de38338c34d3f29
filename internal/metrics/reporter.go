// Package metrics pushes per-run synchronisation metrics to a Prometheus Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/sirupsen/logrus"

	"github.com/epsomandewellharriers/spond_sync/internal/reconcile"
	"github.com/epsomandewellharriers/spond_sync/internal/sync"
)

const namespace = "spond_sync"

// Reporter implements sync.Observer by pushing run metrics after every run
type Reporter struct {
	url    string
	job    string
	client *http.Client

	actions     *prometheus.GaugeVec
	quarantined prometheus.Gauge
	lastRun     prometheus.Gauge
	lastSuccess prometheus.Gauge
	duration    prometheus.Gauge
	failed      prometheus.Gauge
}

// NewReporter creates a reporter pushing to the gateway at url under job
func NewReporter(url, job string, client *http.Client) *Reporter {
	if client == nil {
		client = &http.Client{}
	}
	return &Reporter{
		url:    url,
		job:    job,
		client: client,
		actions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_actions",
			Help:      "Fixtures inserted, updated or deleted by the last run",
		}, []string{"action"}),
		quarantined: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quarantined_records",
			Help:      "Records skipped in the last run because they could not be mapped",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix timestamp of the last run",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful run",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_failed",
			Help:      "1 if the last run failed, 0 otherwise",
		}),
	}
}

// ObserveRun records summary and pushes it. Each run is its own process, so
// action counts are gauges of the last run rather than counters. A failed run
// leaves the last success timestamp on the gateway untouched. Dry runs apply
// nothing and report zero actions.
func (r *Reporter) ObserveRun(ctx context.Context, summary sync.Summary, runErr error) error {
	applied := map[reconcile.Kind]int{
		reconcile.KindInsert: summary.Inserted,
		reconcile.KindUpdate: summary.Updated,
		reconcile.KindDelete: summary.Deleted,
	}
	for kind, n := range applied {
		if summary.DryRun {
			n = 0
		}
		r.actions.WithLabelValues(string(kind)).Set(float64(n))
	}
	r.quarantined.Set(float64(summary.Quarantined))
	r.lastRun.Set(float64(summary.Finished.Unix()))
	r.duration.Set(summary.Finished.Sub(summary.Started).Seconds())

	pusher := push.New(r.url, r.job).
		Client(r.client).
		Collector(r.actions).
		Collector(r.quarantined).
		Collector(r.lastRun).
		Collector(r.duration).
		Collector(r.failed)

	r.failed.Set(0)
	if runErr != nil {
		r.failed.Set(1)
	} else if !summary.DryRun {
		r.lastSuccess.Set(float64(summary.Finished.Unix()))
		pusher = pusher.Collector(r.lastSuccess)
	}

	// POST replaces only the pushed metric names, keeping last success
	if err := pusher.AddContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", r.url, err)
	}
	logrus.WithFields(logrus.Fields{
		"gateway": r.url,
		"job":     r.job,
	}).Debug("Pushed run metrics")
	return nil
}
