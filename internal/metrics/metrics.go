// Package metrics holds the sync job's Prometheus collectors.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/g33ktony/hot-wheels-manager-sub006/internal/domain"
)

// Sync records one process's crawl counters on a private registry, so a
// short-lived job can push them to a Pushgateway when it finishes.
type Sync struct {
	reg *prometheus.Registry

	// BatchesTotal counts fetched batches.
	BatchesTotal prometheus.Counter
	// FetchRetriesTotal counts retried batch fetches.
	FetchRetriesTotal prometheus.Counter
	// FetchDurationSeconds measures one batch request including retries.
	FetchDurationSeconds prometheus.Histogram
	// PagesTotal counts validation outcomes by verdict.
	PagesTotal *prometheus.CounterVec
	// UpsertsTotal counts catalog writes by outcome.
	UpsertsTotal *prometheus.CounterVec
	// FailuresTotal counts report failures by class.
	FailuresTotal *prometheus.CounterVec
}

// NewSync creates and registers the collectors.
func NewSync() *Sync {
	m := &Sync{
		reg: prometheus.NewRegistry(),
		BatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogsync_batches_total",
			Help: "Total fetched page batches",
		}),
		FetchRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogsync_fetch_retries_total",
			Help: "Total retried batch fetches",
		}),
		FetchDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalogsync_fetch_duration_seconds",
			Help:    "Batch fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		PagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalogsync_validation_outcomes_total",
				Help: "Validation outcomes by verdict",
			},
			[]string{"verdict"},
		),
		UpsertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalogsync_upserts_total",
				Help: "Catalog upserts by outcome",
			},
			[]string{"outcome"},
		),
		FailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalogsync_failures_total",
				Help: "Report failures by class",
			},
			[]string{"class"},
		),
	}
	m.reg.MustRegister(
		m.BatchesTotal,
		m.FetchRetriesTotal,
		m.FetchDurationSeconds,
		m.PagesTotal,
		m.UpsertsTotal,
		m.FailuresTotal,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Sync) Registry() *prometheus.Registry { return m.reg }

func (m *Sync) BatchFetched(d time.Duration) {
	m.BatchesTotal.Inc()
	m.FetchDurationSeconds.Observe(d.Seconds())
}

func (m *Sync) FetchRetried() { m.FetchRetriesTotal.Inc() }

func (m *Sync) Validated(v domain.Verdict) { m.PagesTotal.WithLabelValues(string(v)).Inc() }

func (m *Sync) Upserted(o domain.UpsertOutcome) { m.UpsertsTotal.WithLabelValues(string(o)).Inc() }

func (m *Sync) Failed(c domain.FailureClass) { m.FailuresTotal.WithLabelValues(string(c)).Inc() }

// Push sends the current values to the Pushgateway at url under job,
// replacing the job's previous group.
func (m *Sync) Push(url, job string) error {
	if err := push.New(url, job).Gatherer(m.reg).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
