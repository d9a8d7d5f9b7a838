// Package metrics holds the prometheus collectors for the ledger.
package metrics

import (
	"time"

	"contractledger/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "contractledger"

const (
	OutcomeAccepted = "accepted"
	OutcomeError    = "error"
)

// Metrics is safe to use through a nil pointer; every method is then a no-op.
type Metrics struct {
	activities     *prometheus.CounterVec
	contracts      *prometheus.CounterVec
	reportRuns     *prometheus.CounterVec
	reportRows     prometheus.Gauge
	reportDuration prometheus.Histogram
	importedRows   *prometheus.CounterVec
	lockWait       prometheus.Histogram
}

// New registers all collectors on registerer. A nil registerer uses the
// prometheus default.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		activities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activities_total",
			Help:      "Activity record attempts by outcome.",
		}, []string{"outcome"}),
		contracts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contracts_total",
			Help:      "Contract add attempts by outcome.",
		}, []string{"outcome"}),
		reportRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_runs_total",
			Help:      "Reconciliation report runs by status.",
		}, []string{"status"}),
		reportRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconciliation_rows",
			Help:      "Rows produced by the last reconciliation run.",
		}),
		reportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconciliation_duration_seconds",
			Help:      "Duration of reconciliation runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		importedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalogue_import_rows_total",
			Help:      "Catalogue CSV rows by result.",
		}, []string{"result"}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "customer_lock_wait_seconds",
			Help:      "Time spent waiting for a per-customer lock.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
	registerer.MustRegister(m.activities, m.contracts, m.reportRuns, m.reportRows, m.reportDuration, m.importedRows, m.lockWait)
	return m
}

// Outcome maps an operation result to a label: accepted, the rejection
// code, or error.
func Outcome(err error) string {
	if err == nil {
		return OutcomeAccepted
	}
	if ve, ok := domain.AsValidation(err); ok {
		return ve.Code
	}
	return OutcomeError
}

func (m *Metrics) ObserveActivity(err error) {
	if m == nil {
		return
	}
	m.activities.WithLabelValues(Outcome(err)).Inc()
}

func (m *Metrics) ObserveContract(err error) {
	if m == nil {
		return
	}
	m.contracts.WithLabelValues(Outcome(err)).Inc()
}

func (m *Metrics) ObserveReport(rows int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.reportDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.reportRuns.WithLabelValues("failed").Inc()
		return
	}
	m.reportRuns.WithLabelValues("succeeded").Inc()
	m.reportRows.Set(float64(rows))
}

func (m *Metrics) ObserveImport(imported, skipped int) {
	if m == nil {
		return
	}
	m.importedRows.WithLabelValues("imported").Add(float64(imported))
	m.importedRows.WithLabelValues("skipped").Add(float64(skipped))
}

func (m *Metrics) ObserveLockWait(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(elapsed.Seconds())
}
