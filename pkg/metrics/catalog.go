package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CatalogMetrics records product type saves, deletes and the cascades they run.
type CatalogMetrics struct {
	duration *prometheus.HistogramVec
	outcome  *prometheus.CounterVec
	cascade  *prometheus.CounterVec
}

// NewCatalogMetrics registers the catalog metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewCatalogMetrics(reg prometheus.Registerer) *CatalogMetrics {
	if reg == nil {
		return &CatalogMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_operation_duration_seconds",
		Help:    "Duration of product type saves and deletes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	outcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_operation_total",
		Help: "Product type saves and deletes by outcome.",
	}, []string{"operation", "outcome"})
	cascade := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cascade_rows_total",
		Help: "Rows touched by product type cascades.",
	}, []string{"cascade"})
	reg.MustRegister(duration, outcome, cascade)
	return &CatalogMetrics{
		duration: duration,
		outcome:  outcome,
		cascade:  cascade,
	}
}

// ObserveDuration records how long the operation took.
func (c *CatalogMetrics) ObserveDuration(operation string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncCommitted counts a committed operation.
func (c *CatalogMetrics) IncCommitted(operation string) {
	if c == nil || c.outcome == nil {
		return
	}
	c.outcome.WithLabelValues(normalizeLabel(operation), "committed").Inc()
}

// IncRolledBack counts an operation that failed inside its transaction.
func (c *CatalogMetrics) IncRolledBack(operation string) {
	if c == nil || c.outcome == nil {
		return
	}
	c.outcome.WithLabelValues(normalizeLabel(operation), "rolled_back").Inc()
}

// IncRejected counts an operation refused before any transaction opened.
func (c *CatalogMetrics) IncRejected(operation string) {
	if c == nil || c.outcome == nil {
		return
	}
	c.outcome.WithLabelValues(normalizeLabel(operation), "rejected").Inc()
}

// AddCascadeRows adds the number of rows a cascade touched.
func (c *CatalogMetrics) AddCascadeRows(cascade string, rows int) {
	if c == nil || c.cascade == nil || rows <= 0 {
		return
	}
	c.cascade.WithLabelValues(normalizeLabel(cascade)).Add(float64(rows))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
