package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes Prometheus metrics for an audit run.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// Counters
	verificationsTotal *prometheus.CounterVec
	batchesTotal       prometheus.Counter
	runsTotal          *prometheus.CounterVec
	checkpointErrors   prometheus.Counter

	// Gauges
	cursor     prometheus.Gauge
	upperBound prometheus.Gauge

	// Histograms
	verifyDuration prometheus.Histogram
	batchDuration  prometheus.Histogram
}

// NewCollector creates a collector on its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),

		verificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imgaudit_verifications_total",
				Help: "Total number of image verifications by outcome",
			},
			[]string{"outcome"}, // ok, corrupted
		),

		batchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "imgaudit_batches_total",
				Help: "Total number of committed batches",
			},
		),

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imgaudit_runs_total",
				Help: "Total number of scan runs by outcome",
			},
			[]string{"outcome"}, // completed, failed, interrupted
		),

		checkpointErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "imgaudit_checkpoint_write_errors_total",
				Help: "Total number of failed checkpoint writes",
			},
		),

		cursor: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "imgaudit_cursor",
				Help: "Last committed row id",
			},
		),

		upperBound: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "imgaudit_upper_bound",
				Help: "Largest row id at the start of the run",
			},
		),

		verifyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "imgaudit_verify_duration_seconds",
				Help:    "Time spent verifying one image including retries",
				Buckets: prometheus.DefBuckets,
			},
		),

		batchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "imgaudit_batch_duration_seconds",
				Help:    "Time spent on one batch from fetch to checkpoint",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
	}

	c.registry.MustRegister(
		c.verificationsTotal,
		c.batchesTotal,
		c.runsTotal,
		c.checkpointErrors,
		c.cursor,
		c.upperBound,
		c.verifyDuration,
		c.batchDuration,
	)

	return c
}

// Handler returns the HTTP handler for the metrics endpoint
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveVerification records one image verdict
func (c *Collector) ObserveVerification(corrupted bool, d time.Duration) {
	if c == nil {
		return
	}
	outcome := "ok"
	if corrupted {
		outcome = "corrupted"
	}
	c.verificationsTotal.WithLabelValues(outcome).Inc()
	c.verifyDuration.Observe(d.Seconds())
}

// ObserveBatch records a committed batch and the new cursor
func (c *Collector) ObserveBatch(cursor int64, d time.Duration) {
	if c == nil {
		return
	}
	c.batchesTotal.Inc()
	c.cursor.Set(float64(cursor))
	c.batchDuration.Observe(d.Seconds())
}

// SetUpperBound records the run's upper bound
func (c *Collector) SetUpperBound(id int64) {
	if c == nil {
		return
	}
	c.upperBound.Set(float64(id))
}

// SetCursor records the cursor without counting a batch
func (c *Collector) SetCursor(id int64) {
	if c == nil {
		return
	}
	c.cursor.Set(float64(id))
}

// CheckpointWriteFailed counts a failed checkpoint write
func (c *Collector) CheckpointWriteFailed() {
	if c == nil {
		return
	}
	c.checkpointErrors.Inc()
}

// RunFinished counts a run by outcome
func (c *Collector) RunFinished(outcome string) {
	if c == nil {
		return
	}
	c.runsTotal.WithLabelValues(outcome).Inc()
}
