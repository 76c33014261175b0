package receipt

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks pipeline runs by outcome and how much each run extracted.
type Metrics struct {
	Runs           *prometheus.CounterVec
	ItemsExtracted prometheus.Histogram
	RunDuration    prometheus.Histogram
}

// NewMetrics registers the pipeline metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "receipt_processing_runs_total",
			Help: "Receipt processing runs by outcome",
		}, []string{"outcome"}),
		ItemsExtracted: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "receipt_items_extracted",
			Help:    "Line items extracted per processed receipt",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "receipt_processing_duration_seconds",
			Help:    "Duration of a processing run including analysis and persistence",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveRun records one finished run.
// Call with time.Now() taken at the start of the run.
func (m *Metrics) ObserveRun(result Result, start time.Time) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(result.Outcome.String()).Inc()
	m.RunDuration.Observe(time.Since(start).Seconds())
	if result.Receipt != nil {
		m.ItemsExtracted.Observe(float64(len(result.Receipt.Items)))
	}
}
