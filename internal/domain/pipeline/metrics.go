package pipeline

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "ledger"

// Metrics holds the run counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	DocumentsTotal  *prometheus.CounterVec
	OCRFailures     prometheus.Counter
	DuplicatesTotal prometheus.Counter
	FlagsTotal      *prometheus.CounterVec
	RowsTotal       *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Labels: kind (receipt, check, statement)
		DocumentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "pipeline",
				Name:      "documents_total",
				Help:      "Documents that completed extraction, by detected kind",
			},
			[]string{"kind"},
		),

		OCRFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "pipeline",
				Name:      "ocr_failures_total",
				Help:      "Documents skipped because the OCR backend failed",
			},
		),

		DuplicatesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "pipeline",
				Name:      "duplicates_total",
				Help:      "Rows dropped as content duplicates",
			},
		),

		// Labels: flag (full flag code)
		FlagsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "triage",
				Name:      "flags_total",
				Help:      "Triage flags raised on kept rows",
			},
			[]string{"flag"},
		),

		// Labels: category
		RowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "pipeline",
				Name:      "rows_total",
				Help:      "Rows kept after deduplication, by category",
			},
			[]string{"category"},
		),

		// Labels: stage (ocr, extract, classify, normalize, validate, triage)
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Duration of each pipeline stage in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"stage"},
		),
	}
}

// Registry exposes the private registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current values in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

func (m *Metrics) observeStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
