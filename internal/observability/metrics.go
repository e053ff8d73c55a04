package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting pipeline metrics.
//
// The metrics system is built on Prometheus and tracks:
//   - Examples encoded per split and mode
//   - Per-example encode latency
//   - Batch collation counts and trimmed widths
//   - Pad columns reclaimed by batch trimming
//   - Scoring throughput and latency per metric family
//   - Error rates categorized by component and type
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	metrics.ExampleEncoded("val", "relevance", time.Since(start).Seconds())
type Metrics struct {
	// ExamplesEncoded counts encoded examples.
	// Labels: split (train|val|test), mode (standard|relevance|query)
	ExamplesEncoded *prometheus.CounterVec

	// EncodeDuration measures per-example encode latency in seconds.
	// Labels: mode
	// Buckets: 0.5ms to 1s
	EncodeDuration *prometheus.HistogramVec

	// BatchesCollated counts collated batches.
	// Labels: split
	BatchesCollated *prometheus.CounterVec

	// BatchWidth measures post-trim batch widths in positions.
	// Labels: kind (source|target)
	// Buckets: 8 to 1024 positions
	BatchWidth *prometheus.HistogramVec

	// PadColumnsTrimmed counts pad columns removed during collation.
	// Labels: kind (source|target)
	PadColumnsTrimmed *prometheus.CounterVec

	// ScorePairs counts prediction/reference pairs scored.
	// Labels: metric (rouge|bleu)
	ScorePairs *prometheus.CounterVec

	// ScoreDuration measures corpus scoring latency in seconds.
	// Labels: metric (rouge|bleu)
	// Buckets: 1ms to 60s
	ScoreDuration *prometheus.HistogramVec

	// RegistryQueryDuration measures run registry query latency.
	// Labels: operation (insert|select|update|delete)
	// Buckets: 1ms to 5s
	RegistryQueryDuration *prometheus.HistogramVec

	// ErrorCounter tracks errors by component and error type.
	// Labels: component (dataset|align|collate|score|registry|artifacts), error_type
	ErrorCounter *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics with the
// default registry. This should be called once at application startup.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

// newMetrics registers the metric set with reg. Tests pass an isolated
// registry so repeated construction does not panic on duplicates.
func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ExamplesEncoded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "distill_examples_encoded_total",
				Help: "Total number of examples encoded by split and mode",
			},
			[]string{"split", "mode"},
		),

		EncodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distill_encode_duration_seconds",
				Help:    "Per-example encode latency in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"mode"},
		),

		BatchesCollated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "distill_batches_collated_total",
				Help: "Total number of batches collated by split",
			},
			[]string{"split"},
		),

		BatchWidth: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distill_batch_width_positions",
				Help:    "Post-trim batch width in token positions",
				Buckets: []float64{8, 16, 32, 64, 128, 256, 512, 1024},
			},
			[]string{"kind"},
		),

		PadColumnsTrimmed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "distill_pad_columns_trimmed_total",
				Help: "Total pad columns removed during batch collation",
			},
			[]string{"kind"},
		),

		ScorePairs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "distill_score_pairs_total",
				Help: "Total prediction/reference pairs scored by metric family",
			},
			[]string{"metric"},
		),

		ScoreDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distill_score_duration_seconds",
				Help:    "Corpus scoring latency in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60},
			},
			[]string{"metric"},
		),

		RegistryQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distill_registry_query_duration_seconds",
				Help:    "Run registry query latency in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation"},
		),

		ErrorCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "distill_errors_total",
				Help: "Total number of errors by component and error type",
			},
			[]string{"component", "error_type"},
		),
	}
}

// ExampleEncoded records one encoded example and its latency.
//
// Example:
//
//	start := time.Now()
//	// ... encode example ...
//	metrics.ExampleEncoded("val", "relevance", time.Since(start).Seconds())
func (m *Metrics) ExampleEncoded(split, mode string, durationSeconds float64) {
	m.ExamplesEncoded.WithLabelValues(split, mode).Inc()
	m.EncodeDuration.WithLabelValues(mode).Observe(durationSeconds)
}

// BatchCollated records a collated batch and its post-trim widths.
// trimmedSource and trimmedTarget are the pad column counts removed.
func (m *Metrics) BatchCollated(split string, sourceWidth, targetWidth, trimmedSource, trimmedTarget int) {
	m.BatchesCollated.WithLabelValues(split).Inc()
	m.BatchWidth.WithLabelValues("source").Observe(float64(sourceWidth))
	m.BatchWidth.WithLabelValues("target").Observe(float64(targetWidth))
	if trimmedSource > 0 {
		m.PadColumnsTrimmed.WithLabelValues("source").Add(float64(trimmedSource))
	}
	if trimmedTarget > 0 {
		m.PadColumnsTrimmed.WithLabelValues("target").Add(float64(trimmedTarget))
	}
}

// ScoreComputed records a corpus scoring pass.
//
// Example:
//
//	start := time.Now()
//	// ... compute ROUGE over the corpus ...
//	metrics.ScoreComputed("rouge", len(pairs), time.Since(start).Seconds())
func (m *Metrics) ScoreComputed(metric string, pairs int, durationSeconds float64) {
	m.ScorePairs.WithLabelValues(metric).Add(float64(pairs))
	m.ScoreDuration.WithLabelValues(metric).Observe(durationSeconds)
}

// RegistryQuery records a run registry query.
func (m *Metrics) RegistryQuery(operation string, durationSeconds float64) {
	m.RegistryQueryDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordError increments the error counter for a given component and error type.
//
// Example:
//
//	metrics.RecordError("dataset", "empty_line")
//	metrics.RecordError("align", "score_count_mismatch")
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorCounter.WithLabelValues(component, errorType).Inc()
}
