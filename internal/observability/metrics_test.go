package observability

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics() *Metrics {
	return newMetrics(prometheus.NewRegistry())
}

func TestExampleEncoded(t *testing.T) {
	m := newTestMetrics()

	m.ExampleEncoded("val", "relevance", 0.002)
	m.ExampleEncoded("val", "relevance", 0.003)
	m.ExampleEncoded("test", "standard", 0.001)

	expected := `
		# HELP distill_examples_encoded_total Total number of examples encoded by split and mode
		# TYPE distill_examples_encoded_total counter
		distill_examples_encoded_total{mode="relevance",split="val"} 2
		distill_examples_encoded_total{mode="standard",split="test"} 1
	`
	if err := testutil.CollectAndCompare(m.ExamplesEncoded, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected counter state: %v", err)
	}

	if count := testutil.CollectAndCount(m.EncodeDuration); count != 2 {
		t.Errorf("EncodeDuration has %d series, want 2", count)
	}
}

func TestBatchCollated(t *testing.T) {
	m := newTestMetrics()

	m.BatchCollated("val", 128, 40, 5, 0)
	m.BatchCollated("val", 96, 32, 3, 2)

	if got := testutil.ToFloat64(m.BatchesCollated.WithLabelValues("val")); got != 2 {
		t.Errorf("BatchesCollated = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.PadColumnsTrimmed.WithLabelValues("source")); got != 8 {
		t.Errorf("PadColumnsTrimmed source = %v, want 8", got)
	}
	if got := testutil.ToFloat64(m.PadColumnsTrimmed.WithLabelValues("target")); got != 2 {
		t.Errorf("PadColumnsTrimmed target = %v, want 2", got)
	}
	if count := testutil.CollectAndCount(m.BatchWidth); count != 2 {
		t.Errorf("BatchWidth has %d series, want 2", count)
	}
}

func TestScoreComputed(t *testing.T) {
	m := newTestMetrics()

	m.ScoreComputed("rouge", 100, 0.5)
	m.ScoreComputed("rouge", 50, 0.2)
	m.ScoreComputed("bleu", 100, 0.1)

	if got := testutil.ToFloat64(m.ScorePairs.WithLabelValues("rouge")); got != 150 {
		t.Errorf("ScorePairs rouge = %v, want 150", got)
	}
	if got := testutil.ToFloat64(m.ScorePairs.WithLabelValues("bleu")); got != 100 {
		t.Errorf("ScorePairs bleu = %v, want 100", got)
	}
}

func TestRecordError(t *testing.T) {
	m := newTestMetrics()

	m.RecordError("dataset", "empty_line")
	m.RecordError("dataset", "empty_line")
	m.RecordError("align", "score_count_mismatch")

	if got := testutil.ToFloat64(m.ErrorCounter.WithLabelValues("dataset", "empty_line")); got != 2 {
		t.Errorf("ErrorCounter dataset/empty_line = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ErrorCounter.WithLabelValues("align", "score_count_mismatch")); got != 1 {
		t.Errorf("ErrorCounter align/score_count_mismatch = %v, want 1", got)
	}
}

func TestRegistryQuery(t *testing.T) {
	m := newTestMetrics()

	m.RegistryQuery("insert", 0.004)
	m.RegistryQuery("select", 0.001)

	if count := testutil.CollectAndCount(m.RegistryQueryDuration); count != 2 {
		t.Errorf("RegistryQueryDuration has %d series, want 2", count)
	}
}
