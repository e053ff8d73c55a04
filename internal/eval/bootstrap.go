package eval

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultBootstrapSamples is how many resamples back the confidence
// interval of an aggregated metric.
const DefaultBootstrapSamples = 1000

// AggregateScore is a metric's bootstrap summary: the 2.5th, 50th, and
// 97.5th percentiles of resampled means.
type AggregateScore struct {
	Low  Score `json:"low"`
	Mid  Score `json:"mid"`
	High Score `json:"high"`
}

// BootstrapAggregator collects per-pair scores and summarizes them by
// resampling with replacement, so reported metrics carry a confidence
// band instead of a bare mean.
type BootstrapAggregator struct {
	nSamples int
	rng      *rand.Rand
	scores   map[string][]Score
}

// NewBootstrapAggregator builds an aggregator. nSamples <= 0 selects
// DefaultBootstrapSamples; rng may be nil for a time-seeded source, or
// seeded for reproducible intervals.
func NewBootstrapAggregator(nSamples int, rng *rand.Rand) *BootstrapAggregator {
	if nSamples <= 0 {
		nSamples = DefaultBootstrapSamples
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &BootstrapAggregator{
		nSamples: nSamples,
		rng:      rng,
		scores:   make(map[string][]Score),
	}
}

// Add records one example's scores, keyed by metric type.
func (a *BootstrapAggregator) Add(scores map[string]Score) {
	for key, score := range scores {
		a.scores[key] = append(a.scores[key], score)
	}
}

// Aggregate resamples the collected scores and returns per-metric
// percentile summaries.
func (a *BootstrapAggregator) Aggregate() (map[string]AggregateScore, error) {
	if len(a.scores) == 0 {
		return nil, fmt.Errorf("no scores collected")
	}
	out := make(map[string]AggregateScore, len(a.scores))
	for key, scores := range a.scores {
		precisions := make([]float64, a.nSamples)
		recalls := make([]float64, a.nSamples)
		f1s := make([]float64, a.nSamples)
		for rep := 0; rep < a.nSamples; rep++ {
			var sum Score
			for i := 0; i < len(scores); i++ {
				s := scores[a.rng.Intn(len(scores))]
				sum.Precision += s.Precision
				sum.Recall += s.Recall
				sum.F1 += s.F1
			}
			n := float64(len(scores))
			precisions[rep] = sum.Precision / n
			recalls[rep] = sum.Recall / n
			f1s[rep] = sum.F1 / n
		}
		out[key] = AggregateScore{
			Low:  percentileScore(precisions, recalls, f1s, 0.025),
			Mid:  percentileScore(precisions, recalls, f1s, 0.5),
			High: percentileScore(precisions, recalls, f1s, 0.975),
		}
	}
	return out, nil
}

// percentileScore reads one percentile from each resampled-mean series.
// The slices are sorted in place on first use; sorting an already sorted
// slice is cheap, so repeated calls stay correct.
func percentileScore(precisions, recalls, f1s []float64, q float64) Score {
	sort.Float64s(precisions)
	sort.Float64s(recalls)
	sort.Float64s(f1s)
	return Score{
		Precision: stat.Quantile(q, stat.LinInterp, precisions, nil),
		Recall:    stat.Quantile(q, stat.LinInterp, recalls, nil),
		F1:        stat.Quantile(q, stat.LinInterp, f1s, nil),
	}
}
