// Package eval scores generated summaries against references with
// lexical-overlap metrics: ROUGE-1/2/L with bootstrap confidence
// aggregation, and corpus-level BLEU. Scores are diagnostic output for
// run tracking, computed after generation, never on the training path.
package eval

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/kljensen/snowball/english"
)

// Standard metric keys.
const (
	Rouge1 = "rouge1"
	Rouge2 = "rouge2"
	RougeL = "rougeL"
)

// DefaultRougeTypes is the metric set reported by summarization runs.
var DefaultRougeTypes = []string{Rouge1, Rouge2, RougeL}

// Score holds one metric's precision/recall/F1 triple.
type Score struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// RougeScorer computes ROUGE scores for (target, prediction) pairs.
type RougeScorer struct {
	types []string
	stem  bool
}

// NewRougeScorer builds a scorer for the given metric types. Stemming
// folds inflected forms together before matching, matching how reported
// summarization numbers are usually produced.
func NewRougeScorer(types []string, useStemmer bool) (*RougeScorer, error) {
	if len(types) == 0 {
		types = DefaultRougeTypes
	}
	for _, typ := range types {
		switch typ {
		case Rouge1, Rouge2, RougeL:
		default:
			return nil, fmt.Errorf("unknown rouge type %q", typ)
		}
	}
	return &RougeScorer{types: append([]string(nil), types...), stem: useStemmer}, nil
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// tokenizeText lowercases, strips everything but letters and digits, and
// optionally stems tokens longer than three characters. Short tokens are
// left alone: stemming them mangles more than it normalizes.
func (s *RougeScorer) tokenizeText(text string) []string {
	text = strings.ToLower(text)
	tokens := strings.Fields(nonAlnum.ReplaceAllString(text, " "))
	if !s.stem {
		return tokens
	}
	for i, tok := range tokens {
		if len(tok) > 3 {
			tokens[i] = english.Stem(tok, true)
		}
	}
	return tokens
}

// ScorePair scores a single prediction against its target, returning one
// Score per configured metric type.
func (s *RougeScorer) ScorePair(target, prediction string) map[string]Score {
	targetTokens := s.tokenizeText(target)
	predTokens := s.tokenizeText(prediction)

	out := make(map[string]Score, len(s.types))
	for _, typ := range s.types {
		switch typ {
		case Rouge1:
			out[typ] = ngramScore(targetTokens, predTokens, 1)
		case Rouge2:
			out[typ] = ngramScore(targetTokens, predTokens, 2)
		case RougeL:
			out[typ] = lcsScore(targetTokens, predTokens)
		}
	}
	return out
}

// ngramScore computes the clipped n-gram overlap F1 between target and
// prediction token sequences.
func ngramScore(target, pred []string, n int) Score {
	targetCounts := countNgrams(target, n)
	predCounts := countNgrams(pred, n)

	matches := 0
	for gram, count := range predCounts {
		if tc, ok := targetCounts[gram]; ok {
			matches += min(count, tc)
		}
	}
	targetTotal := max(len(target)-n+1, 0)
	predTotal := max(len(pred)-n+1, 0)
	return fMeasure(matches, targetTotal, predTotal)
}

// lcsScore computes the longest-common-subsequence F1 between target and
// prediction token sequences.
func lcsScore(target, pred []string) Score {
	return fMeasure(lcsLength(target, pred), len(target), len(pred))
}

func fMeasure(matches, targetTotal, predTotal int) Score {
	var p, r float64
	if predTotal > 0 {
		p = float64(matches) / float64(predTotal)
	}
	if targetTotal > 0 {
		r = float64(matches) / float64(targetTotal)
	}
	var f float64
	if p+r > 0 {
		f = 2 * p * r / (p + r)
	}
	return Score{Precision: p, Recall: r, F1: f}
}

func countNgrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], " ")]++
	}
	return counts
}

func lcsLength(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// CalculateRouge scores each prediction against the reference at the
// same position and bootstrap-aggregates the per-pair scores, returning
// the median resampled F1 scaled to 0-100 and rounded to four decimals
// per metric type.
func CalculateRouge(predictions, references []string, useStemmer bool, agg *BootstrapAggregator) (map[string]float64, error) {
	if len(predictions) != len(references) {
		return nil, fmt.Errorf("got %d predictions and %d references", len(predictions), len(references))
	}
	if len(predictions) == 0 {
		return nil, fmt.Errorf("no prediction/reference pairs to score")
	}
	scorer, err := NewRougeScorer(DefaultRougeTypes, useStemmer)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		agg = NewBootstrapAggregator(0, nil)
	}
	for i, pred := range predictions {
		agg.Add(scorer.ScorePair(references[i], pred))
	}
	aggregated, err := agg.Aggregate()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(aggregated))
	for key, score := range aggregated {
		out[key] = round4(score.Mid.F1 * 100)
	}
	return out, nil
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
