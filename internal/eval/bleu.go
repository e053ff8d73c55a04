package eval

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

const bleuOrder = 4

var punct = regexp.MustCompile(`([^\p{L}\p{N}\s])`)

// bleuTokenize pads punctuation with spaces and splits on whitespace,
// keeping case, which mirrors how international BLEU tooling prepares
// text before n-gram counting.
func bleuTokenize(text string) []string {
	return strings.Fields(punct.ReplaceAllString(text, " $1 "))
}

// CalculateBLEU computes corpus-level BLEU-4 with exponential smoothing
// for empty n-gram matches and a brevity penalty for short output,
// returning {"bleu": score} on the 0-100 scale rounded to four decimals.
func CalculateBLEU(predictions, references []string) (map[string]float64, error) {
	if len(predictions) != len(references) {
		return nil, fmt.Errorf("got %d predictions and %d references", len(predictions), len(references))
	}
	if len(predictions) == 0 {
		return nil, fmt.Errorf("no prediction/reference pairs to score")
	}

	var matches, totals [bleuOrder]int
	predLen, refLen := 0, 0
	for i, prediction := range predictions {
		pred := bleuTokenize(prediction)
		ref := bleuTokenize(references[i])
		predLen += len(pred)
		refLen += len(ref)
		for n := 1; n <= bleuOrder; n++ {
			predCounts := countNgrams(pred, n)
			refCounts := countNgrams(ref, n)
			for gram, count := range predCounts {
				totals[n-1] += count
				if rc, ok := refCounts[gram]; ok {
					matches[n-1] += min(count, rc)
				}
			}
		}
	}

	// A corpus too short to form full-order n-grams scores zero.
	for n := 0; n < bleuOrder; n++ {
		if totals[n] == 0 {
			return map[string]float64{"bleu": 0}, nil
		}
	}

	smooth := 1.0
	logSum := 0.0
	for n := 0; n < bleuOrder; n++ {
		var precision float64
		if matches[n] == 0 {
			smooth *= 2
			precision = 100 / (smooth * float64(totals[n]))
		} else {
			precision = 100 * float64(matches[n]) / float64(totals[n])
		}
		logSum += math.Log(precision)
	}

	brevity := 1.0
	if predLen < refLen {
		brevity = math.Exp(1 - float64(refLen)/float64(predLen))
	}

	score := brevity * math.Exp(logSum/bleuOrder)
	return map[string]float64{"bleu": round4(score)}, nil
}
