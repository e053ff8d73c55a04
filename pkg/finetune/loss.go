// Package finetune holds training-support utilities that sit next to the
// data pipeline: label-smoothed negative log-likelihood, parameter
// freezing diagnostics, and task-specific config application.
package finetune

import "fmt"

// DefaultIgnoreIndex marks padded target positions that contribute no
// loss.
const DefaultIgnoreIndex = -100

// LabelSmoothedNLL computes summed label-smoothed negative log-likelihood
// over a sequence of vocabulary log-probability rows. Positions whose
// target equals ignoreIndex are masked out entirely. It returns both the
// smoothed loss and the unsmoothed NLL so callers can report perplexity
// from the latter.
func LabelSmoothedNLL(lprobs [][]float64, targets []int, epsilon float64, ignoreIndex int) (loss, nll float64, err error) {
	if len(lprobs) != len(targets) {
		return 0, 0, fmt.Errorf("got %d log-prob rows and %d targets", len(lprobs), len(targets))
	}
	if len(lprobs) == 0 {
		return 0, 0, nil
	}
	vocab := len(lprobs[0])
	if vocab == 0 {
		return 0, 0, fmt.Errorf("log-prob rows must not be empty")
	}

	var nllSum, smoothSum float64
	for i, row := range lprobs {
		if len(row) != vocab {
			return 0, 0, fmt.Errorf("log-prob row %d has %d entries, want %d", i, len(row), vocab)
		}
		target := targets[i]
		if target == ignoreIndex {
			continue
		}
		if target < 0 || target >= vocab {
			return 0, 0, fmt.Errorf("target %d at position %d outside vocabulary of size %d", target, i, vocab)
		}
		nllSum += -row[target]
		for _, lp := range row {
			smoothSum += -lp
		}
	}

	epsI := epsilon / float64(vocab)
	return (1-epsilon)*nllSum + epsI*smoothSum, nllSum, nil
}
