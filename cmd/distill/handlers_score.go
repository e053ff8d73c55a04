package main

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/distill/internal/artifacts"
	"github.com/haasonsaas/distill/internal/eval"
	"github.com/haasonsaas/distill/internal/runs"
)

// =============================================================================
// Score Command Handlers
// =============================================================================

// scoreBand is one metric's bootstrap confidence band on the 0-100 scale.
type scoreBand struct {
	Low  float64 `json:"low"`
	Mid  float64 `json:"mid"`
	High float64 `json:"high"`
}

// scoreReport is the score command's output, printed with --json and saved
// as metrics.json with --record.
type scoreReport struct {
	Pairs     int                  `json:"pairs"`
	Stemmer   bool                 `json:"stemmer"`
	Metrics   map[string]float64   `json:"metrics"`
	Intervals map[string]scoreBand `json:"intervals"`
	CreatedAt time.Time            `json:"created_at"`
}

func runScore(cmd *cobra.Command, configPath, predsPath, refsPath string, noStemmer, asJSON, record bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	metrics := metricsCollector()
	ctx := cmd.Context()

	predictions, err := readLines(predsPath)
	if err != nil {
		return err
	}
	references, err := readLines(refsPath)
	if err != nil {
		return err
	}
	if len(predictions) != len(references) {
		return fmt.Errorf("got %d predictions and %d references", len(predictions), len(references))
	}
	if len(predictions) == 0 {
		return fmt.Errorf("no prediction/reference pairs to score")
	}

	stemming := cfg.Scoring.Stemming() && !noStemmer
	scorer, err := eval.NewRougeScorer(cfg.Scoring.RougeTypes, stemming)
	if err != nil {
		return err
	}
	agg := eval.NewBootstrapAggregator(cfg.Scoring.BootstrapSamples, seededRNG(cfg.Batching.Seed))

	rougeStart := time.Now()
	for i, prediction := range predictions {
		agg.Add(scorer.ScorePair(references[i], prediction))
	}
	aggregated, err := agg.Aggregate()
	if err != nil {
		return err
	}
	metrics.ScoreComputed("rouge", len(predictions), time.Since(rougeStart).Seconds())

	bleuStart := time.Now()
	bleu, err := eval.CalculateBLEU(predictions, references)
	if err != nil {
		return err
	}
	metrics.ScoreComputed("bleu", len(predictions), time.Since(bleuStart).Seconds())

	report := scoreReport{
		Pairs:     len(predictions),
		Stemmer:   stemming,
		Metrics:   map[string]float64{"bleu": bleu["bleu"]},
		Intervals: make(map[string]scoreBand, len(aggregated)),
		CreatedAt: time.Now().UTC(),
	}
	for key, score := range aggregated {
		report.Metrics[key] = roundScore(score.Mid.F1 * 100)
		report.Intervals[key] = scoreBand{
			Low:  roundScore(score.Low.F1 * 100),
			Mid:  roundScore(score.Mid.F1 * 100),
			High: roundScore(score.High.F1 * 100),
		}
	}

	out := cmd.OutOrStdout()
	if asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		fmt.Fprintln(out, string(data))
	} else {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "METRIC\tSCORE\t95% CI")
		for _, key := range sortedMetricKeys(report.Intervals) {
			band := report.Intervals[key]
			fmt.Fprintf(w, "%s\t%.4f\t[%.4f, %.4f]\n", key, band.Mid, band.Low, band.High)
		}
		fmt.Fprintf(w, "bleu\t%.4f\t-\n", report.Metrics["bleu"])
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Scored %d pairs (stemmer: %t).\n", report.Pairs, report.Stemmer)
	}

	if record {
		logger := newPipelineLogger(cfg)
		run := &runs.Run{
			Kind:     runs.KindScore,
			Examples: report.Pairs,
			Metrics:  report.Metrics,
		}

		store, err := openArtifactStore(ctx, cfg, "")
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck
		reg, err := openRunRegistry(cfg, logger)
		if err != nil {
			return err
		}
		defer reg.Close() //nolint:errcheck

		if err := reg.Create(ctx, run); err != nil {
			return err
		}
		if _, err := artifacts.SaveJSON(ctx, store, run.ID, "metrics.json", report); err != nil {
			return err
		}
		fmt.Fprintf(out, "Run recorded: %s\n", run.ID)
	}
	return nil
}

func roundScore(x float64) float64 {
	return math.Round(x*10000) / 10000
}

func sortedMetricKeys(intervals map[string]scoreBand) []string {
	keys := make([]string, 0, len(intervals))
	for key := range intervals {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
