package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/haasonsaas/distill/internal/artifacts"
	"github.com/haasonsaas/distill/internal/batch"
	"github.com/haasonsaas/distill/internal/dataset"
	"github.com/haasonsaas/distill/internal/gitinfo"
	"github.com/haasonsaas/distill/internal/observability"
	"github.com/haasonsaas/distill/internal/runs"
	"github.com/haasonsaas/distill/internal/sampler"
	"github.com/haasonsaas/distill/internal/tokenize"
	"github.com/haasonsaas/distill/pkg/models"
)

// =============================================================================
// Pipeline Command Handlers
// =============================================================================

// runManifest is the JSON sidecar written next to encoded batches.
type runManifest struct {
	RunID           string    `json:"run_id"`
	DataDir         string    `json:"data_dir"`
	Split           string    `json:"split"`
	Mode            string    `json:"mode"`
	Examples        int       `json:"examples"`
	Batches         int       `json:"batches"`
	BatchSize       int       `json:"batch_size"`
	MaxSourceLength int       `json:"max_source_length"`
	MaxTargetLength int       `json:"max_target_length"`
	Seed            int64     `json:"seed,omitempty"`
	DurationMS      int64     `json:"duration_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

func runEncode(cmd *cobra.Command, configPath, split, outDir, metricsAddr string, record bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := newPipelineLogger(cfg)
	metrics := metricsCollector()
	tracer, shutdownTracer := newPipelineTracer(cfg)
	defer shutdownTracer(context.Background()) //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if split == "" {
		split = cfg.Data.Split
	}
	runID := uuid.NewString()
	ctx = observability.AddRunID(ctx, runID)
	ctx = observability.AddSplit(ctx, split)
	ctx = observability.AddDataset(ctx, cfg.Data.Dir)

	if metricsAddr == "" && cfg.Metrics.Enabled {
		metricsAddr = cfg.Metrics.Listen
	}
	if metricsAddr != "" {
		srv := startMetricsServer(metricsAddr, logger)
		defer srv.Shutdown(context.Background()) //nolint:errcheck
		logger.Info(ctx, "metrics server started", "addr", metricsAddr)
	}

	tok, err := loadTokenizer(cfg)
	if err != nil {
		return err
	}
	ds, err := openSplitDataset(tok, cfg, split)
	if err != nil {
		return err
	}
	defer ds.Close() //nolint:errcheck

	ctx, span := tracer.TraceEncode(ctx, split, string(ds.Mode()))
	defer span.End()

	logger.Info(ctx, "encode started", "examples", ds.Len(), "mode", string(ds.Mode()))
	start := time.Now()
	batches, err := collateSplit(ctx, ds, tok, split,
		cfg.Batching.BatchSize, cfg.Batching.Seed,
		cfg.Data.MaxSourceLength, cfg.Data.MaxTargetLength, metrics)
	if err != nil {
		tracer.RecordError(span, err)
		return err
	}
	duration := time.Since(start)

	store, err := openArtifactStore(ctx, cfg, outDir)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	uploadCtx, uploadSpan := tracer.TraceArtifactUpload(ctx, cfg.Artifacts.Backend, "batches.gob")
	ref, err := artifacts.SaveGob(uploadCtx, store, runID, "batches.gob", batches)
	uploadSpan.End()
	if err != nil {
		metrics.RecordError("encode", "artifact")
		return err
	}

	manifest := runManifest{
		RunID:           runID,
		DataDir:         cfg.Data.Dir,
		Split:           split,
		Mode:            string(ds.Mode()),
		Examples:        ds.Len(),
		Batches:         len(batches),
		BatchSize:       cfg.Batching.BatchSize,
		MaxSourceLength: cfg.Data.MaxSourceLength,
		MaxTargetLength: cfg.Data.MaxTargetLength,
		Seed:            cfg.Batching.Seed,
		DurationMS:      duration.Milliseconds(),
		CreatedAt:       time.Now().UTC(),
	}
	if _, err := artifacts.SaveJSON(ctx, store, runID, "manifest.json", manifest); err != nil {
		return err
	}

	if record {
		gitSHA := saveGitMetadata(ctx, cfg.Data.Dir, store, runID, logger)
		reg, err := openRunRegistry(cfg, logger)
		if err != nil {
			return err
		}
		defer reg.Close() //nolint:errcheck
		if err := reg.Create(ctx, &runs.Run{
			ID:       runID,
			Kind:     runs.KindEncode,
			DataDir:  cfg.Data.Dir,
			Split:    split,
			Mode:     string(ds.Mode()),
			Examples: ds.Len(),
			GitSHA:   gitSHA,
		}); err != nil {
			return err
		}
	}

	logger.Info(ctx, "encode completed",
		"batches", len(batches), "duration_ms", duration.Milliseconds())

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Encoded %d examples into %d batches (%s mode).\n", ds.Len(), len(batches), ds.Mode())
	fmt.Fprintf(out, "Batches written: %s\n", ref)
	if record {
		fmt.Fprintf(out, "Run recorded: %s\n", runID)
	}
	return nil
}

// collateSplit loads every example of the split in sortish order and
// collates fixed-size batches.
func collateSplit(ctx context.Context, ds *dataset.Dataset, tok tokenize.Tokenizer, split string, batchSize int, seed int64, maxSource, maxTarget int, metrics *observability.Metrics) ([]*models.Batch, error) {
	smplr, err := sampler.NewSortish(ds.Lengths(), batchSize, seededRNG(seed))
	if err != nil {
		return nil, err
	}
	order := smplr.Order()
	collator := batch.NewCollator(tok.PadID())

	mode := string(ds.Mode())
	batches := make([]*models.Batch, 0, (len(order)+batchSize-1)/batchSize)
	for chunk := 0; chunk < len(order); chunk += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(chunk+batchSize, len(order))
		examples := make([]*models.Example, 0, end-chunk)
		for _, idx := range order[chunk:end] {
			exStart := time.Now()
			ex, err := ds.Example(idx)
			if err != nil {
				metrics.RecordError("encode", "load_example")
				return nil, err
			}
			metrics.ExampleEncoded(split, mode, time.Since(exStart).Seconds())
			examples = append(examples, ex)
		}
		b, err := collator.Collate(examples)
		if err != nil {
			metrics.RecordError("encode", "collate")
			return nil, fmt.Errorf("collate batch %d: %w", chunk/batchSize, err)
		}
		metrics.BatchCollated(split, b.SourceWidth(), b.LabelWidth(),
			maxSource-b.SourceWidth(), maxTarget-b.LabelWidth())
		batches = append(batches, b)
	}
	return batches, nil
}

// saveGitMetadata records the dataset repository state alongside the run
// artifacts. A dataset outside any git repository logs a warning only.
func saveGitMetadata(ctx context.Context, dataDir string, store artifacts.Store, runID string, logger *observability.Logger) string {
	info, err := gitinfo.Collect(dataDir)
	if err != nil {
		logger.Warn(ctx, "git metadata unavailable", "dir", dataDir, "error", err)
		return ""
	}
	if _, err := artifacts.SaveJSON(ctx, store, runID, gitinfo.FileName, info); err != nil {
		logger.Warn(ctx, "failed to save git metadata", "error", err)
	}
	return info.SHA
}

func runInspect(cmd *cobra.Command, configPath, split string, index int, asJSON bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if split == "" {
		split = cfg.Data.Split
	}
	tok, err := loadTokenizer(cfg)
	if err != nil {
		return err
	}
	ds, err := openSplitDataset(tok, cfg, split)
	if err != nil {
		return err
	}
	defer ds.Close() //nolint:errcheck

	ex, err := ds.Example(index)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		data, err := json.MarshalIndent(ex, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal example: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	real := 0
	for _, m := range ex.AttentionMask {
		if m == 1 {
			real++
		}
	}
	fmt.Fprintf(out, "Example %d (%s, split %s, %s mode)\n", ex.Index, cfg.Data.Dir, split, ds.Mode())
	fmt.Fprintf(out, "Source: %s\n", truncateText(ex.SourceText, 200))
	fmt.Fprintf(out, "Source tokens: %d real / %d encoded\n", real, len(ex.SourceIDs))
	fmt.Fprintf(out, "Target tokens: %d encoded\n", len(ex.TargetIDs))
	if ex.HasRelevance() {
		nonzero := 0
		for _, v := range ex.Relevance {
			if v != 0 {
				nonzero++
			}
		}
		fmt.Fprintf(out, "Relevance: %d positions, %d nonzero\n", len(ex.Relevance), nonzero)
	} else {
		fmt.Fprintln(out, "Relevance: none")
	}
	fmt.Fprintf(out, "Token ids: %s\n", previewInts(ex.SourceIDs, 16))
	return nil
}

func truncateText(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func previewInts(ids []int, limit int) string {
	if len(ids) <= limit {
		return fmt.Sprint(ids)
	}
	return fmt.Sprintf("%v... (%d total)", ids[:limit], len(ids))
}

func runStats(cmd *cobra.Command, configPath, split string, record bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if split == "" {
		split = cfg.Data.Split
	}
	tok, err := loadTokenizer(cfg)
	if err != nil {
		return err
	}
	ds, err := openSplitDataset(tok, cfg, split)
	if err != nil {
		return err
	}
	defer ds.Close() //nolint:errcheck

	values := make([]float64, ds.Len())
	for i, n := range ds.Lengths() {
		values[i] = float64(n)
	}
	sort.Float64s(values)
	mean := stat.Mean(values, nil)
	quantile := func(p float64) float64 {
		return stat.Quantile(p, stat.Empirical, values, nil)
	}
	p50, p90, p99 := quantile(0.5), quantile(0.9), quantile(0.99)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STAT\tSOURCE CHARS")
	fmt.Fprintf(w, "count\t%d\n", len(values))
	fmt.Fprintf(w, "min\t%.0f\n", values[0])
	fmt.Fprintf(w, "mean\t%.1f\n", mean)
	fmt.Fprintf(w, "p50\t%.0f\n", p50)
	fmt.Fprintf(w, "p90\t%.0f\n", p90)
	fmt.Fprintf(w, "p99\t%.0f\n", p99)
	fmt.Fprintf(w, "max\t%.0f\n", values[len(values)-1])
	if err := w.Flush(); err != nil {
		return err
	}

	if record {
		logger := newPipelineLogger(cfg)
		reg, err := openRunRegistry(cfg, logger)
		if err != nil {
			return err
		}
		defer reg.Close() //nolint:errcheck
		run := &runs.Run{
			Kind:     runs.KindStats,
			DataDir:  cfg.Data.Dir,
			Split:    split,
			Mode:     cfg.Data.Mode,
			Examples: len(values),
			Metrics: map[string]float64{
				"mean_chars": mean,
				"p50_chars":  p50,
				"p90_chars":  p90,
				"p99_chars":  p99,
				"max_chars":  values[len(values)-1],
			},
		}
		if err := reg.Create(cmd.Context(), run); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Run recorded: %s\n", run.ID)
	}
	return nil
}

func runBatches(cmd *cobra.Command, configPath, split string, batchSize int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if split == "" {
		split = cfg.Data.Split
	}
	if batchSize <= 0 {
		batchSize = cfg.Batching.BatchSize
	}
	tok, err := loadTokenizer(cfg)
	if err != nil {
		return err
	}
	ds, err := openSplitDataset(tok, cfg, split)
	if err != nil {
		return err
	}
	defer ds.Close() //nolint:errcheck

	batches, err := collateSplit(cmd.Context(), ds, tok, split,
		batchSize, cfg.Batching.Seed,
		cfg.Data.MaxSourceLength, cfg.Data.MaxTargetLength, metricsCollector())
	if err != nil {
		return err
	}

	var widthSum, trimmedCells, realTokens, sourceCells int
	for _, b := range batches {
		widthSum += b.SourceWidth() * b.Size()
		trimmedCells += (cfg.Data.MaxSourceLength-b.SourceWidth())*b.Size() +
			(cfg.Data.MaxTargetLength-b.LabelWidth())*b.Size()
		for _, row := range b.AttentionMask {
			for _, m := range row {
				if m == 1 {
					realTokens++
				}
			}
		}
		sourceCells += b.Size() * b.SourceWidth()
	}
	avgWidth := float64(widthSum) / float64(ds.Len())
	fill := 100 * float64(realTokens) / float64(sourceCells)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STAT\tVALUE")
	fmt.Fprintf(w, "batches\t%d\n", len(batches))
	fmt.Fprintf(w, "examples\t%d\n", ds.Len())
	fmt.Fprintf(w, "batch size\t%d\n", batchSize)
	fmt.Fprintf(w, "first batch source width\t%d\n", batches[0].SourceWidth())
	fmt.Fprintf(w, "mean source width\t%.1f\n", avgWidth)
	fmt.Fprintf(w, "source fill\t%.1f%%\n", fill)
	fmt.Fprintf(w, "pad cells trimmed\t%d\n", trimmedCells)
	return w.Flush()
}
