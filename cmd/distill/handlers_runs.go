package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/distill/internal/artifacts"
	"github.com/haasonsaas/distill/internal/runs"
)

// =============================================================================
// Runs Command Handlers
// =============================================================================

func runRunsList(cmd *cobra.Command, configPath, kind, split string, limit int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := newPipelineLogger(cfg)
	reg, err := openRunRegistry(cfg, logger)
	if err != nil {
		return err
	}
	defer reg.Close() //nolint:errcheck

	list, err := reg.List(cmd.Context(), runs.ListFilter{Kind: kind, Split: split, Limit: limit})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No runs found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSPLIT\tEXAMPLES\tGIT\tCREATED")
	for _, run := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			run.ID,
			run.Kind,
			orDash(run.Split),
			run.Examples,
			orDash(shortSHA(run.GitSHA)),
			run.CreatedAt.Format(time.RFC3339),
		)
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}

func runRunsShow(cmd *cobra.Command, configPath, runID string, asJSON bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := newPipelineLogger(cfg)
	ctx := cmd.Context()

	reg, err := openRunRegistry(cfg, logger)
	if err != nil {
		return err
	}
	defer reg.Close() //nolint:errcheck

	run, err := reg.Get(ctx, runID)
	if err != nil {
		return err
	}

	// Artifact listing is best effort: the registry row is still useful
	// when the store is unreachable.
	var artifactNames []string
	store, storeErr := openArtifactStore(ctx, cfg, "")
	if storeErr == nil {
		defer store.Close() //nolint:errcheck
		artifactNames, storeErr = store.List(ctx, run.ID)
	}
	if storeErr != nil {
		logger.Warn(ctx, "artifact listing unavailable", "run_id", run.ID, "error", storeErr)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		payload := struct {
			*runs.Run
			Artifacts []string `json:"artifacts,omitempty"`
		}{run, artifactNames}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal run: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Kind:     %s\n", run.Kind)
	fmt.Fprintf(out, "Data:     %s\n", orDash(run.DataDir))
	fmt.Fprintf(out, "Split:    %s\n", orDash(run.Split))
	fmt.Fprintf(out, "Mode:     %s\n", orDash(run.Mode))
	fmt.Fprintf(out, "Examples: %d\n", run.Examples)
	fmt.Fprintf(out, "Git SHA:  %s\n", orDash(run.GitSHA))
	fmt.Fprintf(out, "Created:  %s\n", run.CreatedAt.Format(time.RFC3339))
	if len(run.Metrics) > 0 {
		fmt.Fprintln(out, "Metrics:")
		keys := make([]string, 0, len(run.Metrics))
		for key := range run.Metrics {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(out, "  %s: %.4f\n", key, run.Metrics[key])
		}
	}
	if len(artifactNames) > 0 {
		fmt.Fprintln(out, "Artifacts:")
		for _, name := range artifactNames {
			fmt.Fprintf(out, "  - %s\n", name)
		}
	}
	return nil
}

func runRunsPrune(cmd *cobra.Command, configPath, olderThan string, watch bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := newPipelineLogger(cfg)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	age, err := parseAge(olderThan, cfg.Artifacts.Retention)
	if err != nil {
		return err
	}
	if age <= 0 {
		return fmt.Errorf("retention window required: set --older-than or artifacts.retention")
	}

	reg, err := openRunRegistry(cfg, logger)
	if err != nil {
		return err
	}
	defer reg.Close() //nolint:errcheck
	store, err := openArtifactStore(ctx, cfg, "")
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	pruner, prunable := store.(artifacts.Pruner)
	if !prunable {
		logger.Warn(ctx, "artifact backend does not support pruning; use a bucket lifecycle policy",
			"backend", cfg.Artifacts.Backend)
	}

	out := cmd.OutOrStdout()
	if watch {
		interval, err := cfg.Artifacts.PruneIntervalDuration()
		if err != nil {
			return err
		}
		if interval <= 0 {
			interval = time.Hour
		}
		var wg sync.WaitGroup
		services := []*artifacts.CleanupService{
			artifacts.NewCleanupService(reg, age, interval, logger.Slog()),
		}
		if prunable {
			services = append(services, artifacts.NewCleanupService(pruner, age, interval, logger.Slog()))
		}
		for _, svc := range services {
			wg.Add(1)
			go func(svc *artifacts.CleanupService) {
				defer wg.Done()
				svc.Start(ctx)
			}(svc)
		}
		fmt.Fprintf(out, "Pruning runs older than %s every %s. Press Ctrl+C to stop.\n", age, interval)
		<-ctx.Done()
		wg.Wait()
		return nil
	}

	rows, err := reg.PruneOlderThan(ctx, age)
	if err != nil {
		return err
	}
	pruned := 0
	if prunable {
		pruned, err = pruner.PruneOlderThan(ctx, age)
		if err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "Pruned %d registry rows and %d artifact runs.\n", rows, pruned)
	return nil
}
