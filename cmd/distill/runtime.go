package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haasonsaas/distill/internal/artifacts"
	"github.com/haasonsaas/distill/internal/config"
	"github.com/haasonsaas/distill/internal/dataset"
	"github.com/haasonsaas/distill/internal/observability"
	"github.com/haasonsaas/distill/internal/relevance"
	"github.com/haasonsaas/distill/internal/runs"
	"github.com/haasonsaas/distill/internal/tokenize"
)

// loadConfig resolves the config path and loads the validated config.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newPipelineLogger builds the redacting structured logger from config.
func newPipelineLogger(cfg *config.Config) *observability.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	})
}

// newPipelineTracer builds the tracer from config. Tracing disabled in
// config yields a no-op tracer whose shutdown is safe to call.
func newPipelineTracer(cfg *config.Config) (*observability.Tracer, func(context.Context) error) {
	tc := observability.TraceConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Environment:    cfg.Tracing.Environment,
		SamplingRate:   cfg.Tracing.SamplingRate,
		Attributes:     cfg.Tracing.Attributes,
		EnableInsecure: cfg.Tracing.Insecure,
	}
	if cfg.Tracing.Enabled {
		tc.Endpoint = cfg.Tracing.Endpoint
	}
	if tc.ServiceVersion == "" {
		tc.ServiceVersion = version
	}
	return observability.NewTracer(tc)
}

var (
	metricsOnce     sync.Once
	pipelineMetrics *observability.Metrics
)

// metricsCollector returns the process-wide pipeline metrics. Collectors
// register with the default Prometheus registry exactly once even when
// several handlers run in one process.
func metricsCollector() *observability.Metrics {
	metricsOnce.Do(func() {
		pipelineMetrics = observability.NewMetrics()
	})
	return pipelineMetrics
}

// startMetricsServer exposes /metrics on addr until the returned server
// is shut down.
func startMetricsServer(addr string, logger *observability.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "metrics server failed", "addr", addr, "error", err)
		}
	}()
	return srv
}

// openArtifactStore builds the configured artifact store. A non-empty
// outOverride forces a local store rooted there, regardless of backend.
func openArtifactStore(ctx context.Context, cfg *config.Config, outOverride string) (artifacts.Store, error) {
	if outOverride != "" {
		return artifacts.NewLocalStore(outOverride)
	}
	switch cfg.Artifacts.Backend {
	case "s3":
		return artifacts.NewS3Store(ctx, &artifacts.S3StoreConfig{
			Bucket:          cfg.Artifacts.S3.Bucket,
			Region:          cfg.Artifacts.S3.Region,
			Endpoint:        cfg.Artifacts.S3.Endpoint,
			Prefix:          cfg.Artifacts.S3.Prefix,
			AccessKeyID:     cfg.Artifacts.S3.AccessKeyID,
			SecretAccessKey: cfg.Artifacts.S3.SecretAccessKey,
			UsePathStyle:    cfg.Artifacts.S3.UsePathStyle,
		})
	default:
		return artifacts.NewLocalStore(cfg.Artifacts.Dir)
	}
}

// openRunRegistry opens the run registry configured in cfg.
func openRunRegistry(cfg *config.Config, logger *observability.Logger) (*runs.Registry, error) {
	return runs.Open(cfg.Registry.Path, logger.Slog())
}

// loadTokenizer builds the configured sub-word tokenizer.
func loadTokenizer(cfg *config.Config) (tokenize.Tokenizer, error) {
	if cfg.Tokenizer.Path == "" {
		return nil, fmt.Errorf("tokenizer.path is required (point it at a tokenizer.json)")
	}
	return tokenize.LoadBPE(tokenize.BPEConfig{
		Path:       cfg.Tokenizer.Path,
		PadToken:   cfg.Tokenizer.PadToken,
		WordMarker: cfg.Tokenizer.WordMarker,
	})
}

// openSplitDataset opens one split with the config's encoding settings.
// A non-empty split overrides the configured one.
func openSplitDataset(tok tokenize.Tokenizer, cfg *config.Config, split string) (*dataset.Dataset, error) {
	if split == "" {
		split = cfg.Data.Split
	}
	return dataset.Open(tok, dataset.Config{
		Dir:             cfg.Data.Dir,
		Split:           split,
		Mode:            dataset.Mode(cfg.Data.Mode),
		MaxSourceLength: cfg.Data.MaxSourceLength,
		MaxTargetLength: cfg.Data.MaxTargetLength,
		Prefix:          cfg.Data.Prefix,
		MaxExamples:     cfg.Data.MaxExamples,
		Baseline:        cfg.Data.Baseline,
		KeepEOS:         cfg.Data.KeepEOS,
		Align: relevance.AlignerConfig{
			Separator:     cfg.Data.Separator,
			SeparatorSpan: cfg.Data.SeparatorSpan,
		},
	})
}

// seededRNG returns a deterministic source for non-zero seeds and nil
// otherwise, letting callers fall back to their own time-seeded source.
func seededRNG(seed int64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewSource(seed))
}

// readLines loads a file into one string per line, dropping a trailing
// blank line from a final newline.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var out []string
	for scanner.Scan() {
		out = append(out, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}

// parseAge parses a duration flag, falling back to a config value.
func parseAge(flagValue, configValue string) (time.Duration, error) {
	raw := flagValue
	if raw == "" {
		raw = configValue
	}
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return d, nil
}
