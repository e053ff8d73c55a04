// Package observability provides monitoring and debugging capabilities
// for the distill pipeline through metrics, structured logging, and
// distributed tracing.
//
// # Overview
//
// The observability package implements the three pillars of observability:
//
//  1. Metrics - Quantitative measurements using Prometheus
//  2. Logging - Structured logs with sensitive data redaction
//  3. Tracing - Pipeline stage tracing with OpenTelemetry
//
// # Metrics
//
// Metrics are implemented using Prometheus client libraries and track:
//   - Examples encoded per split and mode
//   - Per-example encode latency
//   - Batch collation counts and post-trim widths
//   - Pad columns reclaimed by batch trimming
//   - Scoring throughput per metric family
//   - Error rates by component and type
//
// Example usage:
//
//	metrics := observability.NewMetrics()
//
//	start := time.Now()
//	// ... encode example ...
//	metrics.ExampleEncoded("val", "relevance", time.Since(start).Seconds())
//
//	// Track scoring
//	start = time.Now()
//	// ... compute corpus ROUGE ...
//	metrics.ScoreComputed("rouge", len(pairs), time.Since(start).Seconds())
//
// # Logging
//
// Logging is built on Go's slog package with enhancements for:
//   - Automatic run ID and split correlation from context
//   - Sensitive data redaction (bucket credentials, tokens, passwords)
//   - JSON output for batch jobs, text for development
//   - Configurable log levels
//
// Example usage:
//
//	logger := observability.NewLogger(observability.LogConfig{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	// Add context IDs for correlation
//	ctx := observability.AddRunID(ctx, runID)
//	ctx = observability.AddSplit(ctx, "val")
//
//	// Structured logging with automatic context correlation
//	logger.Info(ctx, "dataset opened",
//	    "dir", cfg.Dir,
//	    "examples", ds.Len(),
//	)
//
// # Tracing
//
// Tracing uses OpenTelemetry to follow a run across pipeline stages:
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName:    "distill",
//	    ServiceVersion: "1.0.0",
//	    Endpoint:       "localhost:4317", // OTLP collector
//	    SamplingRate:   0.1,              // Sample 10% of traces
//	})
//	defer shutdown(context.Background())
//
//	ctx, span := tracer.TraceEncode(ctx, "val", "relevance")
//	defer span.End()
//
//	ctx, scoreSpan := tracer.TraceScore(ctx, "rouge", len(pairs))
//	defer scoreSpan.End()
//	if err != nil {
//	    tracer.RecordError(scoreSpan, err)
//	}
//
// With no endpoint configured the tracer is a no-op, so library code can
// create spans unconditionally.
//
// # Context Propagation
//
// All three components integrate with Go's context for automatic correlation:
//
//	ctx = observability.AddRunID(ctx, "run-123")
//	ctx = observability.AddSplit(ctx, "val")
//	ctx = observability.AddDataset(ctx, "/data/debatepedia")
//
//	// IDs automatically appear in logs
//	logger.Info(ctx, "encoding") // Includes run_id, split, dataset
//
//	// Spans inherit context
//	ctx, span := tracer.Start(ctx, "operation")
//
// # Security Considerations
//
// The logging component automatically redacts:
//   - AWS access and secret keys (artifact bucket credentials)
//   - Passwords and secrets
//   - Bearer tokens
//   - Custom patterns via configuration
//
// Sensitive fields in maps are also redacted: password, secret, token,
// api_key, access_key_id, secret_access_key, auth, authorization.
package observability
