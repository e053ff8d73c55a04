package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func TestNewTracerNoEndpoint(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "distill"})
	if tracer == nil {
		t.Fatal("NewTracer returned nil tracer")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}

	ctx, span := tracer.Start(context.Background(), "encode_split")
	if span == nil {
		t.Fatal("Start returned nil span")
	}
	span.End()
	if ctx == nil {
		t.Fatal("Start returned nil context")
	}
}

func TestDomainSpanHelpers(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "distill"})
	defer shutdown(context.Background()) //nolint:errcheck
	ctx := context.Background()

	_, span := tracer.TraceEncode(ctx, "val", "relevance")
	span.End()

	_, span = tracer.TraceCollate(ctx, "val", 32)
	span.End()

	_, span = tracer.TraceScore(ctx, "rouge", 100)
	span.End()

	_, span = tracer.TraceRegistryQuery(ctx, "select")
	span.End()

	_, span = tracer.TraceArtifactUpload(ctx, "s3", "metrics.json")
	span.End()
}

func TestTracerRecordError(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{})
	defer shutdown(context.Background()) //nolint:errcheck

	_, span := tracer.Start(context.Background(), "op")
	defer span.End()

	tracer.RecordError(span, errors.New("boom"))
	tracer.RecordError(span, nil)
}

func TestSetAttributesSkipsInvalidKeys(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{})
	defer shutdown(context.Background()) //nolint:errcheck

	_, span := tracer.Start(context.Background(), "op")
	defer span.End()

	// Non-string keys and trailing values must be ignored, not panic.
	tracer.SetAttributes(span, 42, "value", "split", "val", "dangling")
	tracer.AddEvent(span, "batch_collated", "size", 32, 99, "ignored")
}

func TestWithSpanPropagatesError(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{})
	defer shutdown(context.Background()) //nolint:errcheck

	wantErr := errors.New("align failed")
	err := WithSpan(context.Background(), tracer, "align", func(ctx context.Context, span trace.Span) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("WithSpan returned %v, want %v", err, wantErr)
	}

	err = WithSpan(context.Background(), tracer, "align", func(ctx context.Context, span trace.Span) error {
		return nil
	})
	if err != nil {
		t.Errorf("WithSpan returned %v, want nil", err)
	}
}

func TestGetTraceIDWithoutSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("GetTraceID() = %q, want empty", id)
	}
	if id := GetSpanID(context.Background()); id != "" {
		t.Errorf("GetSpanID() = %q, want empty", id)
	}
}

func TestMapCarrier(t *testing.T) {
	carrier := MapCarrier{}
	carrier.Set("traceparent", "00-abc-def-01")

	if got := carrier.Get("traceparent"); got != "00-abc-def-01" {
		t.Errorf("Get = %q, want stored value", got)
	}
	if got := carrier.Get("missing"); got != "" {
		t.Errorf("Get missing = %q, want empty", got)
	}
	if keys := carrier.Keys(); len(keys) != 1 || keys[0] != "traceparent" {
		t.Errorf("Keys = %v, want [traceparent]", keys)
	}
}

func TestAttributeFromValue(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want attribute.KeyValue
	}{
		{"string", "val", attribute.String("k", "val")},
		{"int", 32, attribute.Int("k", 32)},
		{"int64", int64(9), attribute.Int64("k", 9)},
		{"float64", 0.5, attribute.Float64("k", 0.5)},
		{"bool", true, attribute.Bool("k", true)},
		{"fallback", struct{ X int }{1}, attribute.String("k", "{1}")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := attributeFromValue("k", tt.val)
			if got != tt.want {
				t.Errorf("attributeFromValue() = %v, want %v", got, tt.want)
			}
		})
	}
}
