package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/straja-ai/wsd/internal/sense"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumBy(t *testing.T, agg metricdata.Aggregation, key, value string) int64 {
	t.Helper()
	sum, ok := agg.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected aggregation %T", agg)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestDecisionAndBatchMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	p := newProvider(tracenoop.NewTracerProvider().Tracer(""), mp.Meter("test"), true)

	ctx, finish := p.StartBatch(context.Background(), sense.Overtime, 3)
	p.RecordDecision(ctx, sense.Overtime, "rule")
	p.RecordDecision(ctx, sense.Overtime, "rule")
	p.RecordDecision(ctx, sense.Overtime, "model")
	finish(nil)

	_, finish = p.StartBatch(context.Background(), sense.Director, 1)
	finish(errors.New("artifact missing"))

	got := collect(t, reader)
	if n := sumBy(t, got["wsd_decisions_total"], "wsd.source", "rule"); n != 2 {
		t.Fatalf("expected 2 rule decisions, got %d", n)
	}
	if n := sumBy(t, got["wsd_decisions_total"], "wsd.source", "model"); n != 1 {
		t.Fatalf("expected 1 model decision, got %d", n)
	}
	if n := sumBy(t, got["wsd_batches_total"], "wsd.outcome", "error"); n != 1 {
		t.Fatalf("expected 1 failed batch, got %d", n)
	}
	if _, ok := got["wsd_batch_duration_ms"]; !ok {
		t.Fatalf("batch duration not recorded")
	}
}

func TestBatchSpanAttributes(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	p := newProvider(tp.Tracer("test"), sdkmetric.NewMeterProvider().Meter("test"), true)

	ctx, finish := p.StartBatch(context.Background(), sense.Rubbish, 2)
	p.Annotate(ctx, map[string]any{
		"wsd.artifact_key":   sense.Rubbish,
		"wsd.artifact_error": sense.ErrArtifactNotFound,
		"wsd.sentence":       "take out the rubbish",
	})
	finish(sense.ErrArtifactNotFound)

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		got[kv.Key] = kv.Value
	}
	if got["wsd.word"].AsString() != "rubbish" || got["wsd.batch_size"].AsInt64() != 2 {
		t.Fatalf("missing batch attributes: %v", got)
	}
	if got["wsd.artifact_key"].AsString() != "rubbish" {
		t.Fatalf("wsd.artifact_key = %v", got["wsd.artifact_key"])
	}
	if got["wsd.artifact_error"].AsString() != "artifact_not_found" || got["wsd.error_class"].AsString() != "artifact_not_found" {
		t.Fatalf("error class not recorded: %v", got)
	}
	if _, ok := got["wsd.sentence"]; ok {
		t.Fatalf("sentence text leaked into span")
	}
}

func TestDisabledProviderIsNoop(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Enabled {
		t.Fatalf("expected disabled provider")
	}
	ctx, finish := p.StartBatch(context.Background(), sense.Rubbish, 2)
	p.RecordDecision(ctx, sense.Rubbish, "rule")
	p.Annotate(ctx, map[string]any{"wsd.rule_decisions": 1})
	finish(nil)
	p.RecordRequest("/healthz", 200, 1.5)
	p.Shutdown(context.Background())
}

func TestNilProvider(t *testing.T) {
	var p *Provider
	ctx, finish := p.StartBatch(context.Background(), sense.Rubbish, 1)
	p.RecordDecision(ctx, sense.Rubbish, "model")
	p.Annotate(ctx, map[string]any{"wsd.model_decisions": 1})
	finish(nil)
	p.Shutdown(context.Background())
	if p.Tracer() == nil || p.Meter() == nil {
		t.Fatalf("nil provider should hand out noop tracer and meter")
	}
}
