package telemetry

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/straja-ai/wsd/internal/sense"
)

// Config controls telemetry setup.
type Config struct {
	Enabled  bool
	Endpoint string
	Protocol string // grpc | http
	Service  string
	Version  string
}

// Provider wires tracer/meter providers and records prediction metrics.
type Provider struct {
	Enabled bool
	tracer  trace.Tracer
	meter   metric.Meter

	batchesCounter        metric.Int64Counter
	decisionsCounter      metric.Int64Counter
	batchDuration         metric.Float64Histogram
	batchSize             metric.Int64Histogram
	requestDuration       metric.Float64Histogram
	shutdownTraceProvider func(context.Context) error
	shutdownMeterProvider func(context.Context) error
}

// NewProvider configures OTEL exporters + providers. When disabled, returns no-op providers.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !cfg.Enabled {
		return newProvider(tracenoop.NewTracerProvider().Tracer(""), noop.NewMeterProvider().Meter(""), false), nil
	}

	slog.Info("telemetry enabled; periodic export errors are expected when no collector is listening",
		"protocol", strings.ToLower(cfg.Protocol), "endpoint", cfg.Endpoint)

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.Service),
			attribute.String("service.version", cfg.Version),
		),
	)
	if err != nil {
		return nil, err
	}

	var (
		traceExp  sdktrace.SpanExporter
		metricExp sdkmetric.Exporter
	)
	switch strings.ToLower(cfg.Protocol) {
	case "", "grpc":
		if traceExp, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure()); err != nil {
			return nil, err
		}
		if metricExp, err = otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpoint(cfg.Endpoint), otlpmetricgrpc.WithInsecure()); err != nil {
			return nil, err
		}
	case "http":
		if traceExp, err = otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithInsecure()); err != nil {
			return nil, err
		}
		if metricExp, err = otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(cfg.Endpoint), otlpmetrichttp.WithInsecure()); err != nil {
			return nil, err
		}
	default:
		return newProvider(tracenoop.NewTracerProvider().Tracer(""), noop.NewMeterProvider().Meter(""), false), nil
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)))
	otel.SetMeterProvider(mp)

	p := newProvider(tp.Tracer("wsd"), mp.Meter("wsd"), true)
	p.shutdownTraceProvider = tp.Shutdown
	p.shutdownMeterProvider = mp.Shutdown
	return p, nil
}

func newProvider(tracer trace.Tracer, meter metric.Meter, enabled bool) *Provider {
	p := &Provider{Enabled: enabled, tracer: tracer, meter: meter}
	p.initInstruments()
	return p
}

func (p *Provider) initInstruments() {
	if p == nil {
		return
	}
	// Use meter to create instruments; ignore errors to keep telemetry best-effort.
	p.batchesCounter, _ = p.meter.Int64Counter("wsd_batches_total")
	p.decisionsCounter, _ = p.meter.Int64Counter("wsd_decisions_total")
	p.batchDuration, _ = p.meter.Float64Histogram("wsd_batch_duration_ms")
	p.batchSize, _ = p.meter.Int64Histogram("wsd_batch_sentences")
	p.requestDuration, _ = p.meter.Float64Histogram("wsd_http_request_duration_ms")
}

// Tracer returns the tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return tracenoop.NewTracerProvider().Tracer("")
	}
	return p.tracer
}

// Meter returns the meter.
func (p *Provider) Meter() metric.Meter {
	if p == nil {
		return noop.NewMeterProvider().Meter("")
	}
	return p.meter
}

// Shutdown flushes providers.
func (p *Provider) Shutdown(ctx context.Context) {
	if p == nil {
		return
	}
	if p.shutdownTraceProvider != nil {
		_ = p.shutdownTraceProvider(ctx)
	}
	if p.shutdownMeterProvider != nil {
		_ = p.shutdownMeterProvider(ctx)
	}
}

// StartBatch opens a span for one prediction batch. The returned func
// ends it and records the batch metrics.
func (p *Provider) StartBatch(ctx context.Context, word sense.Word, size int) (context.Context, func(error)) {
	if p == nil {
		return ctx, func(error) {}
	}
	start := time.Now()
	attrs := SafeAttributes(map[string]any{"wsd.word": word, "wsd.batch_size": size})
	ctx, span := p.tracer.Start(ctx, "wsd.predict", trace.WithAttributes(attrs...))

	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(SafeAttributes(map[string]any{"wsd.error_class": ErrorClass(err)})...)
		span.End()

		labels := metric.WithAttributes(
			attribute.String("wsd.word", string(word)),
			attribute.String("wsd.outcome", outcome),
			attribute.String("wsd.error_class", ErrorClass(err)),
		)
		p.batchesCounter.Add(ctx, 1, labels)
		p.batchSize.Record(ctx, int64(size), labels)
		p.batchDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000, labels)
	}
}

// Annotate attaches batch details to the span in ctx. Values go through
// SafeAttributes.
func (p *Provider) Annotate(ctx context.Context, values map[string]any) {
	if p == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(SafeAttributes(values)...)
}

// RecordDecision counts one sentence decided by source (rule or model).
func (p *Provider) RecordDecision(ctx context.Context, word sense.Word, source string) {
	if p == nil {
		return
	}
	p.decisionsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("wsd.word", string(word)),
		attribute.String("wsd.source", source),
	))
}

// RecordRequest emits the HTTP request duration with safe labels.
func (p *Provider) RecordRequest(route string, status int, durMs float64) {
	if p == nil {
		return
	}
	p.requestDuration.Record(context.Background(), durMs, metric.WithAttributes(
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	))
}
