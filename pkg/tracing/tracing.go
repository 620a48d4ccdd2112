package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type (
	// Tracer creates traces on a dedicated OpenTelemetry tracer provider
	Tracer struct {
		provider *sdktrace.TracerProvider
		tracer   trace.Tracer
	}

	// Option customizes the tracer provider built by New
	Option func(*config)

	config struct {
		providerOpts []sdktrace.TracerProviderOption
		global       bool
	}
)

const (
	// InstrumentationName identifies spans produced by this module
	InstrumentationName = "github.com/kode4food/reflector"

	// MetadataPrefix namespaces custom metadata attributes
	MetadataPrefix = "reflector:metadata:"

	AttrName   = "reflector:name"
	AttrType   = "reflector:type"
	AttrInput  = "reflector:input"
	AttrOutput = "reflector:output"
	AttrState  = "reflector:state"
)

// WithExporter exports each span synchronously as it ends
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(c *config) {
		c.providerOpts = append(c.providerOpts, sdktrace.WithSyncer(exp))
	}
}

// WithBatchExporter exports spans in batches, flushed by Tracer.Flush
func WithBatchExporter(exp sdktrace.SpanExporter) Option {
	return func(c *config) {
		c.providerOpts = append(c.providerOpts, sdktrace.WithBatcher(exp))
	}
}

// WithoutGlobal keeps the provider out of the otel global registry. Spans
// opened by actions through the global tracer are then not recorded
func WithoutGlobal() Option {
	return func(c *config) {
		c.global = false
	}
}

// New builds a Tracer with an always-on sampler. Unless WithoutGlobal is
// given, the provider is also installed as the otel global provider
func New(opts ...Option) *Tracer {
	cfg := &config{global: true}
	for _, opt := range opts {
		opt(cfg)
	}
	providerOpts := append([]sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}, cfg.providerOpts...)

	provider := sdktrace.NewTracerProvider(providerOpts...)
	if cfg.global {
		otel.SetTracerProvider(provider)
	}
	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(InstrumentationName),
	}
}

// NewTrace runs fn inside a new root span named name. The span is handed to
// fn so callers can read its trace ID before fn completes
func NewTrace[T any](
	ctx context.Context, t *Tracer, name string,
	fn func(context.Context, trace.Span) (T, error),
) (T, error) {
	ctx, span := t.tracer.Start(ctx, name,
		trace.WithNewRoot(),
		trace.WithAttributes(attribute.String(AttrName, name)),
	)
	defer span.End()
	return finish[T](span)(fn(ctx, span))
}

// RunInSpan runs fn inside a child span of the active span, using the otel
// global tracer provider
func RunInSpan[T any](
	ctx context.Context, name string, attrs []attribute.KeyValue,
	fn func(context.Context, trace.Span) (T, error),
) (T, error) {
	tracer := otel.Tracer(InstrumentationName)
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(
		append([]attribute.KeyValue{attribute.String(AttrName, name)},
			attrs...)...,
	))
	defer span.End()
	return finish[T](span)(fn(ctx, span))
}

// SetCustomMetadataAttribute tags the active span with a namespaced
// metadata attribute
func SetCustomMetadataAttribute(ctx context.Context, key, value string) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String(MetadataPrefix+key, value),
	)
}

// TraceID returns the trace ID of the active span, or an empty string when
// no span is recording
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// Flush exports all ended spans that have not been exported yet
func (t *Tracer) Flush(ctx context.Context) error {
	return t.provider.ForceFlush(ctx)
}

// Shutdown flushes and stops the tracer provider
func (t *Tracer) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

func finish[T any](span trace.Span) func(T, error) (T, error) {
	return func(res T, err error) (T, error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return res, err
		}
		span.SetStatus(codes.Ok, "")
		return res, nil
	}
}
