package tracing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/kode4food/reflector/pkg/tracing"
)

func TestNewTraceCapturesTraceID(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tr := tracing.New(tracing.WithExporter(exp))
	defer func() { _ = tr.Shutdown(context.Background()) }()

	var seen string
	res, err := tracing.NewTrace(context.Background(), tr, "wrapper",
		func(ctx context.Context, span trace.Span) (string, error) {
			seen = span.SpanContext().TraceID().String()
			assert.Equal(t, seen, tracing.TraceID(ctx))
			tracing.SetCustomMetadataAttribute(ctx, "dev-internal", "true")
			return "ok", nil
		},
	)
	assert.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.NotEmpty(t, seen)

	spans := exp.GetSpans()
	assert.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "wrapper", span.Name)
	assert.Equal(t, seen, span.SpanContext.TraceID().String())
	assert.False(t, span.Parent.IsValid())
	assert.Equal(t, codes.Ok, span.Status.Code)
	assert.Contains(t, span.Attributes, attribute.String(
		tracing.MetadataPrefix+"dev-internal", "true",
	))
}

func TestNewTraceRecordsError(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tr := tracing.New(tracing.WithExporter(exp))
	defer func() { _ = tr.Shutdown(context.Background()) }()

	boom := errors.New("boom")
	_, err := tracing.NewTrace(context.Background(), tr, "failing",
		func(context.Context, trace.Span) (int, error) {
			return 0, boom
		},
	)
	assert.ErrorIs(t, err, boom)

	spans := exp.GetSpans()
	assert.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "boom", spans[0].Status.Description)
}

func TestNewTraceStartsNewRoot(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tr := tracing.New(tracing.WithExporter(exp))
	defer func() { _ = tr.Shutdown(context.Background()) }()

	var outer, inner string
	_, _ = tracing.NewTrace(context.Background(), tr, "outer",
		func(ctx context.Context, span trace.Span) (any, error) {
			outer = tracing.TraceID(ctx)
			return tracing.NewTrace(ctx, tr, "inner",
				func(ctx context.Context, _ trace.Span) (any, error) {
					inner = tracing.TraceID(ctx)
					return nil, nil
				},
			)
		},
	)
	assert.NotEqual(t, outer, inner)
}

func TestRunInSpanIsChild(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tr := tracing.New(tracing.WithExporter(exp))
	defer func() { _ = tr.Shutdown(context.Background()) }()

	_, err := tracing.NewTrace(context.Background(), tr, "root",
		func(ctx context.Context, _ trace.Span) (string, error) {
			return tracing.RunInSpan(ctx, "child",
				[]attribute.KeyValue{attribute.String(tracing.AttrType, "action")},
				func(context.Context, trace.Span) (string, error) {
					return "done", nil
				},
			)
		},
	)
	assert.NoError(t, err)

	spans := exp.GetSpans()
	assert.Len(t, spans, 2)
	child, root := spans[0], spans[1]
	assert.Equal(t, "child", child.Name)
	assert.Equal(t, root.SpanContext.SpanID(), child.Parent.SpanID())
	assert.Equal(t, root.SpanContext.TraceID(), child.SpanContext.TraceID())
}

func TestTraceIDWithoutSpan(t *testing.T) {
	assert.Empty(t, tracing.TraceID(context.Background()))
}

func TestFlushBatchExporter(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tr := tracing.New(
		tracing.WithBatchExporter(exp), tracing.WithoutGlobal(),
	)
	defer func() { _ = tr.Shutdown(context.Background()) }()

	_, _ = tracing.NewTrace(context.Background(), tr, "batched",
		func(context.Context, trace.Span) (any, error) {
			return nil, nil
		},
	)
	assert.NoError(t, tr.Flush(context.Background()))
	assert.Len(t, exp.GetSpans(), 1)
}
