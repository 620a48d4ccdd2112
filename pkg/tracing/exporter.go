package tracing

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kode4food/reflector/pkg/api"
	"github.com/kode4food/reflector/pkg/store"
)

// StoreExporter is a SpanExporter that merges exported spans into one
// TraceData record per trace ID
type StoreExporter struct {
	store store.Store
	mu    sync.Mutex
}

var _ sdktrace.SpanExporter = (*StoreExporter)(nil)

// NewStoreExporter creates an exporter writing trace records to s
func NewStoreExporter(s store.Store) *StoreExporter {
	return &StoreExporter{store: s}
}

// ExportSpans saves spans, grouped by trace, into the store
func (e *StoreExporter) ExportSpans(
	ctx context.Context, spans []sdktrace.ReadOnlySpan,
) error {
	byTrace := map[string][]*api.SpanData{}
	var order []string
	for _, span := range spans {
		sd := convertSpan(span)
		if _, ok := byTrace[sd.TraceID]; !ok {
			order = append(order, sd.TraceID)
		}
		byTrace[sd.TraceID] = append(byTrace[sd.TraceID], sd)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for _, traceID := range order {
		if err := e.save(ctx, traceID, byTrace[traceID]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Shutdown is a no-op; the store's lifecycle belongs to its owner
func (e *StoreExporter) Shutdown(context.Context) error {
	return nil
}

func (e *StoreExporter) save(
	ctx context.Context, traceID string, spans []*api.SpanData,
) error {
	td, err := e.load(ctx, traceID)
	if err != nil {
		return err
	}
	for _, sd := range spans {
		td.Spans[sd.SpanID] = sd
		if sd.IsRoot() {
			td.DisplayName = sd.DisplayName
			td.StartTime = sd.StartTime
			td.EndTime = sd.EndTime
		}
	}
	data, err := json.Marshal(td)
	if err != nil {
		return err
	}
	return e.store.Save(ctx, traceID, data)
}

func (e *StoreExporter) load(
	ctx context.Context, traceID string,
) (*api.TraceData, error) {
	data, err := e.store.Load(ctx, traceID)
	if errors.Is(err, store.ErrNotFound) {
		return &api.TraceData{
			TraceID: traceID,
			Spans:   map[string]*api.SpanData{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	var td api.TraceData
	if err := json.Unmarshal(data, &td); err != nil {
		return nil, err
	}
	if td.Spans == nil {
		td.Spans = map[string]*api.SpanData{}
	}
	return &td, nil
}

func convertSpan(span sdktrace.ReadOnlySpan) *api.SpanData {
	sc := span.SpanContext()
	sd := &api.SpanData{
		SpanID:      sc.SpanID().String(),
		TraceID:     sc.TraceID().String(),
		StartTime:   toMillis(span.StartTime()),
		EndTime:     toMillis(span.EndTime()),
		DisplayName: span.Name(),
		SpanKind:    span.SpanKind().String(),
		SameProcess: true,
	}
	if parent := span.Parent(); parent.IsValid() {
		sd.ParentSpanID = parent.SpanID().String()
	}
	if attrs := span.Attributes(); len(attrs) > 0 {
		sd.Attributes = make(map[string]any, len(attrs))
		for _, kv := range attrs {
			sd.Attributes[string(kv.Key)] = kv.Value.AsInterface()
		}
	}
	status := span.Status()
	sd.Status = &api.SpanStatus{
		Code:    int(status.Code),
		Message: status.Description,
	}
	scope := span.InstrumentationScope()
	sd.InstrumentationLibrary = &api.InstrumentationLibrary{
		Name:    scope.Name,
		Version: scope.Version,
	}
	return sd
}

func toMillis(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Millisecond)
}
