package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/kode4food/reflector/pkg/action"
	"github.com/kode4food/reflector/pkg/api"
	"github.com/kode4food/reflector/pkg/log"
	"github.com/kode4food/reflector/pkg/tracing"
)

// streamWriter serializes stream chunks onto an open response
type streamWriter struct {
	c       *gin.Context
	started bool
}

const (
	// RunActionSpanName names the root span wrapping every invocation
	RunActionSpanName = "dev-run-action-wrapper"

	// DevInternalKey marks spans produced by reflection API invocations
	DevInternalKey = "dev-internal"

	streamContentType = "application/x-ndjson"
)

var errStreamIncomplete = errors.New("stream ended without a result")

func (s *Server) listActions(c *gin.Context) {
	actions := s.registry.ListActions()
	res := make(map[string]*api.ActionDesc, len(actions))
	for key, a := range actions {
		res[key] = a.Desc()
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleRunAction(c *gin.Context) {
	var req api.RunActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, invalidArgument(
			fmt.Errorf("%w: %w", ErrInvalidJSON, err),
		))
		return
	}

	a, ok := s.registry.LookupAction(req.Key)
	if !ok {
		respondError(c, notFound("action %s not found", req.Key))
		return
	}

	slog.Debug("Running action", log.ActionKey(req.Key))
	if c.Query("stream") == "true" {
		s.streamAction(c, a, req.Input)
		return
	}

	res, err := s.runAction(c.Request.Context(), a, req.Input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// runAction invokes a inside a new root trace and returns the envelope
func (s *Server) runAction(
	ctx context.Context, a action.Action, input json.RawMessage,
) (*api.RunActionResponse, error) {
	var traceID string
	out, err := tracing.NewTrace(ctx, s.tracer, RunActionSpanName,
		func(ctx context.Context, _ trace.Span) (json.RawMessage, error) {
			tracing.SetCustomMetadataAttribute(ctx, DevInternalKey, "true")
			traceID = tracing.TraceID(ctx)
			return a.RunJSON(ctx, input, nil)
		},
	)
	s.flushTraces(ctx, traceID)
	if err != nil {
		return nil, internalError(err, traceID)
	}
	return &api.RunActionResponse{
		Result:    out,
		Telemetry: api.NewTelemetry(traceID),
	}, nil
}

// streamAction consumes the run of a as a sequence, writing every chunk as
// its own line. The envelope, or the Status of a failure once chunks have
// been written, is the terminal line
func (s *Server) streamAction(
	c *gin.Context, a action.Action, input json.RawMessage,
) {
	w := &streamWriter{c: c}
	var traceID string
	out, err := tracing.NewTrace(c.Request.Context(), s.tracer,
		RunActionSpanName,
		func(ctx context.Context, _ trace.Span) (json.RawMessage, error) {
			tracing.SetCustomMetadataAttribute(ctx, DevInternalKey, "true")
			traceID = tracing.TraceID(ctx)
			for v, err := range action.Stream(ctx, a, input) {
				if err != nil {
					return nil, err
				}
				if v.Done {
					return v.Output, nil
				}
				if err := w.writeLine(v.Chunk); err != nil {
					return nil, err
				}
			}
			return nil, errStreamIncomplete
		},
	)

	s.flushTraces(c.Request.Context(), traceID)

	if err != nil {
		herr := internalError(err, traceID)
		if !w.started {
			respondError(c, herr)
			return
		}
		_, st := statusFor(herr)
		slog.Error("Streaming action failed",
			log.TraceID(traceID),
			log.Error(err))
		_ = w.writeTerminal(st)
		return
	}

	_ = w.writeTerminal(&api.RunActionResponse{
		Result:    out,
		Telemetry: api.NewTelemetry(traceID),
	})
}

// flushTraces exports the invocation's spans so that its trace can be read
// back as soon as the caller sees the trace ID
func (s *Server) flushTraces(ctx context.Context, traceID string) {
	if err := s.tracer.Flush(ctx); err != nil {
		slog.Warn("Failed to flush traces",
			log.TraceID(traceID),
			log.Error(err))
	}
}

func (w *streamWriter) start() {
	if w.started {
		return
	}
	w.started = true
	w.c.Header("Content-Type", streamContentType)
	w.c.Header("Cache-Control", "no-cache")
	w.c.Status(http.StatusOK)
}

func (w *streamWriter) writeLine(chunk json.RawMessage) error {
	w.start()
	if _, err := w.c.Writer.Write(append(chunk, '\n')); err != nil {
		return err
	}
	w.c.Writer.Flush()
	return nil
}

func (w *streamWriter) writeTerminal(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.start()
	if _, err := w.c.Writer.Write(data); err != nil {
		return err
	}
	w.c.Writer.Flush()
	return nil
}
