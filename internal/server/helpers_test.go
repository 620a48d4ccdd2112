package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kode4food/reflector/internal/assert/helpers"
	"github.com/kode4food/reflector/internal/server"
	"github.com/kode4food/reflector/pkg/api"
)

// recordingStore remembers the list params it was last called with
type recordingStore struct {
	params *api.ListParams
}

func (r *recordingStore) Load(
	context.Context, string,
) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (r *recordingStore) Save(context.Context, string, json.RawMessage) error {
	return nil
}

func (r *recordingStore) List(
	_ context.Context, params *api.ListParams,
) (*api.ListResult, error) {
	r.params = params
	return &api.ListResult{Items: []json.RawMessage{}}, nil
}

func serve(
	s *server.Server, method, path string, body io.Reader,
) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.SetupRoutes().ServeHTTP(w, req)
	return w
}

func runAction(
	s *server.Server, key, input string, stream bool,
) *httptest.ResponseRecorder {
	body, _ := json.Marshal(api.RunActionRequest{
		Key:   key,
		Input: json.RawMessage(input),
	})
	path := "/api/runAction"
	if stream {
		path += "?stream=true"
	}
	return serve(s, "POST", path, bytes.NewReader(body))
}

func findSpan(
	t *testing.T, env *helpers.TestServerEnv, name string,
) tracetest.SpanStub {
	t.Helper()
	for _, span := range env.Spans.GetSpans() {
		if span.Name == name {
			return span
		}
	}
	t.Fatalf("span %q not recorded", name)
	return tracetest.SpanStub{}
}
