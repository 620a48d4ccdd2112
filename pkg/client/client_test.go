package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	as "github.com/kode4food/reflector/internal/assert"
	"github.com/kode4food/reflector/internal/assert/helpers"
	"github.com/kode4food/reflector/pkg/api"
	"github.com/kode4food/reflector/pkg/client"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHealthAndEnvs(t *testing.T) {
	c, _ := newTestClient(t, "dev", "prod")
	ctx := context.Background()

	assert.NoError(t, c.Health(ctx))

	envs, err := c.ListEnvs(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"dev", "prod"}, envs)
}

func TestQuit(t *testing.T) {
	c, env := newTestClient(t)

	a := as.New(t)
	a.NoError(c.Quit(context.Background()))
	a.Eventually(func() bool {
		return env.Quits.Load() == 1
	}, time.Second, "quit hook not called")
}

func TestListActions(t *testing.T) {
	c, _ := newTestClient(t)

	descs, err := c.ListActions(context.Background())
	assert.NoError(t, err)
	if assert.Contains(t, descs, "greet") {
		assert.Equal(t, "says hi", descs["greet"].Description)
		assert.NotEmpty(t, descs["greet"].InputSchema)
	}
	if assert.Contains(t, descs, "echo") {
		assert.Empty(t, descs["echo"].InputSchema)
	}
}

func TestRunAction(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	res, err := c.RunAction(ctx, "greet", helpers.GreetInput{Name: "Ann"})
	assert.NoError(t, err)
	assert.JSONEq(t, `"hello Ann"`, string(res.Result))
	if assert.NotNil(t, res.Telemetry) {
		trace, err := c.GetTrace(ctx, "dev", res.Telemetry.TraceID)
		assert.NoError(t, err)
		assert.Equal(t, res.Telemetry.TraceID, trace.TraceID)
	}

	res, err = c.RunAction(ctx, "echo", json.RawMessage(`{"a":1}`))
	assert.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(res.Result))
}

func TestRunActionErrors(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.RunAction(ctx, "missing", nil)
	var se *client.StatusError
	if assert.True(t, errors.As(err, &se)) {
		assert.Equal(t, http.StatusNotFound, se.StatusCode)
		assert.Nil(t, se.Status)
		assert.Equal(t, "action missing not found", se.Body)
	}

	_, err = c.RunAction(ctx, "fail", nil)
	if assert.True(t, errors.As(err, &se)) {
		assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
		if assert.NotNil(t, se.Status) {
			assert.Equal(t, api.StatusInternal, se.Status.Code)
			assert.NotEmpty(t, se.Status.Details.TraceID)
		}
	}
}

func TestStreamAction(t *testing.T) {
	c, _ := newTestClient(t)

	var chunks []string
	res, err := c.StreamAction(context.Background(), "count",
		helpers.CountInput{To: 3},
		func(chunk json.RawMessage) error {
			chunks = append(chunks, string(chunk))
			return nil
		},
	)
	assert.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, chunks)
	assert.JSONEq(t, `3`, string(res.Result))
	assert.NotNil(t, res.Telemetry)
}

func TestStreamActionFailure(t *testing.T) {
	c, _ := newTestClient(t)

	var chunks []string
	_, err := c.StreamAction(context.Background(), "failAfter", nil,
		func(chunk json.RawMessage) error {
			chunks = append(chunks, string(chunk))
			return nil
		},
	)
	assert.Equal(t, []string{`"partial"`}, chunks)

	var se *client.StatusError
	if assert.True(t, errors.As(err, &se)) {
		assert.Equal(t, http.StatusOK, se.StatusCode)
		assert.Equal(t, api.StatusInternal, se.Status.Code)
	}
}

func TestStreamTerminalHeuristic(t *testing.T) {
	// chunks may look exactly like envelopes; only position decides
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{\"result\":1}\n\n{\"result\":2}\n"))
			_, _ = w.Write([]byte(`{"result":3,"telemetry":{"traceId":"t"}}`))
		},
	))
	defer srv.Close()

	var chunks []string
	res, err := client.New(srv.URL).StreamAction(
		context.Background(), "any", nil,
		func(chunk json.RawMessage) error {
			chunks = append(chunks, string(chunk))
			return nil
		},
	)
	assert.NoError(t, err)
	assert.Equal(t, []string{`{"result":1}`, `{"result":2}`}, chunks)
	assert.JSONEq(t, `3`, string(res.Result))
	assert.Equal(t, "t", res.Telemetry.TraceID)
}

func TestStreamEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(http.ResponseWriter, *http.Request) {},
	))
	defer srv.Close()

	_, err := client.New(srv.URL).StreamAction(
		context.Background(), "any", nil, nil,
	)
	assert.ErrorIs(t, err, client.ErrEmptyStream)
}

func TestStreamCallbackError(t *testing.T) {
	c, _ := newTestClient(t)
	stop := errors.New("stop")

	_, err := c.StreamAction(context.Background(), "count",
		helpers.CountInput{To: 3},
		func(json.RawMessage) error { return stop },
	)
	assert.ErrorIs(t, err, stop)
}

func TestTracesAndFlowStates(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	res, err := c.RunAction(ctx, "/flow/shout", "hi")
	assert.NoError(t, err)
	assert.JSONEq(t, `"HI"`, string(res.Result))

	limit := 1
	traces, err := c.ListTraces(ctx, "dev", &api.ListParams{Limit: &limit})
	assert.NoError(t, err)
	assert.Len(t, traces.Items, 1)

	flows, err := c.ListFlowStates(ctx, "dev", nil)
	assert.NoError(t, err)
	if assert.Len(t, flows.Items, 1) {
		var fs api.FlowState
		assert.NoError(t, json.Unmarshal(flows.Items[0], &fs))

		loaded, err := c.GetFlowState(ctx, "dev", string(fs.FlowID))
		assert.NoError(t, err)
		assert.Equal(t, fs.FlowID, loaded.FlowID)
		assert.Equal(t, res.Telemetry.TraceID, loaded.TraceID)
	}

	_, err = c.ListTraces(ctx, "prod", nil)
	var se *client.StatusError
	if assert.True(t, errors.As(err, &se)) {
		assert.Equal(t, api.StatusFailedPrecondition, se.Status.Code)
	}
}

func newTestClient(
	t *testing.T, envs ...string,
) (*client.Client, *helpers.TestServerEnv) {
	t.Helper()
	env := helpers.NewTestServer(t, envs...)
	srv := httptest.NewServer(env.Server.SetupRoutes())
	t.Cleanup(srv.Close)
	return client.New(srv.URL, client.WithHTTPClient(srv.Client())), env
}
