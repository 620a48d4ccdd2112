package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kode4food/reflector/pkg/api"
)

type (
	// Client calls a running reflection API
	Client struct {
		httpClient *http.Client
		baseURL    string
	}

	// Option configures a Client
	Option func(*Client)

	// ChunkFunc receives each intermediate chunk of a streamed invocation
	ChunkFunc func(chunk json.RawMessage) error

	// StatusError reports a failed call. Status is set when the server
	// answered with a Status body
	StatusError struct {
		Status     *api.Status
		Body       string
		StatusCode int
	}

	// terminal is the union of the two shapes a stream can end with
	terminal struct {
		Result    json.RawMessage    `json:"result"`
		Telemetry *api.Telemetry     `json:"telemetry"`
		Code      api.StatusCode     `json:"code"`
		Message   string             `json:"message"`
		Details   *api.StatusDetails `json:"details"`
	}
)

// DefaultBaseURL is where the reflection API listens unless configured
// otherwise
const DefaultBaseURL = "http://127.0.0.1:3100"

var (
	ErrEmptyStream   = errors.New("stream ended without a terminal line")
	ErrBadTerminal   = errors.New("malformed terminal stream line")
	ErrEncodeRequest = errors.New("failed to encode request")
)

// New creates a client for the reflection API at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Health checks that the reflection API is up
func (c *Client) Health(ctx context.Context) error {
	_, err := c.getText(ctx, "/api/__health")
	return err
}

// Quit asks the reflection API process to exit
func (c *Client) Quit(ctx context.Context) error {
	_, err := c.getText(ctx, "/api/__quitquitquit")
	return err
}

// ListActions returns the registered action descriptors by key
func (c *Client) ListActions(
	ctx context.Context,
) (map[string]*api.ActionDesc, error) {
	var res map[string]*api.ActionDesc
	if err := c.getJSON(ctx, "/api/actions", &res); err != nil {
		return nil, err
	}
	return res, nil
}

// ListEnvs returns the configured environment names
func (c *Client) ListEnvs(ctx context.Context) ([]string, error) {
	var res []string
	if err := c.getJSON(ctx, "/api/envs", &res); err != nil {
		return nil, err
	}
	return res, nil
}

// RunAction invokes the action registered under key
func (c *Client) RunAction(
	ctx context.Context, key string, input any,
) (*api.RunActionResponse, error) {
	resp, err := c.postRun(ctx, key, input, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var res api.RunActionResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

// StreamAction invokes the action registered under key in streaming mode.
// Every line but the last is handed to fn as a chunk. The last line before
// the connection closes is the terminal one: the envelope is returned, a
// Status becomes a *StatusError
func (c *Client) StreamAction(
	ctx context.Context, key string, input any, fn ChunkFunc,
) (*api.RunActionResponse, error) {
	resp, err := c.postRun(ctx, key, input, true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	last, err := readStream(resp.Body, fn)
	if err != nil {
		return nil, err
	}
	return decodeTerminal(resp.StatusCode, last)
}

// GetTrace loads one trace record from the trace store of env
func (c *Client) GetTrace(
	ctx context.Context, env, traceID string,
) (*api.TraceData, error) {
	var res api.TraceData
	err := c.getJSON(ctx, recordPath(env, "traces", traceID), &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListTraces lists trace records of env, newest first
func (c *Client) ListTraces(
	ctx context.Context, env string, params *api.ListParams,
) (*api.ListResult, error) {
	return c.list(ctx, env, "traces", params)
}

// GetFlowState loads one flow-state record from the flow-state store of env
func (c *Client) GetFlowState(
	ctx context.Context, env, flowID string,
) (*api.FlowState, error) {
	var res api.FlowState
	err := c.getJSON(ctx, recordPath(env, "flowStates", flowID), &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListFlowStates lists flow-state records of env
func (c *Client) ListFlowStates(
	ctx context.Context, env string, params *api.ListParams,
) (*api.ListResult, error) {
	return c.list(ctx, env, "flowStates", params)
}

func (c *Client) list(
	ctx context.Context, env, kind string, params *api.ListParams,
) (*api.ListResult, error) {
	q := url.Values{}
	if params != nil && params.Limit != nil {
		q.Set("limit", strconv.Itoa(*params.Limit))
	}
	if params != nil && params.ContinuationToken != nil {
		q.Set("continuationToken", *params.ContinuationToken)
	}
	path := "/api/envs/" + url.PathEscape(env) + "/" + kind
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var res api.ListResult
	if err := c.getJSON(ctx, path, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) postRun(
	ctx context.Context, key string, input any, stream bool,
) (*http.Response, error) {
	raw, err := encodeInput(input)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(api.RunActionRequest{Key: key, Input: raw})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeRequest, err)
	}

	path := "/api/runAction"
	if stream {
		path += "?stream=true"
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("Running remote action",
		slog.String("key", key),
		slog.Bool("stream", stream))
	return c.do(req)
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+path, nil,
	)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) getText(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+path, nil,
	)
	if err != nil {
		return "", err
	}

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// do sends req, turning any non-2xx response into a *StatusError
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	res := &StatusError{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
	var st api.Status
	if json.Unmarshal(body, &st) == nil && st.Code != "" {
		res.Status = &st
	}
	return nil, res
}

func (e *StatusError) Error() string {
	if e.Status != nil {
		return fmt.Sprintf("reflection API error (HTTP %d): %s",
			e.StatusCode, e.Status.Error())
	}
	return fmt.Sprintf("reflection API error (HTTP %d): %s",
		e.StatusCode, strings.TrimSpace(e.Body))
}

// readStream hands every complete line but the last to fn, returning the
// last line
func readStream(r io.Reader, fn ChunkFunc) ([]byte, error) {
	br := bufio.NewReader(r)
	var pending []byte
	for {
		line, err := br.ReadBytes('\n')
		line = bytes.TrimRight(line, "\r\n")
		if len(line) > 0 {
			if pending != nil && fn != nil {
				if cerr := fn(json.RawMessage(pending)); cerr != nil {
					return nil, cerr
				}
			}
			pending = line
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if pending == nil {
		return nil, ErrEmptyStream
	}
	return pending, nil
}

func decodeTerminal(code int, line []byte) (*api.RunActionResponse, error) {
	var t terminal
	if err := json.Unmarshal(line, &t); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadTerminal, err)
	}
	if t.Result == nil && t.Code != "" {
		return nil, &StatusError{
			StatusCode: code,
			Body:       string(line),
			Status: &api.Status{
				Code:    t.Code,
				Message: t.Message,
				Details: t.Details,
			},
		}
	}
	return &api.RunActionResponse{
		Result:    t.Result,
		Telemetry: t.Telemetry,
	}, nil
}

func encodeInput(input any) (json.RawMessage, error) {
	switch in := input.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return in, nil
	default:
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncodeRequest, err)
		}
		return data, nil
	}
}

func recordPath(env, kind, id string) string {
	return "/api/envs/" + url.PathEscape(env) + "/" + kind + "/" +
		url.PathEscape(id)
}
