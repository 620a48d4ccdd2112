package assert

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/reflector/internal/config"
	"github.com/kode4food/reflector/pkg/api"
)

// Wrapper wraps testify assertions with reflection-specific helpers
type Wrapper struct {
	*testing.T
	*assert.Assertions
	Require *require.Assertions
}

// DefaultRetryInterval is the default polling interval for Eventually checks
const DefaultRetryInterval = 10 * time.Millisecond

// New creates a new test assertion wrapper with both assert and require from
// testify plus reflection-specific helpers
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
		Require:    require.New(t),
	}
}

// ActionDescValid asserts that an action descriptor is well formed
func (w *Wrapper) ActionDescValid(desc *api.ActionDesc) {
	w.Helper()
	w.Require.NotNil(desc)
	w.NotEmpty(desc.Key)
	w.NotEmpty(desc.Name)
	if len(desc.InputSchema) > 0 {
		w.True(json.Valid(desc.InputSchema), "input schema is not JSON")
	}
	if len(desc.OutputSchema) > 0 {
		w.True(json.Valid(desc.OutputSchema), "output schema is not JSON")
	}
}

// StatusBody asserts that a recorded response carries a Status with the
// expected HTTP and reflection codes, returning the decoded Status
func (w *Wrapper) StatusBody(
	rec *httptest.ResponseRecorder, httpCode int, code api.StatusCode,
) *api.Status {
	w.Helper()
	w.Equal(httpCode, rec.Code)
	var st api.Status
	w.Require.NoError(json.Unmarshal(rec.Body.Bytes(), &st))
	w.Equal(code, st.Code)
	return &st
}

// JSONBody decodes a recorded 200 response into the provided value
func (w *Wrapper) JSONBody(rec *httptest.ResponseRecorder, v any) {
	w.Helper()
	w.Require.Equal(http.StatusOK, rec.Code, rec.Body.String())
	w.Require.NoError(json.Unmarshal(rec.Body.Bytes(), v))
}

// ConfigValid asserts that a configuration is valid
func (w *Wrapper) ConfigValid(cfg *config.Config) {
	w.Helper()
	w.NoError(cfg.Validate())
	w.True(cfg.APIPort > 0 && cfg.APIPort <= 65535)
	w.Contains(cfg.Envs, cfg.Env)
}

// ConfigInvalid asserts that a configuration is invalid
func (w *Wrapper) ConfigInvalid(cfg *config.Config, contains string) {
	w.Helper()
	err := cfg.Validate()
	w.Error(err)
	if err != nil && contains != "" {
		w.Contains(err.Error(), contains)
	}
}

// Eventually runs a condition repeatedly until it passes or times out
func (w *Wrapper) Eventually(
	condition func() bool, timeout time.Duration, msg string, args ...any,
) {
	w.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(DefaultRetryInterval)
	}
	w.Fail(msg, args...)
}
