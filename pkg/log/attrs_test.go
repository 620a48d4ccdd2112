package log_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/reflector/pkg/api"
	"github.com/kode4food/reflector/pkg/log"
)

type errStub string

func TestActionKey(t *testing.T) {
	attr := log.ActionKey("/flow/greet")
	assertAttrEqual(t, attr, "action_key", "/flow/greet")
}

func TestTraceID(t *testing.T) {
	attr := log.TraceID("0af7651916cd43dd8448eb211c80319c")
	assertAttrEqual(t, attr, "trace_id", "0af7651916cd43dd8448eb211c80319c")
}

func TestFlowID(t *testing.T) {
	attr := log.FlowID(api.FlowID("flow-123"))
	assertAttrEqual(t, attr, "flow_id", "flow-123")
}

func TestEnv(t *testing.T) {
	attr := log.Env("prod")
	assertAttrEqual(t, attr, "env", "prod")
}

func TestError(t *testing.T) {
	attr := log.Error(nil)
	assertAttrEqual(t, attr, "error", "")

	attr = log.Error(errStub("boom"))
	assertAttrEqual(t, attr, "error", "boom")
}

func (e errStub) Error() string { return string(e) }

func assertAttrEqual(t *testing.T, attr slog.Attr, key, value string) {
	t.Helper()
	assert.Equal(t, key, attr.Key)
	assert.Equal(t, value, attr.Value.String())
}
