package reflector_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/kode4food/reflector"
	"github.com/kode4food/reflector/internal/server"
	"github.com/kode4food/reflector/pkg/registry"
	"github.com/kode4food/reflector/pkg/tracing"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStartReflectionAPI(t *testing.T) {
	reg := registry.New()
	tr := tracing.New(tracing.WithoutGlobal())

	port := freePort(t)
	srv, err := reflector.StartReflectionAPI(reg, tr,
		reflector.WithAddr("127.0.0.1", port),
		reflector.WithEnvs("dev", "prod"),
	)
	assert.NoError(t, err)
	if !assert.NotNil(t, srv) {
		return
	}
	defer func() { _ = srv.Shutdown(context.Background()) }()

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/envs", port))
	if assert.NoError(t, err) {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `["dev","prod"]`, string(body))
	}
}

func TestStartReflectionAPIPortInUse(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	defer func() { _ = l.Close() }()
	port := l.Addr().(*net.TCPAddr).Port

	reg := registry.New()
	tr := tracing.New(tracing.WithoutGlobal())

	_, err = reflector.StartReflectionAPI(reg, tr,
		reflector.WithAddr("127.0.0.1", port),
	)
	assert.ErrorIs(t, err, server.ErrStartServer)

	t.Setenv("REFLECTION_ON_STARTUP_FAILURE", "ignore")
	srv, err := reflector.StartReflectionAPI(reg, tr,
		reflector.WithAddr("127.0.0.1", port),
	)
	assert.NoError(t, err)
	assert.Nil(t, srv)
}

func TestStartReflectionAPIInvalidConfig(t *testing.T) {
	_, err := reflector.StartReflectionAPI(registry.New(),
		tracing.New(tracing.WithoutGlobal()),
		reflector.WithAddr("127.0.0.1", 0),
	)
	assert.Error(t, err)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()
	return port
}
