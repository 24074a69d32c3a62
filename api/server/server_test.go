package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hvtesting "github.com/helioview/helioview/utils/pkg/testing"
)

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	require.Error(t, cfg.Validate())

	cfg = Config{Logger: hvtesting.NewLogger(), ListenAddr: ":0"}
	require.Error(t, cfg.Validate())

	cfg = Config{Logger: hvtesting.NewLogger(), ListenAddr: ":0", DataRoot: t.TempDir()}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.NotNil(t, cfg.Clock)
}

func TestServerEndpoints(t *testing.T) {
	srv, err := New(Config{
		Logger:      hvtesting.NewLogger(),
		ListenAddr:  ":0",
		DataRoot:    t.TempDir(),
		VersionInfo: VersionInfo{Version: "test"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.store.Close() })

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.httpSrv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, get("/healthz").Code)
	// The store has not been started, so readiness is still false.
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz").Code)

	rec := get("/version")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test")

	rec = get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)

	// API routes are mounted.
	rec = get("/api/sites")
	assert.Equal(t, http.StatusOK, rec.Code)
}
