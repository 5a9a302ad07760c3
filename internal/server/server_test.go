package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freightdash/internal/config"
)

func newTestServer(t *testing.T, mutate func(cfg *config.AppConfig)) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	dataDir, err := config.EnsureDataDir(dir, cfg)
	require.NoError(t, err)

	srv, err := NewServer(cfg, dir, dataDir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t, nil)
	h := srv.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/upload", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"initialized":false`)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nada", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, ":20262", srv.Addr())
	require.NotNil(t, srv.GetStore())
}

func TestServer_AliasFile(t *testing.T) {
	dir := t.TempDir()
	aliasPath := filepath.Join(dir, "aliases.yaml")
	require.NoError(t, os.WriteFile(aliasPath, []byte("aliases:\n  Documento: invoiceNumber\n"), 0644))

	cfg := config.DefaultConfig()
	cfg.Import.AliasFile = aliasPath
	dataDir, err := config.EnsureDataDir(dir, cfg)
	require.NoError(t, err)

	srv, err := NewServer(cfg, dir, dataDir, nil)
	require.NoError(t, err)
	require.NoError(t, srv.Shutdown(context.Background()))

	cfg.Import.AliasFile = filepath.Join(dir, "missing.yaml")
	_, err = NewServer(cfg, dir, dataDir, nil)
	assert.Error(t, err)
}
