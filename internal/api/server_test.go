package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contracting-bridge/internal/bridge"
	"contracting-bridge/internal/config"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	b, err := bridge.New(&config.Config{
		TendersAPI:     config.APIConfig{URL: "http://tenders.invalid", Version: "2.4"},
		ContractingAPI: config.APIConfig{URL: "http://contracting.invalid", Version: "2.4"},
		Cache:          config.CacheConfig{Backend: "memory"},
	})
	require.NoError(t, err)
	s := NewServer(b)
	return s.recoveryMiddleware(s.loggingMiddleware(s.mux))
}

func TestHealthz(t *testing.T) {
	handler := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusReportsQueueDepths(t *testing.T) {
	handler := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var sizes bridge.QueueSizes
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sizes))
	assert.Equal(t, 0, sizes.Tenders)
	assert.Equal(t, 0, sizes.ContractsPut)
}
