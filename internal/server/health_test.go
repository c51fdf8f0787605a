package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker()
	h.SetReady(false)
	h.SetShuttingDown()

	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code, "liveness ignores readiness")
}

func TestHealthChecker_Readiness(t *testing.T) {
	tests := []struct {
		name         string
		ready        bool
		shuttingDown bool
		wantStatus   int
		wantChecks   map[string]string
	}{
		{"ready", true, false, http.StatusOK, map[string]string{"ready": "ok", "shutdown": "ok"}},
		{"not ready", false, false, http.StatusServiceUnavailable, map[string]string{"ready": "not ready", "shutdown": "ok"}},
		{"shutting down", true, true, http.StatusServiceUnavailable, map[string]string{"ready": "ok", "shutdown": "shutting down"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker()
			h.SetReady(tt.ready)
			if tt.shuttingDown {
				h.SetShuttingDown()
			}
			assert.Equal(t, tt.ready, h.IsReady())

			rec := httptest.NewRecorder()
			h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantChecks, body.Checks)
		})
	}
}

func TestHealthChecker_Detailed(t *testing.T) {
	h := NewHealthChecker()

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.NotEmpty(t, body.Uptime)
	assert.Nil(t, body.LastRun)

	h.RecordRun("done", nil)
	rec = httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.LastRun)
	assert.Equal(t, "done", body.LastRun.Stage)
	assert.Empty(t, body.LastRun.Error)
}

func TestHealthChecker_RegisterHealthEndpoints(t *testing.T) {
	r := mux.NewRouter()
	NewHealthChecker().RegisterHealthEndpoints(r)

	for _, path := range []string{"/healthz", "/readyz", "/healthz/detailed"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
