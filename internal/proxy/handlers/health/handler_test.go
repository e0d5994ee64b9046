package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() *Handler {
	logrus.SetLevel(logrus.ErrorLevel)
	return NewHandler(logrus.WithField("component", "test-health"), true, BuildInfo{
		Version:   "1.2.3",
		Commit:    "abc123",
		BuildTime: "2026-01-01T00:00:00Z",
	})
}

func TestHealth_Healthy(t *testing.T) {
	h := newTestHandler()

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestHealth_ShuttingDown(t *testing.T) {
	h := newTestHandler()
	shutdownTime := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	h.SetShutdownStateHandler(func() (bool, time.Time) {
		return true, shutdownTime
	})

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "shutting_down", response["status"])
	assert.Equal(t, "2026-10-19T12:00:00Z", response["shutdown_time"])
}

func TestVersion(t *testing.T) {
	h := newTestHandler()

	w := httptest.NewRecorder()
	h.Version(w, httptest.NewRequest("GET", "/version", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"service": "body-parser-proxy",
		"build": {"version": "1.2.3", "commit": "abc123", "build_time": "2026-01-01T00:00:00Z"}
	}`, w.Body.String())
}
