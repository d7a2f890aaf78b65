package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	method string
	route  string
	status int
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (o *recordingObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, observation{method, route, status})
}

func newLoggedRouter(buf *bytes.Buffer, obs RequestObserver) chi.Router {
	logger := slog.New(slog.NewJSONHandler(buf, nil))
	r := chi.NewRouter()
	r.Use(SecureLogger(logger, obs))
	r.Get("/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})
	return r
}

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestSecureLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	router := newLoggedRouter(&buf, nil)

	req := httptest.NewRequest(http.MethodGet, "/tasks/abc?page=2", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	entry := decodeLogLine(t, &buf)
	assert.Equal(t, "http_request", entry["msg"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/tasks/abc?page=2", entry["path"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
}

func TestSecureLogger_RedactsSensitiveQuery(t *testing.T) {
	var buf bytes.Buffer
	router := newLoggedRouter(&buf, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/login?token=s3cr3t", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	entry := decodeLogLine(t, &buf)
	assert.Equal(t, "/auth/login?[REDACTED]", entry["path"])
	assert.NotContains(t, buf.String(), "s3cr3t")
	assert.Equal(t, float64(http.StatusOK), entry["status"])
}

func TestSecureLogger_ObservesRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	obs := &recordingObserver{}
	router := newLoggedRouter(&buf, obs)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tasks/123", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, obs.seen, 2)
	assert.Equal(t, observation{"GET", "/tasks/{id}", http.StatusTeapot}, obs.seen[0])
	assert.Equal(t, observation{"GET", "unmatched", http.StatusNotFound}, obs.seen[1])
}
