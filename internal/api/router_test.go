package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/IvanYuichiC/etab-flow-sign/internal/services"
	"github.com/IvanYuichiC/etab-flow-sign/internal/workflow"
	"github.com/IvanYuichiC/etab-flow-sign/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	logger := zap.NewNop()
	metricsCollector := metrics.NewMetricsCollector()

	sessions := services.NewSessionStore(time.Hour, logger, metricsCollector)
	t.Cleanup(sessions.Close)

	docService := services.NewDocumentService(nil, logger, metricsCollector, "DOC")
	engine := workflow.NewEngine(workflow.NewMemStore(), logger, metricsCollector, 3)

	router := NewRouter(logger, metricsCollector, sessions, docService, engine, nil)
	router.SetupRoutes()
	return router
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.GetEngine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "etab-flow-sign")
}

func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.GetEngine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "counters")
}

func TestRouter_AuthRequiredWithoutSession(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/dashboard", "/documents", "/users", "/me"} {
		rec := httptest.NewRecorder()
		router.GetEngine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "path %s", path)
	}
}

func TestRouter_RequestIDHeader(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.GetEngine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_TrackUnknownDocumentIsPublic(t *testing.T) {
	router := newTestRouter(t)

	// No session cookie: the tracking endpoint still answers, here with a
	// 404 because the in-memory store is empty.
	rec := httptest.NewRecorder()
	router.GetEngine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/track/unknown", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
