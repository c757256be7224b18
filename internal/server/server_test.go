package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"filevault/internal/config"
	"filevault/internal/handlers"
)

func newTestServer() *HTTPServer {
	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{
		Environment: "test",
		HTTP:        config.HTTPConfig{Host: "127.0.0.1", Port: 0},
	}
	set := handlers.NewHandlerSet(zerolog.Nop(), cfg, nil, nil, nil, nil)
	return NewHTTPServer(cfg, zerolog.Nop(), set)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	srv := newTestServer()

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "filevault_http_requests_total")
}

func TestServer_ProtectedRouteNeedsToken(t *testing.T) {
	srv := newTestServer()

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/user/files/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
