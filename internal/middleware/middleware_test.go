package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/apperr"
	"filevault/internal/config"
	"filevault/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type authenticatorMock struct {
	AuthenticateFunc func(ctx context.Context, token string) (models.User, error)
}

func (m *authenticatorMock) Authenticate(ctx context.Context, token string) (models.User, error) {
	return m.AuthenticateFunc(ctx, token)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		if user, ok := CurrentUser(c); ok {
			c.JSON(http.StatusOK, gin.H{"id": user.ID})
			return
		}
		c.Status(http.StatusOK)
	})
	engine.GET("/t", handlers...)
	return engine
}

func do(engine *gin.Engine, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAuth_MissingHeader(t *testing.T) {
	mock := &authenticatorMock{AuthenticateFunc: func(context.Context, string) (models.User, error) {
		t.Fatal("should not be called")
		return models.User{}, nil
	}}
	w := do(newEngine(Auth(mock, zerolog.Nop())), nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authentication credentials were not provided.")
}

func TestAuth_WrongScheme(t *testing.T) {
	mock := &authenticatorMock{}
	w := do(newEngine(Auth(mock, zerolog.Nop())), http.Header{"Authorization": {"Basic abc"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ValidToken(t *testing.T) {
	mock := &authenticatorMock{AuthenticateFunc: func(_ context.Context, token string) (models.User, error) {
		assert.Equal(t, "tok", token)
		return models.User{ID: 42, IsActive: true}, nil
	}}
	w := do(newEngine(Auth(mock, zerolog.Nop())), http.Header{"Authorization": {"Bearer tok"}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":42}`, w.Body.String())
}

func TestAuth_RejectedToken(t *testing.T) {
	mock := &authenticatorMock{AuthenticateFunc: func(context.Context, string) (models.User, error) {
		return models.User{}, apperr.Unauthorized("Token is invalid or expired")
	}}
	w := do(newEngine(Auth(mock, zerolog.Nop())), http.Header{"Authorization": {"Bearer tok"}})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token is invalid or expired")
}

func TestAuth_InfrastructureError(t *testing.T) {
	mock := &authenticatorMock{AuthenticateFunc: func(context.Context, string) (models.User, error) {
		return models.User{}, errors.New("db down")
	}}
	w := do(newEngine(Auth(mock, zerolog.Nop())), http.Header{"Authorization": {"Bearer tok"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func withUser(user models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(currentUserKey, user)
		c.Next()
	}
}

func TestRequireAdmin(t *testing.T) {
	w := do(newEngine(withUser(models.User{ID: 1}), RequireAdmin()), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(newEngine(withUser(models.User{ID: 1, IsAdmin: true}), RequireAdmin()), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(newEngine(RequireAdmin()), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimit_RejectsAfterLimit(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	engine := newEngine(RateLimit(client, config.RateLimitConfig{RequestsPerMinute: 2, Window: time.Minute}, zerolog.Nop()))

	for i := 0; i < 2; i++ {
		w := do(engine, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := do(engine, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	srv.FastForward(time.Minute + time.Second)
	w = do(engine, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// expireOnceFailing drops the first EXPIRE it is asked to send.
type expireOnceFailing struct {
	redis.Cmdable
	failed bool
}

func (e *expireOnceFailing) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if !e.failed {
		e.failed = true
		cmd := redis.NewBoolCmd(ctx)
		cmd.SetErr(errors.New("connection reset"))
		return cmd
	}
	return e.Cmdable.Expire(ctx, key, expiration)
}

func TestRateLimit_LostExpireIsRepaired(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	limited := &expireOnceFailing{Cmdable: client}
	engine := newEngine(RateLimit(limited, config.RateLimitConfig{RequestsPerMinute: 2, Window: time.Minute}, zerolog.Nop()))

	for i := 0; i < 4; i++ {
		do(engine, nil)
	}
	require.True(t, limited.failed)

	keys := srv.Keys()
	require.Len(t, keys, 1)
	assert.Greater(t, srv.TTL(keys[0]), time.Duration(0))

	srv.FastForward(24 * time.Hour)
	assert.Equal(t, http.StatusOK, do(engine, nil).Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr(), MaxRetries: -1})
	defer client.Close()
	srv.Close()

	engine := newEngine(RateLimit(client, config.RateLimitConfig{RequestsPerMinute: 1, Window: time.Minute}, zerolog.Nop()))
	assert.Equal(t, http.StatusOK, do(engine, nil).Code)
}

func TestRequestID(t *testing.T) {
	engine := newEngine(RequestID())

	w := do(engine, http.Header{"X-Request-Id": {"abc"}})
	assert.Equal(t, "abc", w.Header().Get("X-Request-Id"))

	w = do(engine, nil)
	_, err := uuid.Parse(w.Header().Get("X-Request-Id"))
	assert.NoError(t, err)

	w = do(engine, http.Header{"X-Request-Id": {strings.Repeat("x", 200)}})
	assert.Len(t, w.Header().Get("X-Request-Id"), 36)
}

func TestRecovery(t *testing.T) {
	engine := gin.New()
	engine.Use(Recovery(zerolog.Nop()))
	engine.GET("/t", func(*gin.Context) { panic("boom") })

	w := do(engine, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_server_error")
}

func TestCORS(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS([]string{"http://localhost:3000/"}))
	engine.GET("/t", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(engine, http.Header{"Origin": {"http://localhost:3000"}})
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")

	w = do(engine, http.Header{"Origin": {"http://evil.test"}})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
}

func TestCORS_Preflight(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS(nil))
	engine.GET("/t", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/t", nil)
	req.Header.Set("Origin", "http://any.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://any.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestValidRequestID(t *testing.T) {
	assert.True(t, validRequestID("req-42"))
	assert.False(t, validRequestID(""))
	assert.False(t, validRequestID("has space"))
	assert.False(t, validRequestID("line\nbreak"))
}

func TestMetrics_RecordsRoute(t *testing.T) {
	engine := newEngine(Metrics())
	before := testutilCount(t, "/t", "200")

	do(engine, nil)
	assert.Equal(t, before+1, testutilCount(t, "/t", "200"))
}

func testutilCount(t *testing.T, path, status string) float64 {
	t.Helper()
	return testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, path, status))
}
