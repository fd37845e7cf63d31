package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/carfocus/internal/infrastructure/tracing"
)

func setupTestRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	return router
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	router := setupTestRouter(CORS(DefaultCORSConfig()))

	tests := []struct {
		name           string
		method         string
		origin         string
		wantStatus     int
		wantCORSHeader bool
	}{
		{"simple GET request with origin", http.MethodGet, "http://localhost:3000", http.StatusOK, true},
		{"preflight OPTIONS request", http.MethodOptions, "http://localhost:3000", http.StatusNoContent, true},
		{"no origin header", http.MethodGet, "", http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodPut)
			}

			w := serve(router, req)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCORSHeader {
				assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestCORSExposesTraceHeader(t *testing.T) {
	router := setupTestRouter(CORS(DefaultCORSConfig()))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := serve(router, req)
	exposed := strings.Split(w.Header().Get("Access-Control-Expose-Headers"), ",")
	for i := range exposed {
		exposed[i] = http.CanonicalHeaderKey(strings.TrimSpace(exposed[i]))
	}
	assert.Contains(t, exposed, http.CanonicalHeaderKey(tracing.TraceHeader))
	assert.Contains(t, exposed, http.CanonicalHeaderKey(tracing.SpanHeader))
}

func TestCORSRestrictedOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://headunit.local"}
	router := setupTestRouter(CORS(cfg))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	assert.Equal(t, http.StatusForbidden, serve(router, req).Code)

	req.Header.Set("Origin", "https://headunit.local")
	assert.Equal(t, http.StatusOK, serve(router, req).Code)
}

func TestRateLimit(t *testing.T) {
	router := setupTestRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 2}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "192.168.1.1:1234"
		assert.Equal(t, http.StatusOK, serve(router, req).Code, "request %d", i+1)
	}

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "192.168.1.1:1234"
	w := serve(router, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRateLimitKeysByClientID(t *testing.T) {
	router := setupTestRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))

	request := func(clientID string) int {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "10.0.0.2:5555"
		if clientID != "" {
			req.Header.Set(ClientIDHeader, clientID)
		}
		return serve(router, req).Code
	}

	assert.Equal(t, http.StatusOK, request("music1"))
	assert.Equal(t, http.StatusOK, request("nav1"))
	assert.Equal(t, http.StatusOK, request(""))
	assert.Equal(t, http.StatusTooManyRequests, request("music1"))
	assert.Equal(t, http.StatusTooManyRequests, request(""))
}

func TestLimiterEvictsIdleClients(t *testing.T) {
	l := NewLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTimeout: time.Minute})
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	require.True(t, l.Allow("a"))
	require.True(t, l.Allow("b"))
	assert.False(t, l.Allow("a"))
	assert.Equal(t, 2, l.Len())

	now = now.Add(30 * time.Second)
	require.True(t, l.Allow("b"))

	// a idle for a full minute, b only 30s
	now = now.Add(30 * time.Second)
	require.True(t, l.Allow("c"))
	assert.Equal(t, 2, l.Len())
}

func TestGlobalRateLimit(t *testing.T) {
	router := setupTestRouter(GlobalRateLimit(RateLimitConfig{RequestsPerSecond: 2, Burst: 2}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "192.168.1." + string(rune('1'+i)) + ":1234"
		assert.Equal(t, http.StatusOK, serve(router, req).Code, "request %d", i+1)
	}

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "192.168.1.9:1234"
	assert.Equal(t, http.StatusTooManyRequests, serve(router, req).Code)
}

func TestDefaultConfigs(t *testing.T) {
	cors := DefaultCORSConfig()
	assert.Contains(t, cors.AllowOrigins, "*")
	assert.Contains(t, cors.AllowMethods, "PUT")
	assert.Contains(t, cors.AllowHeaders, ClientIDHeader)
	assert.Equal(t, 12*time.Hour, cors.MaxAge)

	limit := DefaultRateLimitConfig()
	assert.Equal(t, 100, limit.RequestsPerSecond)
	assert.Equal(t, 200, limit.Burst)
	assert.Equal(t, 5*time.Minute, limit.IdleTimeout)
}

func BenchmarkRateLimit(b *testing.B) {
	router := setupTestRouter(RateLimit(DefaultRateLimitConfig()))
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "192.168.1.1:1234"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}
}
