package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyByPrincipalOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "203.0.113.9:12345"

	assert.Equal(t, "ip:203.0.113.9", KeyByPrincipalOrIP()(c))
	c.Set(ctxKeyPrincipal, "key:0123456789ab")
	assert.Equal(t, "key:0123456789ab", KeyByPrincipalOrIP()(c))
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	cases := []struct {
		rps   float64
		burst int
		retry string
	}{
		{10, 0, "1"},
		{0.5, 3, "2"},
		{0.1, 1, "10"},
		{0, 1, "60"},
	}
	for _, tc := range cases {
		rl := NewRateLimiter(tc.rps, tc.burst, KeyByPrincipalOrIP())
		assert.GreaterOrEqual(t, rl.burst, 1)
		assert.Equal(t, tc.retry, rl.retryAfter, "rps=%v", tc.rps)
	}
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(1, 1, KeyByPrincipalOrIP())
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("b"))
	assert.False(t, rl.allow("a"), "bucket reused within the same instant")
	require.Equal(t, 2, rl.Len())

	clock = clock.Add(idleTTL / 2)
	rl.allow("b")

	clock = clock.Add(idleTTL/2 + sweepEvery)
	rl.allow("c")
	assert.Equal(t, 2, rl.Len(), "idle 'a' dropped, 'b' and 'c' kept")
}

func TestRateLimiter_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(1, 1, KeyByPrincipalOrIP())
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header(requestIDHeader, "rid-1") })
	r.Use(rl.Handler())
	r.GET("/quotes/random", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(rateLimited.WithLabelValues(http.MethodGet, "/quotes/random"))

	from := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/quotes/random", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusOK, from("192.0.2.1:1000").Code)
	w := from("192.0.2.1:1001")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{
		"request_id": "rid-1",
		"code":       "too_many_requests",
		"message":    "rate limit exceeded",
	}, body)
	assert.Equal(t, before+1, testutil.ToFloat64(rateLimited.WithLabelValues(http.MethodGet, "/quotes/random")))

	assert.Equal(t, http.StatusOK, from("198.51.100.7:4000").Code, "separate bucket per client")
}
