// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter with one bucket
// per caller (authenticated principal or client IP). Limits are process-local.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc selects the identity used to key a rate-limit bucket.
type KeyFunc func(*gin.Context) string

// KeyByPrincipalOrIP keys buckets by the principal set by APIKeyAuth,
// falling back to the client IP ("ip:203.0.113.7") for unauthenticated routes.
func KeyByPrincipalOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if p := Principal(c); p != "" {
			return p
		}
		return "ip:" + c.ClientIP()
	}
}

const (
	idleTTL    = 10 * time.Minute
	sweepEvery = time.Minute
)

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter is a per-key token-bucket limiter. Buckets idle for idleTTL
// are dropped by a sweep that runs at most once per sweepEvery, on the
// request path. Safe for concurrent use.
type RateLimiter struct {
	rps        rate.Limit
	burst      int
	key        KeyFunc
	retryAfter string
	now        func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter refills rps tokens per second up to burst (at least 1).
func NewRateLimiter(rps float64, burst int, key KeyFunc) *RateLimiter {
	retry := 60
	if rps > 0 {
		retry = max(1, int(math.Ceil(1/rps)))
	}
	return &RateLimiter{
		rps:        rate.Limit(rps),
		burst:      max(1, burst),
		key:        key,
		retryAfter: strconv.Itoa(retry),
		now:        time.Now,
		buckets:    make(map[string]*bucket),
	}
}

// allow spends one token from key's bucket.
func (rl *RateLimiter) allow(key string) bool {
	now := rl.now()

	rl.mu.Lock()
	if now.Sub(rl.lastSweep) >= sweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.seen) >= idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[key] = b
	}
	b.seen = now
	rl.mu.Unlock()

	return b.lim.AllowN(now, 1)
}

// Len reports the number of live buckets.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Handler rejects over-limit requests with 429, a Retry-After of one refill
// interval and the store's error envelope.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.allow(rl.key(c)) {
			c.Next()
			return
		}
		rateLimited.WithLabelValues(c.Request.Method, routePath(c)).Inc()
		c.Header("Retry-After", rl.retryAfter)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
