// Package httpapi wires the HTTP transport (Gin) to the quote and listener
// services. It centralizes cross-cutting concerns such as tracing,
// correlation IDs, logging/redaction, panic recovery, compression, metrics,
// CORS, security headers, api-key authentication and rate limiting.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/quote-broadcaster/internal/config"
	"github.com/tbourn/quote-broadcaster/internal/http/handlers"
	"github.com/tbourn/quote-broadcaster/internal/http/middleware"
	"github.com/tbourn/quote-broadcaster/internal/services"
)

// listenersPath is the listing route; its responses carry phone numbers.
const listenersPath = "/listeners/"

// RegisterRoutes attaches all middleware and endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with phone numbers and api-key scrubbed
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. gzip
//  7. Metrics
//  8. CORS and security headers
//
// /health and /metrics are open. Everything under the API base path requires
// the api-key header and is rate limited per key.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	r.Use(middleware.Metrics())

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStorePaths: []string{joinPath(cfg.APIBasePath, listenersPath)},
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handlers.New(services.NewQuoteService(db), services.NewListenerService(db))
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByPrincipalOrIP())

	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(middleware.APIKeyAuth(cfg.Store.APIKey), rl.Handler())
	{
		api.GET("/quotes/random", h.RandomQuote)
		api.POST("/quotes/create", h.CreateQuote)

		api.GET(listenersPath, h.ListListeners)
		api.POST("/listeners/create", h.CreateListener)
	}
}

// RegisterOpsRoutes attaches the liveness and metrics endpoints used by the
// broadcaster's ops listener, with request ids, access logs and recovery.
func RegisterOpsRoutes(r *gin.Engine) {
	r.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery())
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// corsMiddleware allows any origin when none are configured; otherwise it
// echoes allowlisted origins. ACAO is set even without an Origin header in the
// allow-all case so simple health probes see it.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderAPIKey, "If-None-Match"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody caps request bodies at maxBytes; reads past the cap fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// joinPath returns the full route template for path under prefix.
func joinPath(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	return prefix + path
}
