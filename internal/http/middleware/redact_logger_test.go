package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact(t *testing.T) {
	cases := map[string]string{
		"":                    "",
		"page=2&page_size=10": "page=2&page_size=10",
		"to=12025550101":      "to=[REDACTED:phone]",
		"+12025550101":        "[REDACTED:phone]",
		"phone 555-123-4567":  "phone [REDACTED:phone]",
		"a.b+tag@example.com": "[REDACTED:email]",
		"id=123e4567-e89b-12d3-a456-426614174000": "id=[REDACTED:id]",
	}
	for in, want := range cases {
		assert.Equal(t, want, redact(in), "redact(%q)", in)
	}
}

// lastLine decodes the final JSON log line in buf.
func lastLine(t *testing.T, out string) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &m), out)
	return m
}

func TestRedactingLogger_ScrubsQueryAndHeaders(t *testing.T) {
	buf := captureLogger(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header(requestIDHeader, "rid-resp") })
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{" X-Debug-Token ", ""}}))
	r.GET("/listeners/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := get(r, "/listeners/?page=1&to=12025550101", map[string]string{
		"Authorization":   "Bearer secret",
		"Cookie":          "sid=topsecret",
		HeaderAPIKey:      "shhh",
		"X-Debug-Token":   "dbg",
		"X-Forwarded-For": "client 555-123-4567",
		requestIDHeader:   "rid-req",
	})
	require.Equal(t, http.StatusOK, w.Code)

	out := buf.String()
	for _, secret := range []string{"shhh", "topsecret", "dbg", "12025550101", "555-123-4567"} {
		assert.NotContains(t, out, secret)
	}

	line := lastLine(t, out)
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "http_request", line["message"])
	assert.Equal(t, "rid-resp", line["request_id"], "response header wins")
	assert.Equal(t, "/listeners/", line["path"])
	assert.Equal(t, "page=1&to=[REDACTED:phone]", line["query"])

	headers, ok := line["headers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "[REDACTED]", headers["Authorization"])
	assert.Equal(t, "[REDACTED]", headers["Cookie"])
	assert.Equal(t, "[REDACTED]", headers["Api-Key"])
	assert.Equal(t, "[REDACTED]", headers["X-Debug-Token"])
	assert.Equal(t, "client [REDACTED:phone]", headers["X-Forwarded-For"])
}

func TestRedactingLogger_LevelsAndRequestIDFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/broken", func(c *gin.Context) {
		LoggerFrom(c).Debug().Msg("inside handler")
		c.Status(http.StatusBadGateway)
	})

	for path, level := range map[string]string{"/missing": "warn", "/broken": "error"} {
		buf := captureLogger(t)
		get(r, path, map[string]string{requestIDHeader: "rid" + path})
		line := lastLine(t, buf.String())
		assert.Equal(t, level, line["level"], path)
		assert.Equal(t, "rid"+path, line["request_id"], path)
	}
}

func TestRedactingLogger_ScopedLoggerCarriesRequestID(t *testing.T) {
	buf := captureLogger(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/quotes/random", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("picked quote")
		c.Status(http.StatusOK)
	})

	get(r, "/quotes/random", map[string]string{requestIDHeader: "rid-7"})
	first := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Contains(t, first, `"message":"picked quote"`)
	assert.Contains(t, first, `"request_id":"rid-7"`)
}
