package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevLog, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLog
		zerolog.SetGlobalLevel(prevLevel)
	})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = zerolog.New(&buf)
	return &buf
}

// opsRouter mirrors the broadcaster's ops listener stack.
func opsRouter(quiet ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logger(quiet...), Recovery())
	return r
}

func get(r http.Handler, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := opsRouter()
	r.GET("/health", func(c *gin.Context) {
		if v, _ := c.Get(requestIDKey); v == "" {
			t.Errorf("request id missing from context")
		}
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name    string
		inbound string
		reuse   bool
	}{
		{"generated", "", false},
		{"propagated", "abc-123", true},
		{"too long", strings.Repeat("a", maxRequestIDLength+1), false},
		{"control chars", "abc\x01def", false},
		{"spaces", "abc def", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hdr := map[string]string{}
			if tc.inbound != "" {
				hdr[strings.ToLower(requestIDHeader)] = tc.inbound
			}
			got := get(r, "/health", hdr).Header().Get(requestIDHeader)
			if got == "" {
				t.Fatalf("no %s on response", requestIDHeader)
			}
			if (got == tc.inbound) != tc.reuse {
				t.Fatalf("inbound %q -> %q; reuse=%v", tc.inbound, got, tc.reuse)
			}
		})
	}
}

func TestLogger_LevelsByOutcome(t *testing.T) {
	buf := captureLogger(t)
	r := opsRouter("/health")
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errSentinel{})
		c.Status(http.StatusBadRequest)
	})

	want := map[string]string{
		"/health":  "debug",
		"/metrics": "info",
		"/missing": "warn",
		"/fail":    "error",
	}
	for path := range want {
		get(r, path, nil)
	}

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		path, _ := entry["path"].(string)
		if lvl := entry["level"]; lvl != want[path] {
			t.Errorf("path %s logged at %v; want %s", path, lvl, want[path])
		}
		if entry["request_id"] == "" {
			t.Errorf("path %s missing request_id", path)
		}
		delete(want, path)
	}
	if len(want) != 0 {
		t.Fatalf("no access log for %v", want)
	}
}

type errSentinel struct{}

func (errSentinel) Error() string { return "boom" }

func TestLogger_IncludesPrincipalAfterAuth(t *testing.T) {
	buf := captureLogger(t)
	r := opsRouter()
	r.Use(APIKeyAuth("k"))
	r.GET("/quotes/random", func(c *gin.Context) { c.Status(http.StatusOK) })

	get(r, "/quotes/random", map[string]string{HeaderAPIKey: "k"})

	out := buf.String()
	if !strings.Contains(out, `"principal":"key:`) {
		t.Fatalf("expected principal in access log, got:\n%s", out)
	}
	if strings.Contains(out, `"k"`) {
		t.Fatalf("api key leaked into access log:\n%s", out)
	}
}

func TestRecovery_Envelope(t *testing.T) {
	buf := captureLogger(t)
	before := testutil.ToFloat64(panicsTotal)

	r := opsRouter()
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })
	w := get(r, "/panic", map[string]string{requestIDHeader: "rid-1"})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
	if body["code"] != "internal_error" || body["request_id"] != "rid-1" {
		t.Fatalf("unexpected body: %v", body)
	}
	if !strings.Contains(buf.String(), `"message":"panic recovered"`) || !strings.Contains(buf.String(), `"request_id":"rid-1"`) {
		t.Fatalf("expected request-scoped panic log, got:\n%s", buf.String())
	}
	if got := testutil.ToFloat64(panicsTotal); got != before+1 {
		t.Fatalf("panics counter = %v; want %v", got, before+1)
	}
}

func TestRecovery_AfterWriteKeepsBody(t *testing.T) {
	captureLogger(t)
	r := opsRouter()
	r.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("late")
	})

	w := get(r, "/late", nil)
	if strings.Contains(w.Body.String(), "internal_error") {
		t.Fatalf("envelope must not be appended after a write: %q", w.Body.String())
	}
}

func TestLoggerFrom_Fallback(t *testing.T) {
	buf := captureLogger(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("custom")
		c.Status(http.StatusOK)
	})
	get(r, "/x", nil)

	if !strings.Contains(buf.String(), `"message":"custom"`) || strings.Contains(buf.String(), "request_id") {
		t.Fatalf("fallback logger should be the bare global logger, got:\n%s", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"abcdefgh", 5, "abcde…"},
		{"abc", 0, "abc"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q; want %q", tc.in, tc.max, got, tc.want)
		}
	}
	if asString(123) != "" {
		t.Errorf("asString(non-string) should be empty")
	}
}
