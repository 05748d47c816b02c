package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RouteLabels_InflightAndSize(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/listeners/", func(c *gin.Context) { c.String(http.StatusOK, "page") })
	r.POST("/listeners/create", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	baseList := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/listeners/", "200"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/nope", "404"))
	baseNoBody := testutil.ToFloat64(httpReqs.WithLabelValues("POST", "/listeners/create", "204"))

	for _, tc := range []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/listeners/?page=2", http.StatusOK},
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodPost, "/listeners/create", http.StatusNoContent},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != tc.want {
			t.Fatalf("%s %s -> %d; want %d", tc.method, tc.path, w.Code, tc.want)
		}
	}

	// Query strings never leak into the path label.
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/listeners/", "200")); got != baseList+1 {
		t.Fatalf("listeners counter = %v; want %v", got, baseList+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/nope", "404")); got != base404+1 {
		t.Fatalf("404 fallback counter = %v; want %v", got, base404+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("POST", "/listeners/create", "204")); got != baseNoBody+1 {
		t.Fatalf("no-body counter = %v; want %v", got, baseNoBody+1)
	}
	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}
}
