package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h gin.HandlerFunc, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", h)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestFail_ServerErrorIsLoggedWithEnvelope(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	w := serve(t, func(c *gin.Context) {
		c.Set("logger", &logger)
		c.Writer.Header().Set("X-Request-ID", "rid-9")
		fail(c, http.StatusServiceUnavailable, ErrCodeInternal, "store down")
	}, nil)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, ErrorResponse{RequestID: "rid-9", Code: ErrCodeInternal, Message: "store down"}, body)

	line := buf.String()
	assert.Contains(t, line, `"level":"error"`)
	assert.Contains(t, line, `"status":503`)
	assert.Contains(t, line, `"message":"store down"`)
}

func TestFail_ClientErrorIsNotLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	w := serve(t, func(c *gin.Context) {
		c.Set("logger", &logger)
		Fail(c, http.StatusNotFound, ErrCodeNotFound, "nope")
	}, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"`+ErrCodeNotFound+`"`)
	assert.NotContains(t, w.Body.String(), "request_id")
	assert.Zero(t, buf.Len())
}

func TestOK_WritesJSON(t *testing.T) {
	w := serve(t, func(c *gin.Context) { ok(c, http.StatusCreated, gin.H{"n": 1}) }, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"n":1}`, w.Body.String())
}

func TestNotModified(t *testing.T) {
	const etag = `W/"listeners:3:7:1:10"`
	cases := []struct {
		name string
		inm  string
		want bool
	}{
		{"absent", "", false},
		{"exact", etag, true},
		{"strong form", `"listeners:3:7:1:10"`, true},
		{"in list", `"a", ` + etag + `, "b"`, true},
		{"wildcard", "*", true},
		{"other", `W/"listeners:4:8:1:10"`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var hit bool
			hdr := map[string]string{}
			if tc.inm != "" {
				hdr["If-None-Match"] = tc.inm
			}
			w := serve(t, func(c *gin.Context) {
				if hit = notModified(c, etag); hit {
					return
				}
				c.String(http.StatusOK, "fresh")
			}, hdr)

			assert.Equal(t, tc.want, hit)
			assert.Equal(t, etag, w.Header().Get("ETag"))
			if tc.want {
				assert.Equal(t, http.StatusNotModified, w.Code)
				assert.Zero(t, w.Body.Len())
			} else {
				assert.Equal(t, http.StatusOK, w.Code)
				assert.True(t, strings.HasPrefix(w.Body.String(), "fresh"))
			}
		})
	}
}
