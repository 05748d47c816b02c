// Package client implements the broadcaster's view of the quote store: an
// HTTP client for the store API, a pull-based cursor over the paginated
// listener collection, and lazy sequences pairing one quote with every
// listener.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/quote-broadcaster/internal/domain"
	"github.com/tbourn/quote-broadcaster/internal/observability"
)

// HeaderAPIKey carries the store credential on every request.
const HeaderAPIKey = "api-key"

const (
	DefaultPageSize = 10
	DefaultTimeout  = 2 * time.Second

	maxPageSize  = 100
	maxErrorBody = 4 << 10
)

// Client talks to the quote store over HTTP.
type Client struct {
	baseURL  string
	apiKey   string
	pageSize int
	timeout  time.Duration
	hc       *http.Client
	logger   zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithPageSize sets the listener page size. Values outside [1,100] are ignored.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n >= 1 && n <= maxPageSize {
			c.pageSize = n
		}
	}
}

// WithTimeout bounds each store request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for per-request debug lines.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a Client for the store at baseURL.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		pageSize: DefaultPageSize,
		timeout:  DefaultTimeout,
		hc:       &http.Client{},
		logger:   log.Logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// PageSize returns the page size used by StreamListeners.
func (c *Client) PageSize() int { return c.pageSize }

// FetchQuote requests one random quote. An empty store yields ErrNoContent.
func (c *Client) FetchQuote(ctx context.Context) (*domain.Quote, error) {
	var q domain.Quote
	if err := c.getJSON(ctx, "/quotes/random", nil, &q); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %w", ErrNoContent, err)
		}
		return nil, err
	}
	return &q, nil
}

// ListPage requests one page of listeners.
func (c *Client) ListPage(ctx context.Context, page, pageSize int) (*domain.PageResult, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	var res domain.PageResult
	if err := c.getJSON(ctx, "/listeners/", q, &res); err != nil {
		return nil, err
	}
	c.logger.Debug().
		Int("page", res.Page).
		Int("total_pages", res.TotalPages).
		Int("results", len(res.Results)).
		Msg("listener page fetched")
	return &res, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := otel.Tracer("client/Store").Start(ctx, "GET "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(HeaderAPIKey, c.apiKey)
	}
	observability.InjectHeaders(ctx, req.Header)

	resp, err := c.hc.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		se := statusError(http.MethodGet, path, resp)
		span.SetStatus(codes.Error, se.Error())
		return se
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.RecordError(err)
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// statusError reads the store's {request_id, code, message} envelope when
// present and falls back to the raw body.
func statusError(method, path string, resp *http.Response) *StatusError {
	se := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var env struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &env) == nil && (env.Code != "" || env.Message != "") {
		se.Code, se.Message = env.Code, env.Message
		return se
	}
	se.Message = strings.TrimSpace(string(body))
	return se
}
