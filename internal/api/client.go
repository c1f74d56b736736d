package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// TokenProvider 返回当前会话的 bearer token；空串表示未登录
type TokenProvider func() string

// Client issues typed HTTP requests against the backend API.
type Client struct {
	base     string
	http     *http.Client
	limiter  *rate.Limiter
	tracer   trace.Tracer
	token    TokenProvider
	validate *validator.Validate
}

type Option func(*Client)

// WithToken installs the bearer token source.
func WithToken(tp TokenProvider) Option {
	return func(c *Client) { c.token = tp }
}

// WithTimeout overrides the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
		}
	}
}

// WithHTTPClient substitutes the transport, mainly for httptest servers.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:     strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(20), 21),
		tracer:   otel.Tracer("reveal-client/api"),
		token:    func() string { return "" },
		validate: validator.New(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// do performs one JSON round trip. body may be nil; out may be nil for void
// responses. Non-2xx responses become typed *Error values.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, span := c.tracer.Start(ctx, method+" "+path,
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		))
	defer span.End()

	var reader *bytes.Reader
	if body != nil {
		if err := c.validate.Struct(body); err != nil {
			if _, ok := err.(*validator.InvalidValidationError); !ok {
				span.SetStatus(codes.Error, "validation")
				return fmt.Errorf("validate request: %w", err)
			}
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		span.SetStatus(codes.Error, resp.Status)
		return normalizeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// pageQuery builds the standard 1-indexed pagination query string.
func pageQuery(page, limit int) string {
	v := url.Values{}
	v.Set("page", fmt.Sprint(page))
	v.Set("limit", fmt.Sprint(limit))
	return "?" + v.Encode()
}
