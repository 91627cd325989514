// Package client talks to the ERP REST backend on behalf of the console.
// It attaches the session's bearer token, parses backend errors and records
// metrics and traces for every call. It never retries: every failure is
// terminal for the user action that triggered it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/erp/console/internal/infrastructure/logger"
)

const tracerName = "github.com/erp/console/internal/infrastructure/client"

// Config configures the client.
type Config struct {
	BaseURL   string            // e.g. http://localhost:8080
	BasePath  string            // e.g. /api
	Timeout   time.Duration     // zero means 30s
	Headers   map[string]string // sent with every request
	UserAgent string
}

// TokenSource supplies the bearer token, if a session exists.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics records request metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTracerProvider traces requests with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// WithPropagator sets how trace context is written into request headers.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *Client) { c.propagator = p }
}

// WithLogger sets the logger used for request logging.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client is an HTTP client for the ERP API.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	basePath   string
	headers    map[string]string
	tokens     TokenSource
	metrics    *Metrics
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	logger     *zap.Logger
}

// Request is one API call.
type Request struct {
	Method string
	Path   string // relative to the base path, e.g. /products
	Query  map[string]string
	Body   any
}

// Response is a successful (2xx) API response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// New creates a client. tokens may be nil for anonymous access.
func New(cfg Config, tokens TokenSource, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ERP-Console/1.0"
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		basePath:   "/" + strings.Trim(cfg.BasePath, "/"),
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
			"User-Agent":   cfg.UserAgent,
		},
		tokens:     tokens,
		tracer:     otel.Tracer(tracerName),
		propagator: otel.GetTextMapPropagator(),
		logger:     zap.NewNop(),
	}
	if c.basePath == "/" {
		c.basePath = ""
	}
	for k, v := range cfg.Headers {
		c.headers[k] = v
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Do executes req. Non-2xx responses return an *APIError; transport
// failures return an error wrapping ErrTransport.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	u, err := c.buildURL(req.Path, req.Query)
	if err != nil {
		return nil, fmt.Errorf("building URL: %w", err)
	}

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	resource := resourceOf(req.Path)
	ctx, span := c.tracer.Start(ctx, req.Method+" "+c.basePath+"/"+resource,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", u.Path),
		))
	defer span.End()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)
	if c.tokens != nil {
		if tok, ok := c.tokens.Token(ctx); ok {
			httpReq.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	c.propagator.Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	log := logger.L(logger.WithRequestID(logger.WithContext(ctx, c.logger), requestID)).
		With(zap.String("method", req.Method), zap.String("path", u.Path))

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.observe(req.Method, resource, 0, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		log.Warn("request failed", zap.Error(err), zap.Duration("duration", elapsed))
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, req.Method, u.Path, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		c.metrics.observe(req.Method, resource, 0, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "reading body")
		return nil, fmt.Errorf("%w: reading response body: %v", ErrTransport, err)
	}

	c.metrics.observe(req.Method, resource, httpResp.StatusCode, elapsed)
	span.SetAttributes(attribute.Int("http.response.status_code", httpResp.StatusCode))
	log.Debug("request completed", zap.Int("status", httpResp.StatusCode), zap.Duration("duration", elapsed))

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		apiErr := newAPIError(httpResp.StatusCode, raw)
		span.SetStatus(codes.Error, apiErr.Message)
		return nil, apiErr
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       raw,
		Duration:   elapsed,
	}, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query map[string]string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) buildURL(path string, query map[string]string) (*url.URL, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u, err := c.baseURL.Parse(strings.TrimRight(c.baseURL.Path, "/") + c.basePath + path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// resourceOf returns the first path segment, used as a low-cardinality label.
func resourceOf(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}
