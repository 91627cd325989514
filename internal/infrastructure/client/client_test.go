package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, bool) {
	return string(s), s != ""
}

func newTestClient(t *testing.T, h http.HandlerFunc, tokens TokenSource, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, BasePath: "/api", Timeout: 5 * time.Second}, tokens, opts...)
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "localhost:8080"}, nil)
	assert.Error(t, err)

	c, err := New(Config{BaseURL: "http://localhost:8080", BasePath: "api/"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.BaseURL())
}

func TestClient_GetSendsHeadersAndToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "mouse", r.URL.Query().Get("name"))
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}, staticToken("tok-1"))

	resp, err := c.Get(context.Background(), "/products", map[string]string{"name": "mouse"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":1}]`, string(resp.Body))
}

func TestClient_NoTokenNoAuthorizationHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}, staticToken(""))

	_, err := c.Delete(context.Background(), "/products/1")
	require.NoError(t, err)
}

func TestClient_PostAndPutBodies(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Widget", body["name"])
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "/api/products", r.URL.Path)
			w.WriteHeader(http.StatusCreated)
		case http.MethodPut:
			assert.Equal(t, "/api/products/7", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":7}`))
	}, nil)

	resp, err := c.Post(context.Background(), "/products", map[string]any{"name": "Widget"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	_, err = c.Put(context.Background(), "products/7", map[string]any{"name": "Widget"})
	require.NoError(t, err)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantCode    string
		wantIs      error
	}{
		{"backend envelope", http.StatusBadRequest, `{"success":false,"error":{"code":"ERR_VALIDATION","message":"name is required"}}`, "name is required", "ERR_VALIDATION", nil},
		{"flat message", http.StatusConflict, `{"message":"duplicate sku"}`, "duplicate sku", "", nil},
		{"flat error string", http.StatusUnprocessableEntity, `{"error":"insufficient stock"}`, "insufficient stock", "", nil},
		{"no body", http.StatusInternalServerError, ``, "HTTP 500", "", nil},
		{"non-json body", http.StatusBadGateway, `<html>bad gateway</html>`, "HTTP 502", "", nil},
		{"unauthorized", http.StatusUnauthorized, `{"message":"token expired"}`, "token expired", "", ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ``, "HTTP 403", "", ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, nil)

			resp, err := c.Get(context.Background(), "/warehouses", nil)
			require.Error(t, err)
			assert.Nil(t, resp)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.Error())
			assert.Equal(t, tt.wantCode, apiErr.Code)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			} else {
				assert.NotErrorIs(t, err, ErrUnauthorized)
				assert.NotErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, BasePath: "/api"}, nil)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/orders", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClient_MetricsAndTracing(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/orders/9" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}, nil, WithMetrics(metrics), WithTracerProvider(tp))

	_, err = c.Get(context.Background(), "/orders", nil)
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "/orders/9", nil)
	require.Error(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.requests.WithLabelValues("GET", "orders", "200")))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.requests.WithLabelValues("GET", "orders", "404")))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "GET /api/orders", spans[0].Name())
	assert.Equal(t, "Error", spans[1].Status().Code.String())

	_, err = NewMetrics(reg)
	assert.Error(t, err, "duplicate registration")
}

func TestClient_PropagatesTraceContext(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var traceparent string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		_, _ = w.Write([]byte(`[]`))
	}, nil, WithTracerProvider(tp), WithPropagator(propagation.TraceContext{}))

	_, err := c.Get(context.Background(), "/products", nil)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, traceparent, spans[0].SpanContext().TraceID().String())
	assert.Contains(t, traceparent, spans[0].SpanContext().SpanID().String())
}

func TestResourceOf(t *testing.T) {
	assert.Equal(t, "products", resourceOf("/products"))
	assert.Equal(t, "products", resourceOf("/products/search"))
	assert.Equal(t, "stock-movements", resourceOf("stock-movements/3"))
	assert.Equal(t, "", resourceOf("/"))
}
