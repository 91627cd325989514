package testutil

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/erp/console/internal/infrastructure/client"
)

func do(t *testing.T, method, url, body string, header map[string]string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

func TestFakeAPI_CRUD(t *testing.T) {
	f := NewFakeAPI(t)
	f.Seed("products", map[string]any{"id": 7, "name": "Laptop"})

	status, body := do(t, http.MethodPost, f.URL+"/api/products", `{"name":"Widget","price":19.99}`, nil)
	require.Equal(t, http.StatusCreated, status)
	assert.JSONEq(t, `{"id":8,"name":"Widget","price":19.99}`, body)

	status, _ = do(t, http.MethodPut, f.URL+"/api/products/8", `{"price":21.5}`, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = do(t, http.MethodGet, f.URL+"/api/products", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[{"id":7,"name":"Laptop"},{"id":8,"name":"Widget","price":21.5}]`, body)

	status, _ = do(t, http.MethodDelete, f.URL+"/api/products/7", "", nil)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, []string{"8"}, f.IDs("products"))

	status, _ = do(t, http.MethodDelete, f.URL+"/api/products/7", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	assert.Equal(t, 2, f.Count(http.MethodDelete, "/api/products/7"))
	assert.Equal(t, float64(19.99), mustFloat(t, f.Requests()[0].Body["price"]))
}

func TestFakeAPI_Search(t *testing.T) {
	f := NewFakeAPI(t)
	f.Seed("categories", map[string]any{"name": "Tools"}, map[string]any{"name": "Toys"}, map[string]any{"name": "Food"})

	status, body := do(t, http.MethodGet, f.URL+"/api/categories/search?name=to", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[{"id":1,"name":"Tools"},{"id":2,"name":"Toys"}]`, body)
}

func TestFakeAPI_TokenAndFailures(t *testing.T) {
	f := NewFakeAPI(t)
	f.RequireToken("secret")

	status, _ := do(t, http.MethodGet, f.URL+"/api/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	auth := map[string]string{"Authorization": "Bearer secret"}
	f.Fail(http.MethodGet, "users", http.StatusForbidden, map[string]any{"message": "admins only"})
	status, body := do(t, http.MethodGet, f.URL+"/api/users", "", auth)
	assert.Equal(t, http.StatusForbidden, status)
	assert.JSONEq(t, `{"message":"admins only"}`, body)

	f.Recover()
	f.UseEnvelope(true)
	status, body = do(t, http.MethodGet, f.URL+"/api/users", "", auth)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"success":true,"data":[]}`, body)
}

func mustFloat(t *testing.T, v any) float64 {
	t.Helper()
	n, ok := v.(interface{ Float64() (float64, error) })
	require.True(t, ok, "expected json.Number, got %T", v)
	f, err := n.Float64()
	require.NoError(t, err)
	return f
}

func TestFakeAPI_ContinuesClientTrace(t *testing.T) {
	f := NewFakeAPI(t)
	f.Seed("orders", map[string]any{"orderNumber": "SO-1"})

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	c, err := client.New(client.Config{BaseURL: f.URL, BasePath: "/api"}, nil,
		client.WithTracerProvider(tp), client.WithPropagator(propagation.TraceContext{}))
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "/orders", nil)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	reqs := f.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), reqs[0].TraceID)

	do(t, http.MethodGet, f.URL+"/api/orders", "", nil)
	assert.Empty(t, f.Requests()[1].TraceID, "no trace context sent")
}
