// Package testutil provides an in-process ERP API for tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Request is one call the fake API received.
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	Body          map[string]any
	// TraceID is the trace the request continued, empty when the caller
	// sent no trace context.
	TraceID string
}

type failure struct {
	status int
	body   any
}

// FakeAPI serves generic CRUD for any resource under /api/:resource.
// Records keep their insertion order and ids are assigned by the server.
type FakeAPI struct {
	*httptest.Server

	mu          sync.Mutex
	collections map[string][]map[string]any
	nextID      map[string]int
	failures    map[string]failure
	requests    []Request
	token       string
	envelope    bool
}

// NewFakeAPI starts a fake API that is closed when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &FakeAPI{
		collections: map[string][]map[string]any{},
		nextID:      map[string]int{},
		failures:    map[string]failure{},
	}

	r := gin.New()
	r.Use(otelgin.Middleware("fake-erp", otelgin.WithPropagators(propagation.TraceContext{})))
	r.Use(f.record, f.authorize, f.inject)
	api := r.Group("/api")
	api.GET("/:resource", f.list)
	api.GET("/:resource/:id", f.get)
	api.POST("/:resource", f.create)
	api.PUT("/:resource/:id", f.update)
	api.DELETE("/:resource/:id", f.remove)

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// Seed appends records to resource. Records without an id get one.
func (f *FakeAPI) Seed(resource string, records ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range records {
		rec = normalize(rec)
		if _, ok := rec["id"]; !ok {
			rec["id"] = json.Number(strconv.Itoa(f.allocateLocked(resource)))
		} else if n, err := strconv.Atoi(stringOf(rec["id"])); err == nil && n >= f.nextID[resource] {
			f.nextID[resource] = n + 1
		}
		f.collections[resource] = append(f.collections[resource], rec)
	}
}

// RequireToken makes every request without "Bearer <token>" fail with 401.
func (f *FakeAPI) RequireToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

// UseEnvelope wraps responses as {"success":true,"data":...}.
func (f *FakeAPI) UseEnvelope(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envelope = on
}

// Fail makes every method request on resource answer status with body,
// until Recover is called. A nil body sends no content.
func (f *FakeAPI) Fail(method, resource string, status int, body any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+resource] = failure{status: status, body: body}
}

// Recover removes every injected failure.
func (f *FakeAPI) Recover() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = map[string]failure{}
}

// Records returns a copy of resource's current records.
func (f *FakeAPI) Records(resource string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(f.collections[resource]))
	copy(out, f.collections[resource])
	return out
}

// Requests returns every request received so far.
func (f *FakeAPI) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// Count returns how many requests matched method and path.
func (f *FakeAPI) Count(method, path string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (f *FakeAPI) record(c *gin.Context) {
	req := Request{
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		Query:         c.Request.URL.RawQuery,
		Authorization: c.GetHeader("Authorization"),
	}
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		req.TraceID = sc.TraceID().String()
	}
	if c.Request.Body != nil {
		raw, _ := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		if len(raw) > 0 {
			req.Body = decode(raw)
		}
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	c.Next()
}

func (f *FakeAPI) authorize(c *gin.Context) {
	f.mu.Lock()
	token := f.token
	f.mu.Unlock()
	if token != "" && c.GetHeader("Authorization") != "Bearer "+token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	c.Next()
}

func (f *FakeAPI) inject(c *gin.Context) {
	f.mu.Lock()
	fail, ok := f.failures[c.Request.Method+" "+c.Param("resource")]
	f.mu.Unlock()
	if !ok {
		c.Next()
		return
	}
	if fail.body == nil {
		c.AbortWithStatus(fail.status)
		return
	}
	c.AbortWithStatusJSON(fail.status, fail.body)
}

func (f *FakeAPI) list(c *gin.Context) {
	f.respond(c, http.StatusOK, f.Records(c.Param("resource")))
}

// get serves one record, or a name search for /:resource/search?name=.
func (f *FakeAPI) get(c *gin.Context) {
	resource, id := c.Param("resource"), c.Param("id")
	if id == "search" {
		needle := strings.ToLower(c.Query("name"))
		out := []map[string]any{}
		for _, rec := range f.Records(resource) {
			if strings.Contains(strings.ToLower(stringOf(rec["name"])), needle) {
				out = append(out, rec)
			}
		}
		f.respond(c, http.StatusOK, out)
		return
	}
	f.mu.Lock()
	_, rec := f.findLocked(resource, id)
	f.mu.Unlock()
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return
	}
	f.respond(c, http.StatusOK, rec)
}

func (f *FakeAPI) create(c *gin.Context) {
	body, ok := bindBody(c)
	if !ok {
		return
	}
	resource := c.Param("resource")

	f.mu.Lock()
	body["id"] = json.Number(strconv.Itoa(f.allocateLocked(resource)))
	f.collections[resource] = append(f.collections[resource], body)
	f.mu.Unlock()

	f.respond(c, http.StatusCreated, body)
}

func (f *FakeAPI) update(c *gin.Context) {
	body, ok := bindBody(c)
	if !ok {
		return
	}
	resource, id := c.Param("resource"), c.Param("id")

	f.mu.Lock()
	i, rec := f.findLocked(resource, id)
	if rec == nil {
		f.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return
	}
	merged := make(map[string]any, len(rec)+len(body))
	for k, v := range rec {
		merged[k] = v
	}
	for k, v := range body {
		merged[k] = v
	}
	merged["id"] = rec["id"]
	f.collections[resource][i] = merged
	f.mu.Unlock()

	f.respond(c, http.StatusOK, merged)
}

func (f *FakeAPI) remove(c *gin.Context) {
	resource, id := c.Param("resource"), c.Param("id")

	f.mu.Lock()
	i, rec := f.findLocked(resource, id)
	if rec != nil {
		recs := f.collections[resource]
		f.collections[resource] = append(recs[:i:i], recs[i+1:]...)
	}
	f.mu.Unlock()

	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (f *FakeAPI) respond(c *gin.Context, status int, data any) {
	f.mu.Lock()
	envelope := f.envelope
	f.mu.Unlock()
	if envelope {
		c.JSON(status, gin.H{"success": true, "data": data})
		return
	}
	c.JSON(status, data)
}

func (f *FakeAPI) findLocked(resource, id string) (int, map[string]any) {
	for i, rec := range f.collections[resource] {
		if stringOf(rec["id"]) == id {
			return i, rec
		}
	}
	return -1, nil
}

func (f *FakeAPI) allocateLocked(resource string) int {
	if f.nextID[resource] == 0 {
		f.nextID[resource] = 1
	}
	id := f.nextID[resource]
	f.nextID[resource]++
	return id
}

// IDs returns the ids of resource's records, sorted.
func (f *FakeAPI) IDs(resource string) []string {
	var ids []string
	for _, rec := range f.Records(resource) {
		ids = append(ids, stringOf(rec["id"]))
	}
	sort.Strings(ids)
	return ids
}

func bindBody(c *gin.Context) (map[string]any, bool) {
	raw, err := c.GetRawData()
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Request body is required"})
		return nil, false
	}
	body := decode(raw)
	if body == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON"})
		return nil, false
	}
	return body, true
}

func decode(raw []byte) map[string]any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil
	}
	return out
}

// normalize round-trips rec through JSON so seeded values look like
// decoded request bodies.
func normalize(rec map[string]any) map[string]any {
	raw, err := json.Marshal(rec)
	if err != nil {
		return rec
	}
	if out := decode(raw); out != nil {
		return out
	}
	return rec
}

func stringOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		raw, _ := json.Marshal(x)
		return string(raw)
	}
}
