// Package listing holds the list half of an admin screen: it loads a
// resource collection, filters and paginates it locally, and renders it
// with the actions the current role may take.
package listing

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/erp/console/internal/application/guard"
	"github.com/erp/console/internal/domain/capability"
	"github.com/erp/console/internal/domain/entity"
	"github.com/erp/console/internal/domain/filter"
	"github.com/erp/console/internal/infrastructure/client"
	"github.com/erp/console/internal/infrastructure/logger"
)

// State is the list's load state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateLoadError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateLoadError:
		return "load-error"
	default:
		return "idle"
	}
}

// Fetcher reads collections from the backend.
type Fetcher interface {
	Get(ctx context.Context, path string, query map[string]string) (*client.Response, error)
}

// Option customises a Controller.
type Option func(*Controller)

// WithPageSize overrides filter.DefaultPageSize.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithFallback overrides the schema's fallback policy.
func WithFallback(p entity.FallbackPolicy) Option {
	return func(c *Controller) { c.fallback = p }
}

// Controller owns one screen's working set.
type Controller struct {
	schema   *entity.Schema
	api      Fetcher
	guard    *guard.Guard
	policy   *capability.Policy
	fields   filter.Fields
	pageSize int
	fallback entity.FallbackPolicy

	mu       sync.Mutex
	seq      uint64 // last load issued
	state    State
	lastErr  error
	working  entity.WorkingSet
	criteria filter.Criteria
	view     entity.WorkingSet
	page     int
	searched bool // working set holds server search results
}

// New creates a list controller for schema.
func New(schema *entity.Schema, api Fetcher, g *guard.Guard, policy *capability.Policy, opts ...Option) *Controller {
	c := &Controller{
		schema:   schema,
		api:      api,
		guard:    g,
		policy:   policy,
		fields:   filter.FieldsOf(schema),
		pageSize: filter.DefaultPageSize,
		fallback: schema.Fallback,
		working:  entity.WorkingSet{},
		view:     entity.WorkingSet{},
		page:     1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Schema returns the screen schema.
func (c *Controller) Schema() *entity.Schema { return c.schema }

// Load replaces the working set with the server's collection. Only the
// latest Load may change state: a response to an older request is
// discarded when it arrives.
func (c *Controller) Load(ctx context.Context) error {
	seq := c.begin()
	ws, err := c.fetch(ctx, c.schema.Path(), nil)
	return c.finish(ctx, seq, ws, err, "load "+c.schema.Name)
}

// Search narrows the list by name. Screens with a server search endpoint
// query it; on failure, or without one, the filter is applied locally.
// Clearing the text after a server search reloads the full collection.
func (c *Controller) Search(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	criteria := c.Criteria()
	criteria.SearchText = text

	c.mu.Lock()
	searched := c.searched
	c.mu.Unlock()

	if c.schema.Search == nil {
		c.ApplyFilter(criteria)
		return nil
	}
	if text == "" {
		c.ApplyFilter(criteria)
		if searched {
			return c.Load(ctx)
		}
		return nil
	}

	seq := c.begin()
	ws, err := c.fetch(ctx, c.schema.Search.Path, map[string]string{c.schema.Search.Param: text})
	if err != nil && !errors.Is(err, client.ErrUnauthorized) && !errors.Is(err, client.ErrForbidden) {
		logger.L(ctx).Warn("server search failed, filtering locally",
			zap.String("resource", c.schema.Name), zap.Error(err))
		if searched {
			// The working set holds earlier search results; filter the
			// full collection instead.
			c.mu.Lock()
			c.criteria = criteria
			c.page = 1
			c.mu.Unlock()
			return c.Load(ctx)
		}
		c.mu.Lock()
		if seq == c.seq {
			c.state = StateLoaded
		}
		c.mu.Unlock()
		c.ApplyFilter(criteria)
		return nil
	}

	c.mu.Lock()
	c.criteria = criteria
	c.page = 1
	c.mu.Unlock()
	if err := c.finish(ctx, seq, ws, err, "search "+c.schema.Name); err != nil {
		return err
	}
	c.mu.Lock()
	if seq == c.seq {
		c.searched = true
	}
	c.mu.Unlock()
	return nil
}

func (c *Controller) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.state = StateLoading
	return c.seq
}

func (c *Controller) fetch(ctx context.Context, path string, query map[string]string) (entity.WorkingSet, error) {
	resp, err := c.api.Get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	return entity.DecodeCollection(resp.Body)
}

func (c *Controller) finish(ctx context.Context, seq uint64, ws entity.WorkingSet, err error, action string) error {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		logger.L(ctx).Debug("discarding stale response",
			zap.String("resource", c.schema.Name), zap.Uint64("seq", seq))
		// A 401 invalidates the session whichever request saw it.
		if errors.Is(err, client.ErrUnauthorized) {
			return c.guard.Fail(ctx, action, err)
		}
		return nil
	}
	if err == nil {
		c.state = StateLoaded
		c.lastErr = nil
		c.working = ws
		c.searched = false
		c.refilterLocked()
		c.mu.Unlock()
		return nil
	}

	c.state = StateLoadError
	c.lastErr = err
	if c.fallback == entity.FallbackSample && len(c.schema.Samples) > 0 {
		c.working = cloneAll(c.schema.Samples)
		c.searched = false
		c.refilterLocked()
	}
	c.mu.Unlock()

	return c.guard.Fail(ctx, action, err)
}

// ApplyFilter sets the criteria and returns to page 1. It never touches
// the server.
func (c *Controller) ApplyFilter(criteria filter.Criteria) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.criteria = criteria
	c.page = 1
	c.refilterLocked()
}

func (c *Controller) refilterLocked() {
	c.view = filter.Apply(c.working, c.criteria, c.fields)
	c.page = filter.Paginate(len(c.view), c.page, c.pageSize).Number
}

// SetPage moves to page n, clamped to the available pages.
func (c *Controller) SetPage(n int) filter.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := filter.Paginate(len(c.view), n, c.pageSize)
	c.page = p.Number
	return p
}

// Page describes the current page.
func (c *Controller) Page() filter.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return filter.Paginate(len(c.view), c.page, c.pageSize)
}

// Append adds or replaces rec after a successful create or update.
func (c *Controller) Append(rec entity.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.working = c.working.With(rec)
	c.refilterLocked()
}

// Remove drops the record with id after a successful delete.
func (c *Controller) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.working = c.working.Without(id)
	c.refilterLocked()
}

// State returns the load state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error of the last completed load, if it failed.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Criteria returns the active filter criteria.
func (c *Controller) Criteria() filter.Criteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.criteria
}

// Working returns a copy of the working set.
func (c *Controller) Working() entity.WorkingSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(entity.WorkingSet{}, c.working...)
}

// Filtered returns the whole filtered view.
func (c *Controller) Filtered() entity.WorkingSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(entity.WorkingSet{}, c.view...)
}

// Find returns the working-set record with id.
func (c *Controller) Find(id string) (entity.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range c.working {
		if rec.ID() == id {
			return rec.Clone(), true
		}
	}
	return nil, false
}

// Render builds the current page for role. Capabilities are resolved once.
func (c *Controller) Render(role string) Table {
	caps := c.policy.For(role, c.schema.Name)

	c.mu.Lock()
	defer c.mu.Unlock()
	p := filter.Paginate(len(c.view), c.page, c.pageSize)
	return buildTable(c.schema, c.state, c.view[p.Start:p.End], p, caps)
}

func cloneAll(ws entity.WorkingSet) entity.WorkingSet {
	out := make(entity.WorkingSet, 0, len(ws))
	for _, rec := range ws {
		out = append(out, rec.Clone())
	}
	return out
}
