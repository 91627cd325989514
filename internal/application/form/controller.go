// Package form holds the create/edit half of an admin screen. Input is
// validated locally before any request is sent, and derived fields are
// recomputed on every change without a server trip.
package form

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/console/internal/application/guard"
	"github.com/erp/console/internal/application/notify"
	"github.com/erp/console/internal/domain/entity"
	"github.com/erp/console/internal/domain/filter"
	"github.com/erp/console/internal/infrastructure/client"
	"github.com/erp/console/internal/infrastructure/logger"
)

var (
	// ErrNotOpen is returned when the form is used while closed or submitting.
	ErrNotOpen = errors.New("form is not open")
	// ErrUnknownField is returned for a field the screen does not have.
	ErrUnknownField = errors.New("unknown field")
	// ErrDerivedField is returned when setting a computed field.
	ErrDerivedField = errors.New("field is computed")
	// ErrNoID is returned when editing a record without an id.
	ErrNoID = errors.New("record has no id")
)

// State is the form's lifecycle state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateSubmitting
	StateOpenWithError
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateSubmitting:
		return "submitting"
	case StateOpenWithError:
		return "open-with-error"
	default:
		return "closed"
	}
}

// Mode tells whether the form creates or edits a record.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

// Submitter sends mutations to the backend.
type Submitter interface {
	Post(ctx context.Context, path string, body any) (*client.Response, error)
	Put(ctx context.Context, path string, body any) (*client.Response, error)
}

// Lister is the list the form refreshes after a successful submit.
type Lister interface {
	Load(ctx context.Context) error
	Append(rec entity.Record)
}

// Controller is one screen's create/edit form.
type Controller struct {
	schema    *entity.Schema
	api       Submitter
	list      Lister
	guard     *guard.Guard
	notifier  notify.Presenter
	validator *validator.Validate

	mu        sync.Mutex
	state     State
	mode      Mode
	editingID string
	values    map[string]string
	touched   map[string]bool
	lastErr   error
}

// New creates a form controller for schema.
func New(schema *entity.Schema, api Submitter, list Lister, g *guard.Guard, notifier notify.Presenter) *Controller {
	return &Controller{
		schema:    schema,
		api:       api,
		list:      list,
		guard:     g,
		notifier:  notifier,
		validator: newValidator(),
		values:    map[string]string{},
		touched:   map[string]bool{},
	}
}

// Open resets the form. A nil record opens it blank for create, with
// field defaults; otherwise the record's values are loaded for edit.
func (c *Controller) Open(rec entity.Record) error {
	values := make(map[string]string, len(c.schema.Fields))
	mode, id := ModeCreate, ""

	if rec == nil {
		for _, f := range c.schema.Fields {
			values[f.Name] = f.Default
		}
	} else {
		id = rec.ID()
		if id == "" {
			return ErrNoID
		}
		mode = ModeEdit
		for _, f := range c.schema.Fields {
			values[f.Name] = editValue(f, rec[f.Name])
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateOpen
	c.mode = mode
	c.editingID = id
	c.values = values
	c.touched = map[string]bool{}
	c.lastErr = nil
	c.recomputeLocked()
	return nil
}

func editValue(f entity.Field, v any) string {
	switch f.Kind {
	case entity.KindSecret:
		return ""
	case entity.KindReference:
		if m, ok := v.(map[string]any); ok {
			return entity.FormatValue(m["id"])
		}
	case entity.KindDate:
		if day, ok := filter.ParseDay(entity.FormatValue(v)); ok {
			return day.Format(filter.DateLayout)
		}
	}
	return entity.FormatValue(v)
}

// Set changes one input and recomputes derived fields.
func (c *Controller) Set(field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(field, value)
}

func (c *Controller) setLocked(field, value string) error {
	if c.state != StateOpen && c.state != StateOpenWithError {
		return ErrNotOpen
	}
	if _, ok := c.schema.Field(field); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if c.schema.IsDerived(field) {
		return fmt.Errorf("%w: %s", ErrDerivedField, field)
	}
	c.values[field] = value
	c.touched[field] = true
	c.recomputeLocked()
	return nil
}

// recomputeLocked fills every derived field with the product of its
// factors, or blanks it while any factor is missing or not a number.
func (c *Controller) recomputeLocked() {
	for _, d := range c.schema.Derived {
		product := decimal.NewFromInt(1)
		ok := true
		for _, name := range d.Factors {
			f, err := decimal.NewFromString(strings.TrimSpace(c.values[name]))
			if err != nil {
				ok = false
				break
			}
			product = product.Mul(f)
		}
		if ok {
			c.values[d.Target] = product.String()
		} else {
			c.values[d.Target] = ""
		}
	}
}

// Submit applies values, validates the form and sends it. Validation
// failures return ValidationErrors without a request. A server failure
// keeps the form open with the error; success closes it, updates the list
// optimistically and reloads it.
func (c *Controller) Submit(ctx context.Context, values map[string]string) error {
	c.mu.Lock()
	for name, v := range values {
		if c.schema.IsDerived(name) {
			continue
		}
		if err := c.setLocked(name, v); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	if c.state != StateOpen && c.state != StateOpenWithError {
		c.mu.Unlock()
		return ErrNotOpen
	}
	if errs := c.validate(c.values); len(errs) > 0 {
		c.mu.Unlock()
		return errs
	}
	body := c.bodyLocked()
	mode, id := c.mode, c.editingID
	c.state = StateSubmitting
	c.mu.Unlock()

	var (
		resp   *client.Response
		err    error
		action string
	)
	if mode == ModeEdit {
		action = "update " + c.schema.Name
		resp, err = c.api.Put(ctx, c.schema.ItemPath(id), body)
	} else {
		action = "create " + c.schema.Name
		resp, err = c.api.Post(ctx, c.schema.Path(), body)
	}
	if err != nil {
		c.mu.Lock()
		c.state = StateOpenWithError
		c.lastErr = err
		c.mu.Unlock()
		return c.guard.Fail(ctx, action, err)
	}

	saved, decodeErr := entity.DecodeRecord(resp.Body)
	if decodeErr != nil {
		logger.L(ctx).Warn("unreadable response to submit", zap.String("resource", c.schema.Name), zap.Error(decodeErr))
	}
	if saved.ID() == "" && mode == ModeEdit {
		saved = recordOf(body)
		saved["id"] = id
	}
	if saved.ID() != "" {
		c.list.Append(saved)
	}

	c.Close()
	if mode == ModeEdit {
		c.notifier.Success(c.noun() + " updated successfully")
	} else {
		c.notifier.Success(c.noun() + " created successfully")
	}

	if err := c.list.Load(ctx); err != nil {
		logger.L(ctx).Debug("reload after submit failed", zap.String("resource", c.schema.Name), zap.Error(err))
	}
	return nil
}

// bodyLocked converts the form's strings into the typed JSON body.
// Empty optional inputs are left out, and so are optional defaults on
// create that were never changed: the server applies its own.
func (c *Controller) bodyLocked() map[string]any {
	body := make(map[string]any, len(c.values))
	for _, f := range c.schema.Fields {
		raw := strings.TrimSpace(c.values[f.Name])
		if raw == "" {
			continue
		}
		if c.mode == ModeCreate && !f.Required && !c.touched[f.Name] && raw == f.Default {
			continue
		}
		body[f.Name] = typed(f.Kind, raw)
	}
	return body
}

func typed(kind entity.FieldKind, raw string) any {
	switch kind {
	case entity.KindDecimal:
		if d, err := decimal.NewFromString(raw); err == nil {
			return json.Number(d.String())
		}
	case entity.KindInteger, entity.KindReference:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return json.Number(strconv.FormatInt(n, 10))
		}
	case entity.KindBool:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}

func recordOf(body map[string]any) entity.Record {
	rec := make(entity.Record, len(body)+1)
	for k, v := range body {
		rec[k] = v
	}
	return rec
}

func (c *Controller) noun() string {
	if c.schema.Singular != "" {
		return c.schema.Singular
	}
	return c.schema.Title
}

// Close discards the form's input.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateClosed
	c.editingID = ""
	c.values = map[string]string{}
	c.touched = map[string]bool{}
	c.lastErr = nil
}

// State returns the form state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mode returns whether the open form creates or edits.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// EditingID returns the id of the record being edited.
func (c *Controller) EditingID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editingID
}

// Values returns a copy of the current inputs, derived fields included.
func (c *Controller) Values() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Err returns the server error that left the form open, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
