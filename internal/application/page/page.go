// Package page composes one admin screen: a list, a form and the direct
// delete action, all bound to the current session. A Page is built when a
// screen opens and discarded when the user leaves it.
package page

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/console/internal/application/form"
	"github.com/erp/console/internal/application/guard"
	"github.com/erp/console/internal/application/listing"
	"github.com/erp/console/internal/application/notify"
	"github.com/erp/console/internal/domain/capability"
	"github.com/erp/console/internal/domain/entity"
	"github.com/erp/console/internal/domain/session"
	"github.com/erp/console/internal/infrastructure/client"
	"github.com/erp/console/internal/infrastructure/logger"
)

var (
	// ErrNotPermitted is returned when the role lacks the capability.
	ErrNotPermitted = errors.New("action not permitted")
	// ErrCancelled is returned when the user declines a confirmation.
	ErrCancelled = errors.New("cancelled by user")
	// ErrNotFound is returned for an id missing from the working set.
	ErrNotFound = errors.New("record not found")
)

// Confirmer asks the user a blocking yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// API is everything a screen sends to the backend.
type API interface {
	listing.Fetcher
	form.Submitter
	Delete(ctx context.Context, path string) (*client.Response, error)
}

// Deps are the collaborators a Page is composed from.
type Deps struct {
	Session     *session.Context
	Policy      *capability.Policy
	API         API
	Notifier    notify.Presenter
	Navigator   guard.Navigator
	Confirmer   Confirmer
	ListOptions []listing.Option
}

// Page is one open admin screen.
type Page struct {
	schema    *entity.Schema
	session   *session.Context
	policy    *capability.Policy
	api       API
	notifier  notify.Presenter
	confirmer Confirmer
	guard     *guard.Guard

	List *listing.Controller
	Form *form.Controller
}

// New composes a page for schema.
func New(schema *entity.Schema, deps Deps) *Page {
	g := guard.New(deps.Session, deps.Navigator, deps.Notifier)
	list := listing.New(schema, deps.API, g, deps.Policy, deps.ListOptions...)
	return &Page{
		schema:    schema,
		session:   deps.Session,
		policy:    deps.Policy,
		api:       deps.API,
		notifier:  deps.Notifier,
		confirmer: deps.Confirmer,
		guard:     g,
		List:      list,
		Form:      form.New(schema, deps.API, list, g, deps.Notifier),
	}
}

// Schema returns the screen schema.
func (p *Page) Schema() *entity.Schema { return p.schema }

// Open performs the initial load.
func (p *Page) Open(ctx context.Context) error {
	return p.List.Load(ctx)
}

// Role returns the current actor's role.
func (p *Page) Role(ctx context.Context) string {
	return p.session.Role(ctx)
}

// Capabilities resolves what the current role may do on this screen.
func (p *Page) Capabilities(ctx context.Context) capability.Set {
	return p.policy.For(p.Role(ctx), p.schema.Name)
}

// Render builds the list view for the current role.
func (p *Page) Render(ctx context.Context) listing.Table {
	return p.List.Render(p.Role(ctx))
}

// Create opens a blank form and submits values.
func (p *Page) Create(ctx context.Context, values map[string]string) error {
	if err := p.require(ctx, capability.ActionCreate); err != nil {
		return err
	}
	if err := p.Form.Open(nil); err != nil {
		return err
	}
	return p.Form.Submit(ctx, values)
}

// Edit opens the record with id from the working set and submits values.
func (p *Page) Edit(ctx context.Context, id string, values map[string]string) error {
	if err := p.require(ctx, capability.ActionEdit); err != nil {
		return err
	}
	rec, ok := p.List.Find(id)
	if !ok {
		p.notifier.Error(fmt.Sprintf("%s %s not found", p.noun(), id))
		return fmt.Errorf("%w: %s %s", ErrNotFound, p.schema.Name, id)
	}
	if err := p.Form.Open(rec); err != nil {
		return err
	}
	return p.Form.Submit(ctx, values)
}

// Delete asks for confirmation and deletes the record with id. A declined
// prompt sends nothing and leaves the list as it was.
func (p *Page) Delete(ctx context.Context, id string) error {
	if err := p.require(ctx, capability.ActionDelete); err != nil {
		return err
	}
	prompt := fmt.Sprintf("Are you sure you want to delete %s %s?", p.noun(), p.describe(id))
	if p.confirmer == nil || !p.confirmer.Confirm(prompt) {
		logger.L(ctx).Debug("delete declined", zap.String("resource", p.schema.Name), zap.String("id", id))
		return ErrCancelled
	}

	if _, err := p.api.Delete(ctx, p.schema.ItemPath(id)); err != nil {
		return p.guard.Fail(ctx, "delete "+p.schema.Name, err)
	}
	p.List.Remove(id)
	p.notifier.Success(p.noun() + " deleted successfully")

	if err := p.List.Load(ctx); err != nil {
		logger.L(ctx).Debug("reload after delete failed", zap.String("resource", p.schema.Name), zap.Error(err))
	}
	return nil
}

func (p *Page) require(ctx context.Context, a capability.Action) error {
	if p.Capabilities(ctx).Has(a) {
		return nil
	}
	p.notifier.Error(guard.MsgAccessDenied)
	return fmt.Errorf("%w: %s on %s", ErrNotPermitted, a, p.schema.Name)
}

func (p *Page) describe(id string) string {
	if rec, ok := p.List.Find(id); ok {
		for _, key := range []string{"name", "username", "code", "number"} {
			if v := rec.String(key); v != "" {
				return fmt.Sprintf("%q", v)
			}
		}
	}
	return "#" + id
}

func (p *Page) noun() string {
	if p.schema.Singular != "" {
		return p.schema.Singular
	}
	return p.schema.Title
}
