// Package guard turns API failures into the user-facing outcome each
// failure class requires.
package guard

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/erp/console/internal/application/notify"
	"github.com/erp/console/internal/domain/session"
	"github.com/erp/console/internal/infrastructure/client"
	"github.com/erp/console/internal/infrastructure/logger"
)

// Messages shown for authorization failures.
const (
	MsgSessionExpired = "Session expired, please log in again"
	MsgAccessDenied   = "Access denied"
)

// Navigator moves the user between surfaces.
type Navigator interface {
	// RedirectToLogin sends the user to the login surface.
	RedirectToLogin()
}

// Guard handles failed API calls for one screen.
type Guard struct {
	session  *session.Context
	nav      Navigator
	notifier notify.Presenter
}

// New creates a guard.
func New(sess *session.Context, nav Navigator, notifier notify.Presenter) *Guard {
	return &Guard{session: sess, nav: nav, notifier: notifier}
}

// Fail reports err for the action that triggered it and returns err.
// A 401 clears the session and redirects to login. A 403 only notifies.
// Everything else surfaces the server's message, or "HTTP <status>".
func (g *Guard) Fail(ctx context.Context, action string, err error) error {
	if err == nil {
		return nil
	}
	log := logger.L(ctx).With(zap.String("action", action))

	switch {
	case errors.Is(err, client.ErrUnauthorized):
		log.Info("session expired, clearing")
		if clearErr := g.session.Clear(ctx); clearErr != nil {
			log.Warn("failed to clear session", zap.Error(clearErr))
		}
		g.notifier.Error(MsgSessionExpired)
		if g.nav != nil {
			g.nav.RedirectToLogin()
		}
	case errors.Is(err, client.ErrForbidden):
		log.Info("access denied", zap.Error(err))
		g.notifier.Error(deniedMessage(err))
	default:
		log.Warn("action failed", zap.Error(err))
		g.notifier.Error(Message(err))
	}
	return err
}

// Message extracts the text to show the user for err.
func Message(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func deniedMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.Message != "HTTP 403" {
		return MsgAccessDenied + ": " + apiErr.Message
	}
	return MsgAccessDenied
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func()

func (f NavigatorFunc) RedirectToLogin() { f() }
