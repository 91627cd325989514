// Package session resolves the current actor from persisted session state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erp/console/internal/domain/entity"
)

// Keys under which the login surface persists the session.
const (
	KeyAuthToken   = "authToken"
	KeyCurrentUser = "currentUser"
	KeyUserRoles   = "userRoles"
)

// DefaultRole is assumed whenever no usable role is persisted.
const DefaultRole = "USER"

// ErrKeyNotFound is returned by stores for missing keys.
var ErrKeyNotFound = errors.New("session: key not found")

// Store is the key-value persistence the session lives in.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Session is the identity of the current console user.
type Session struct {
	ActorID     string
	DisplayName string
	RoleName    string
	Token       string
}

// Context reads the persisted session. Read failures and malformed values are
// treated as an absent session and never surface to callers.
type Context struct {
	store Store
}

// NewContext creates a session context backed by store.
func NewContext(store Store) *Context {
	return &Context{store: store}
}

// Role returns the first persisted role name or DefaultRole.
func (c *Context) Role(ctx context.Context) string {
	roles := c.Roles(ctx)
	if len(roles) == 0 {
		return DefaultRole
	}
	return roles[0]
}

// Roles returns the persisted role names in order, upper-cased.
func (c *Context) Roles(ctx context.Context) []string {
	raw, err := c.store.Get(ctx, KeyUserRoles)
	if err != nil || strings.TrimSpace(raw) == "" {
		return nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.ToUpper(strings.TrimSpace(n)); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Token returns the bearer token and whether a session is persisted.
func (c *Context) Token(ctx context.Context) (string, bool) {
	tok, err := c.store.Get(ctx, KeyAuthToken)
	if err != nil || tok == "" {
		return "", false
	}
	return tok, true
}

// Current assembles the full session from the persisted values.
func (c *Context) Current(ctx context.Context) Session {
	s := Session{RoleName: c.Role(ctx)}
	s.Token, _ = c.Token(ctx)

	raw, err := c.store.Get(ctx, KeyCurrentUser)
	if err != nil || raw == "" {
		return s
	}
	var user entity.Record
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return s
	}
	s.ActorID = user.ID()
	for _, key := range []string{"displayName", "fullName", "username", "email"} {
		if v := user.String(key); v != "" {
			s.DisplayName = v
			break
		}
	}
	return s
}

// Clear removes every persisted session value.
func (c *Context) Clear(ctx context.Context) error {
	if err := c.store.Delete(ctx, KeyAuthToken, KeyCurrentUser, KeyUserRoles); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Login persists a session as the login surface would.
func (c *Context) Login(ctx context.Context, s Session, roles []string) error {
	if s.Token == "" {
		return errors.New("session token is required")
	}
	user, err := json.Marshal(map[string]string{"id": s.ActorID, "displayName": s.DisplayName})
	if err != nil {
		return fmt.Errorf("encoding current user: %w", err)
	}
	if len(roles) == 0 && s.RoleName != "" {
		roles = []string{s.RoleName}
	}
	if roles == nil {
		roles = []string{}
	}
	encodedRoles, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("encoding roles: %w", err)
	}

	for _, kv := range [][2]string{
		{KeyAuthToken, s.Token},
		{KeyCurrentUser, string(user)},
		{KeyUserRoles, string(encodedRoles)},
	} {
		if err := c.store.Set(ctx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("persisting %s: %w", kv[0], err)
		}
	}
	return nil
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// The console only consumes tokens, so the claim is informational.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
