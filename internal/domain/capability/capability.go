// Package capability maps roles to the actions they may take on each screen.
// A screen checks the capability set once per render instead of comparing
// role names at every button.
package capability

import (
	"fmt"
	"strings"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/erp/console/internal/domain/entity"
)

// Action is something a user can do on a screen.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Privileged lists the actions reserved to a screen's privileged roles.
var Privileged = []Action{ActionCreate, ActionEdit, ActionDelete}

var order = []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}

const policyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// Set is the resolved capabilities of one role on one screen.
type Set struct {
	allowed map[Action]bool
}

// NewSet builds a set from actions.
func NewSet(actions ...Action) Set {
	s := Set{allowed: make(map[Action]bool, len(actions))}
	for _, a := range actions {
		s.allowed[a] = true
	}
	return s
}

// Has reports whether a is allowed.
func (s Set) Has(a Action) bool {
	return s.allowed[a]
}

// Destructive reports whether any privileged action is allowed.
func (s Set) Destructive() bool {
	for _, a := range Privileged {
		if s.allowed[a] {
			return true
		}
	}
	return false
}

// Actions lists allowed actions in display order.
func (s Set) Actions() []Action {
	out := make([]Action, 0, len(s.allowed))
	for _, a := range order {
		if s.allowed[a] {
			out = append(out, a)
		}
	}
	return out
}

// Policy answers capability questions for all screens.
type Policy struct {
	mu       sync.RWMutex
	enforcer *casbin.Enforcer
}

// NewPolicy grants each schema's privileged roles the privileged actions.
// Every role can view every screen.
func NewPolicy(schemas []*entity.Schema) (*Policy, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("capability: loading model: %w", err)
	}
	enf, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("capability: creating enforcer: %w", err)
	}

	var rules [][]string
	for _, s := range schemas {
		for _, role := range s.PrivilegedRoles {
			for _, a := range Privileged {
				rules = append(rules, []string{normalizeRole(role), s.Name, string(a)})
			}
		}
	}
	if len(rules) > 0 {
		if _, err := enf.AddPolicies(rules); err != nil {
			return nil, fmt.Errorf("capability: adding policies: %w", err)
		}
	}
	return &Policy{enforcer: enf}, nil
}

// For resolves what role may do on resource. Enforcement errors deny.
func (p *Policy) For(role, resource string) Set {
	p.mu.RLock()
	defer p.mu.RUnlock()

	actions := []Action{ActionView}
	sub := normalizeRole(role)
	for _, a := range Privileged {
		ok, err := p.enforcer.Enforce(sub, resource, string(a))
		if err == nil && ok {
			actions = append(actions, a)
		}
	}
	return NewSet(actions...)
}

// Allowed is a shortcut for For(role, resource).Has(a).
func (p *Policy) Allowed(role, resource string, a Action) bool {
	return p.For(role, resource).Has(a)
}

func normalizeRole(role string) string {
	return strings.ToUpper(strings.TrimSpace(role))
}
