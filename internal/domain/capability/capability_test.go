package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/console/internal/domain/entity"
)

func testPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := NewPolicy([]*entity.Schema{
		{Name: "products", PrivilegedRoles: []string{"ADMIN", "manager"}},
		{Name: "users", PrivilegedRoles: []string{"ADMIN"}},
		{Name: "invoices"},
	})
	require.NoError(t, err)
	return p
}

func TestPolicy_For(t *testing.T) {
	p := testPolicy(t)

	tests := []struct {
		name     string
		role     string
		resource string
		want     []Action
	}{
		{"admin on products", "ADMIN", "products", []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}},
		{"manager on products", "MANAGER", "products", []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}},
		{"lower-case role normalised", "manager", "products", []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}},
		{"manager on users", "MANAGER", "users", []Action{ActionView}},
		{"user on products", "USER", "products", []Action{ActionView}},
		{"nobody privileged", "ADMIN", "invoices", []Action{ActionView}},
		{"unknown resource", "ADMIN", "nope", []Action{ActionView}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := p.For(tt.role, tt.resource)
			assert.Equal(t, tt.want, set.Actions())
			assert.Equal(t, len(tt.want) > 1, set.Destructive())
		})
	}
}

func TestPolicy_Allowed(t *testing.T) {
	p := testPolicy(t)
	assert.True(t, p.Allowed("ADMIN", "users", ActionDelete))
	assert.False(t, p.Allowed("USER", "users", ActionDelete))
	assert.True(t, p.Allowed("USER", "users", ActionView))
}

func TestSet(t *testing.T) {
	s := NewSet(ActionDelete, ActionView)
	assert.True(t, s.Has(ActionDelete))
	assert.False(t, s.Has(ActionCreate))
	assert.Equal(t, []Action{ActionView, ActionDelete}, s.Actions())
	assert.True(t, s.Destructive())
	assert.False(t, NewSet(ActionView).Destructive())
	assert.False(t, Set{}.Has(ActionView))
}
