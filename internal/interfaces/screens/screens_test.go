package screens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/console/internal/domain/capability"
	"github.com/erp/console/internal/domain/entity"
)

func TestNew_AllScreens(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"categories", "invoices", "order-items", "orders", "payments", "permissions",
		"products", "roles", "stock-movements", "users", "warehouses",
	}, c.Names())

	for _, s := range c.All() {
		assert.Equal(t, entity.FallbackStale, s.Fallback, s.Name)
		assert.Len(t, s.Samples, DefaultSampleSize, s.Name)
		assert.NotEmpty(t, s.Singular, s.Name)
		for _, col := range s.Columns {
			assert.NotEmpty(t, col.Title, "%s.%s", s.Name, col.Field)
		}
	}
}

func TestNew_PrivilegedRoles(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)
	policy, err := capability.NewPolicy(c.All())
	require.NoError(t, err)

	for _, name := range []string{"users", "roles", "permissions", "warehouses"} {
		assert.True(t, policy.Allowed("ADMIN", name, capability.ActionDelete), name)
		assert.False(t, policy.Allowed("MANAGER", name, capability.ActionDelete), name)
	}
	for _, name := range []string{"products", "categories", "orders", "order-items", "payments", "invoices", "stock-movements"} {
		assert.True(t, policy.Allowed("MANAGER", name, capability.ActionEdit), name)
		assert.False(t, policy.Allowed("USER", name, capability.ActionCreate), name)
	}
}

func TestNew_FallbackOptions(t *testing.T) {
	c, err := New(Options{Demo: true, Fallback: map[string]entity.FallbackPolicy{"users": entity.FallbackStale}})
	require.NoError(t, err)

	products, _ := c.Lookup("products")
	users, _ := c.Lookup("users")
	assert.Equal(t, entity.FallbackSample, products.Fallback)
	assert.Equal(t, entity.FallbackStale, users.Fallback)

	_, err = New(Options{Fallback: map[string]entity.FallbackPolicy{"suppliers": entity.FallbackSample}})
	assert.Error(t, err)
}

func TestSamples_Deterministic(t *testing.T) {
	a, err := New(Options{Seed: 7, SampleSize: 3})
	require.NoError(t, err)
	b, err := New(Options{Seed: 7, SampleSize: 3})
	require.NoError(t, err)
	other, err := New(Options{Seed: 8, SampleSize: 3})
	require.NoError(t, err)

	pa, _ := a.Lookup("products")
	pb, _ := b.Lookup("products")
	po, _ := other.Lookup("products")
	assert.Equal(t, pa.Samples, pb.Samples)
	assert.NotEqual(t, pa.Samples, po.Samples)
	assert.Equal(t, []string{"sample-1", "sample-2", "sample-3"}, pa.Samples.IDs())
}

func TestSamples_DerivedTotalsAreConsistent(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)
	items, ok := c.Lookup("order-items")
	require.True(t, ok)

	for _, rec := range items.Samples {
		assert.NotEmpty(t, rec.String("total"))
		assert.NotEmpty(t, rec.String("productName"))
	}
}

func TestLookup(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)

	for _, name := range []string{"products", "Products", "product", "stock_movements", "stock-movement", "order item", "category"} {
		_, ok := c.Lookup(name)
		assert.True(t, ok, name)
	}
	_, ok := c.Lookup("suppliers")
	assert.False(t, ok)
}
