// Package screens declares the admin screens of the console: one schema
// per backend resource.
package screens

import (
	"fmt"
	"sort"
	"strings"

	"github.com/erp/console/internal/domain/entity"
)

// Role names used in privileged role sets.
const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
)

var (
	adminOnly   = []string{RoleAdmin}
	adminOrMgr  = []string{RoleAdmin, RoleManager}
	activeState = []string{"ACTIVE", "INACTIVE"}
)

// Options tune the catalog.
type Options struct {
	// Demo switches every screen to the sample fallback.
	Demo bool
	// Fallback overrides the policy of individual screens.
	Fallback map[string]entity.FallbackPolicy
	// Seed makes sample sets reproducible; zero uses DefaultSeed.
	Seed uint64
	// SampleSize is the number of sample records per screen.
	SampleSize int
}

// DefaultSeed seeds sample generation when Options.Seed is zero.
const DefaultSeed uint64 = 20240101

// DefaultSampleSize is the number of sample records per screen.
const DefaultSampleSize = 12

// Catalog holds every screen schema.
type Catalog struct {
	schemas []*entity.Schema
	byName  map[string]*entity.Schema
}

// New builds the catalog. Every screen keeps the stale fallback unless
// opts selects samples for it.
func New(opts Options) (*Catalog, error) {
	if opts.Seed == 0 {
		opts.Seed = DefaultSeed
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = DefaultSampleSize
	}

	c := &Catalog{byName: map[string]*entity.Schema{}}
	for _, s := range definitions() {
		s.Samples = generate(s.Name, opts.Seed, opts.SampleSize)
		if opts.Demo {
			s.Fallback = entity.FallbackSample
		}
		if p, ok := opts.Fallback[s.Name]; ok {
			s.Fallback = p
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		c.schemas = append(c.schemas, s)
		c.byName[s.Name] = s
	}
	for name := range opts.Fallback {
		if _, ok := c.byName[name]; !ok {
			return nil, fmt.Errorf("fallback override for unknown screen %q", name)
		}
	}
	return c, nil
}

// All returns the schemas in menu order.
func (c *Catalog) All() []*entity.Schema {
	return append([]*entity.Schema(nil), c.schemas...)
}

// Lookup finds a schema by resource name. Singular forms and
// underscores are accepted, so "product" and "stock_movements" resolve.
func (c *Catalog) Lookup(name string) (*entity.Schema, bool) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	if s, ok := c.byName[key]; ok {
		return s, true
	}
	for _, s := range c.schemas {
		if strings.EqualFold(s.Singular, strings.ReplaceAll(key, "-", " ")) {
			return s, true
		}
	}
	if s, ok := c.byName[key+"s"]; ok {
		return s, true
	}
	return nil, false
}

// Names returns the resource names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.schemas))
	for _, s := range c.schemas {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

func definitions() []*entity.Schema {
	return []*entity.Schema{
		{
			Name: "products", Title: "Products", Singular: "Product",
			Columns: []entity.Column{
				{Field: "sku", Title: "SKU"},
				{Field: "name", Title: "Name"},
				{Field: "categoryName", Title: "Category"},
				{Field: "price", Title: "Price", Format: entity.FormatMoney},
				{Field: "stock", Title: "Stock"},
				{Field: "status", Title: "Status"},
			},
			SearchFields: []string{"name", "sku", "description"},
			StatusField:  "status",
			ForeignKeys:  []string{"categoryId"},
			Fields: []entity.Field{
				{Name: "name", Label: "Name", Kind: entity.KindText, Required: true},
				{Name: "sku", Label: "SKU", Kind: entity.KindText},
				{Name: "price", Label: "Price", Kind: entity.KindDecimal, Required: true},
				{Name: "categoryId", Label: "Category", Kind: entity.KindReference, Required: true},
				{Name: "stock", Label: "Stock", Kind: entity.KindInteger, Default: "0"},
				{Name: "status", Label: "Status", Kind: entity.KindText, Default: "ACTIVE", Options: activeState},
				{Name: "description", Label: "Description", Kind: entity.KindText},
			},
			PrivilegedRoles: adminOrMgr,
			Search:          &entity.ServerSearch{Path: "/products/search", Param: "name"},
		},
		{
			Name: "categories", Title: "Categories", Singular: "Category",
			Columns: []entity.Column{
				{Field: "name", Title: "Name"},
				{Field: "description", Title: "Description"},
			},
			SearchFields: []string{"name", "description"},
			Fields: []entity.Field{
				{Name: "name", Label: "Name", Kind: entity.KindText, Required: true},
				{Name: "description", Label: "Description", Kind: entity.KindText},
			},
			PrivilegedRoles: adminOrMgr,
			Search:          &entity.ServerSearch{Path: "/categories/search", Param: "name"},
		},
		{
			Name: "orders", Title: "Orders", Singular: "Order",
			Columns: []entity.Column{
				{Field: "orderNumber", Title: "Number"},
				{Field: "customerName", Title: "Customer"},
				{Field: "orderDate", Title: "Date", Format: entity.FormatDate},
				{Field: "totalAmount", Title: "Total", Format: entity.FormatMoney},
				{Field: "status", Title: "Status"},
			},
			SearchFields: []string{"orderNumber", "customerName"},
			StatusField:  "status",
			DateField:    "orderDate",
			ForeignKeys:  []string{"userId"},
			Fields: []entity.Field{
				{Name: "orderNumber", Label: "Order number", Kind: entity.KindText, Required: true},
				{Name: "customerName", Label: "Customer", Kind: entity.KindText, Required: true},
				{Name: "userId", Label: "User", Kind: entity.KindReference},
				{Name: "orderDate", Label: "Order date", Kind: entity.KindDate, Required: true},
				{Name: "totalAmount", Label: "Total amount", Kind: entity.KindDecimal, Required: true},
				{Name: "status", Label: "Status", Kind: entity.KindText, Default: "PENDING",
					Options: []string{"PENDING", "CONFIRMED", "SHIPPED", "DELIVERED", "CANCELLED"}},
			},
			PrivilegedRoles: adminOrMgr,
		},
		{
			Name: "order-items", Title: "Order Items", Singular: "Order item",
			Columns: []entity.Column{
				{Field: "orderId", Title: "Order"},
				{Field: "productName", Title: "Product"},
				{Field: "quantity", Title: "Qty"},
				{Field: "unitPrice", Title: "Unit price", Format: entity.FormatMoney},
				{Field: "total", Title: "Total", Format: entity.FormatMoney},
			},
			SearchFields: []string{"productName"},
			ForeignKeys:  []string{"orderId", "productId"},
			Fields: []entity.Field{
				{Name: "orderId", Label: "Order", Kind: entity.KindReference, Required: true},
				{Name: "productId", Label: "Product", Kind: entity.KindReference, Required: true},
				{Name: "quantity", Label: "Quantity", Kind: entity.KindInteger, Required: true, Default: "1"},
				{Name: "unitPrice", Label: "Unit price", Kind: entity.KindDecimal, Required: true},
				{Name: "total", Label: "Total", Kind: entity.KindDecimal},
			},
			Derived:         []entity.Derived{{Target: "total", Factors: []string{"quantity", "unitPrice"}}},
			PrivilegedRoles: adminOrMgr,
		},
		{
			Name: "payments", Title: "Payments", Singular: "Payment",
			Columns: []entity.Column{
				{Field: "orderId", Title: "Order"},
				{Field: "amount", Title: "Amount", Format: entity.FormatMoney},
				{Field: "method", Title: "Method"},
				{Field: "paymentDate", Title: "Date", Format: entity.FormatDate},
				{Field: "status", Title: "Status"},
			},
			SearchFields: []string{"reference", "method"},
			StatusField:  "status",
			DateField:    "paymentDate",
			ForeignKeys:  []string{"orderId"},
			Fields: []entity.Field{
				{Name: "orderId", Label: "Order", Kind: entity.KindReference, Required: true},
				{Name: "amount", Label: "Amount", Kind: entity.KindDecimal, Required: true},
				{Name: "method", Label: "Method", Kind: entity.KindText, Required: true, Default: "CARD",
					Options: []string{"CASH", "CARD", "TRANSFER"}},
				{Name: "paymentDate", Label: "Payment date", Kind: entity.KindDate, Required: true},
				{Name: "reference", Label: "Reference", Kind: entity.KindText},
				{Name: "status", Label: "Status", Kind: entity.KindText, Default: "PENDING",
					Options: []string{"PENDING", "COMPLETED", "FAILED", "REFUNDED"}},
			},
			PrivilegedRoles: adminOrMgr,
		},
		{
			Name: "invoices", Title: "Invoices", Singular: "Invoice",
			Columns: []entity.Column{
				{Field: "invoiceNumber", Title: "Number"},
				{Field: "orderId", Title: "Order"},
				{Field: "amount", Title: "Amount", Format: entity.FormatMoney},
				{Field: "issueDate", Title: "Issued", Format: entity.FormatDate},
				{Field: "dueDate", Title: "Due", Format: entity.FormatDate},
				{Field: "status", Title: "Status"},
			},
			SearchFields: []string{"invoiceNumber"},
			StatusField:  "status",
			DateField:    "issueDate",
			ForeignKeys:  []string{"orderId"},
			Fields: []entity.Field{
				{Name: "invoiceNumber", Label: "Invoice number", Kind: entity.KindText, Required: true},
				{Name: "orderId", Label: "Order", Kind: entity.KindReference, Required: true},
				{Name: "amount", Label: "Amount", Kind: entity.KindDecimal, Required: true},
				{Name: "issueDate", Label: "Issue date", Kind: entity.KindDate, Required: true},
				{Name: "dueDate", Label: "Due date", Kind: entity.KindDate},
				{Name: "status", Label: "Status", Kind: entity.KindText, Default: "DRAFT",
					Options: []string{"DRAFT", "ISSUED", "PAID", "OVERDUE", "CANCELLED"}},
			},
			PrivilegedRoles: adminOrMgr,
		},
		{
			Name: "warehouses", Title: "Warehouses", Singular: "Warehouse",
			Columns: []entity.Column{
				{Field: "code", Title: "Code"},
				{Field: "name", Title: "Name"},
				{Field: "location", Title: "Location"},
				{Field: "capacity", Title: "Capacity"},
				{Field: "status", Title: "Status"},
			},
			SearchFields: []string{"name", "code", "location"},
			StatusField:  "status",
			Fields: []entity.Field{
				{Name: "code", Label: "Code", Kind: entity.KindText, Required: true},
				{Name: "name", Label: "Name", Kind: entity.KindText, Required: true},
				{Name: "location", Label: "Location", Kind: entity.KindText},
				{Name: "capacity", Label: "Capacity", Kind: entity.KindInteger},
				{Name: "status", Label: "Status", Kind: entity.KindText, Default: "ACTIVE", Options: activeState},
			},
			PrivilegedRoles: adminOnly,
		},
		{
			Name: "stock-movements", Title: "Stock Movements", Singular: "Stock movement",
			Columns: []entity.Column{
				{Field: "movementDate", Title: "Date", Format: entity.FormatDate},
				{Field: "productName", Title: "Product"},
				{Field: "warehouseName", Title: "Warehouse"},
				{Field: "type", Title: "Type"},
				{Field: "quantity", Title: "Qty"},
				{Field: "reference", Title: "Reference"},
			},
			SearchFields: []string{"productName", "warehouseName", "reference"},
			StatusField:  "type",
			DateField:    "movementDate",
			ForeignKeys:  []string{"productId", "warehouseId"},
			Fields: []entity.Field{
				{Name: "productId", Label: "Product", Kind: entity.KindReference, Required: true},
				{Name: "warehouseId", Label: "Warehouse", Kind: entity.KindReference, Required: true},
				{Name: "type", Label: "Type", Kind: entity.KindText, Required: true, Default: "IN",
					Options: []string{"IN", "OUT", "TRANSFER", "ADJUSTMENT"}},
				{Name: "quantity", Label: "Quantity", Kind: entity.KindInteger, Required: true},
				{Name: "movementDate", Label: "Date", Kind: entity.KindDate, Required: true},
				{Name: "reference", Label: "Reference", Kind: entity.KindText},
			},
			PrivilegedRoles: adminOrMgr,
		},
		{
			Name: "users", Title: "Users", Singular: "User",
			Columns: []entity.Column{
				{Field: "username", Title: "Username"},
				{Field: "fullName", Title: "Name"},
				{Field: "email", Title: "Email"},
				{Field: "roleName", Title: "Role"},
				{Field: "active", Title: "Active"},
			},
			SearchFields: []string{"username", "fullName", "email"},
			ForeignKeys:  []string{"roleId"},
			Fields: []entity.Field{
				{Name: "username", Label: "Username", Kind: entity.KindText, Required: true},
				{Name: "fullName", Label: "Full name", Kind: entity.KindText},
				{Name: "email", Label: "Email", Kind: entity.KindEmail, Required: true},
				{Name: "password", Label: "Password", Kind: entity.KindSecret, Required: true},
				{Name: "roleId", Label: "Role", Kind: entity.KindReference, Required: true},
				{Name: "active", Label: "Active", Kind: entity.KindBool, Default: "true"},
			},
			PrivilegedRoles: adminOnly,
		},
		{
			Name: "roles", Title: "Roles", Singular: "Role",
			Columns: []entity.Column{
				{Field: "name", Title: "Name"},
				{Field: "description", Title: "Description"},
			},
			SearchFields: []string{"name", "description"},
			Fields: []entity.Field{
				{Name: "name", Label: "Name", Kind: entity.KindText, Required: true},
				{Name: "description", Label: "Description", Kind: entity.KindText},
			},
			PrivilegedRoles: adminOnly,
		},
		{
			Name: "permissions", Title: "Permissions", Singular: "Permission",
			Columns: []entity.Column{
				{Field: "name", Title: "Name"},
				{Field: "resource", Title: "Resource"},
				{Field: "action", Title: "Action"},
				{Field: "description", Title: "Description"},
			},
			SearchFields: []string{"name", "resource", "action", "description"},
			Fields: []entity.Field{
				{Name: "name", Label: "Name", Kind: entity.KindText, Required: true},
				{Name: "resource", Label: "Resource", Kind: entity.KindText, Required: true},
				{Name: "action", Label: "Action", Kind: entity.KindText, Required: true,
					Options: []string{"view", "create", "edit", "delete"}},
				{Name: "description", Label: "Description", Kind: entity.KindText},
			},
			PrivilegedRoles: adminOnly,
		},
	}
}
