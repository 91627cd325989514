package page

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/console/internal/application/guard"
	"github.com/erp/console/internal/application/notify"
	"github.com/erp/console/internal/domain/capability"
	"github.com/erp/console/internal/domain/entity"
	"github.com/erp/console/internal/domain/session"
	"github.com/erp/console/internal/infrastructure/client"
	"github.com/erp/console/internal/testutil"
)

func productSchema() *entity.Schema {
	return &entity.Schema{
		Name:     "products",
		Title:    "Products",
		Singular: "Product",
		Columns: []entity.Column{
			{Field: "name", Title: "Name"},
			{Field: "price", Title: "Price", Format: entity.FormatMoney},
		},
		SearchFields: []string{"name"},
		Fields: []entity.Field{
			{Name: "name", Label: "Name", Kind: entity.KindText, Required: true},
			{Name: "price", Label: "Price", Kind: entity.KindDecimal, Required: true},
			{Name: "categoryId", Label: "Category", Kind: entity.KindReference, Required: true},
		},
		PrivilegedRoles: []string{"ADMIN", "MANAGER"},
	}
}

type recordingConfirmer struct {
	answer  bool
	prompts []string
}

func (r *recordingConfirmer) Confirm(prompt string) bool {
	r.prompts = append(r.prompts, prompt)
	return r.answer
}

type env struct {
	api       *testutil.FakeAPI
	notes     *notify.Recorder
	confirm   *recordingConfirmer
	redirects int
	page      *Page
}

func newEnv(t *testing.T, role string) *env {
	t.Helper()
	e := &env{api: testutil.NewFakeAPI(t), notes: &notify.Recorder{}, confirm: &recordingConfirmer{}}
	e.api.Seed("products",
		map[string]any{"id": 1, "name": "Laptop", "price": 999, "categoryId": 1},
		map[string]any{"id": 2, "name": "Mouse", "price": 19.99, "categoryId": 2},
		map[string]any{"id": 3, "name": "Keyboard", "price": 45, "categoryId": 2},
	)

	sess := session.NewContext(session.NewMemoryStore())
	require.NoError(t, sess.Login(context.Background(), session.Session{ActorID: "1", Token: "tok"}, []string{role}))
	schema := productSchema()
	policy, err := capability.NewPolicy([]*entity.Schema{schema})
	require.NoError(t, err)
	api, err := client.New(client.Config{BaseURL: e.api.URL, BasePath: "/api"}, sess)
	require.NoError(t, err)

	e.page = New(schema, Deps{
		Session:   sess,
		Policy:    policy,
		API:       api,
		Notifier:  e.notes,
		Navigator: guard.NavigatorFunc(func() { e.redirects++ }),
		Confirmer: e.confirm,
	})
	require.NoError(t, e.page.Open(context.Background()))
	return e
}

func TestDelete_Declined(t *testing.T) {
	e := newEnv(t, "ADMIN")
	before := e.page.List.Working()

	err := e.page.Delete(context.Background(), "2")

	assert.ErrorIs(t, err, ErrCancelled)
	require.Len(t, e.confirm.prompts, 1)
	assert.Equal(t, `Are you sure you want to delete Product "Mouse"?`, e.confirm.prompts[0])
	assert.Zero(t, e.api.Count(http.MethodDelete, "/api/products/2"), "no DELETE issued")
	assert.Equal(t, before, e.page.List.Working(), "list unchanged")
	assert.Empty(t, e.notes.Messages(notify.LevelSuccess))
}

func TestDelete_Confirmed(t *testing.T) {
	e := newEnv(t, "MANAGER")
	e.confirm.answer = true

	require.NoError(t, e.page.Delete(context.Background(), "2"))

	assert.Equal(t, 1, e.api.Count(http.MethodDelete, "/api/products/2"))
	assert.Equal(t, 2, e.api.Count(http.MethodGet, "/api/products"), "list reloaded")
	assert.False(t, e.page.List.Working().Contains("2"))
	assert.Equal(t, []string{"1", "3"}, e.page.List.Working().IDs())
	assert.Equal(t, []string{"Product deleted successfully"}, e.notes.Messages(notify.LevelSuccess))
}

func TestDelete_UnknownRecordPromptsByID(t *testing.T) {
	e := newEnv(t, "ADMIN")

	assert.ErrorIs(t, e.page.Delete(context.Background(), "42"), ErrCancelled)
	assert.Equal(t, "Are you sure you want to delete Product #42?", e.confirm.prompts[0])
}

func TestDelete_NotPermitted(t *testing.T) {
	e := newEnv(t, "USER")
	e.confirm.answer = true

	err := e.page.Delete(context.Background(), "2")

	assert.ErrorIs(t, err, ErrNotPermitted)
	assert.Empty(t, e.confirm.prompts, "no prompt without the capability")
	assert.Zero(t, e.api.Count(http.MethodDelete, "/api/products/2"))
	assert.Equal(t, []string{guard.MsgAccessDenied}, e.notes.Messages(notify.LevelError))
}

func TestDelete_ServerFailureKeepsRecord(t *testing.T) {
	e := newEnv(t, "ADMIN")
	e.confirm.answer = true
	e.api.Fail(http.MethodDelete, "products", http.StatusConflict, map[string]any{"message": "Product has stock movements"})

	err := e.page.Delete(context.Background(), "2")

	require.Error(t, err)
	assert.True(t, e.page.List.Working().Contains("2"))
	assert.Equal(t, []string{"Product has stock movements"}, e.notes.Messages(notify.LevelError))
}

func TestDelete_UnauthorizedRedirects(t *testing.T) {
	e := newEnv(t, "ADMIN")
	e.confirm.answer = true
	e.api.Fail(http.MethodDelete, "products", http.StatusUnauthorized, nil)

	require.Error(t, e.page.Delete(context.Background(), "2"))
	assert.Equal(t, 1, e.redirects)
	_, ok := e.page.session.Token(context.Background())
	assert.False(t, ok)
}

func TestCreate_AssignsFreshID(t *testing.T) {
	e := newEnv(t, "ADMIN")
	before := e.page.List.Working().IDs()

	require.NoError(t, e.page.Create(context.Background(), map[string]string{"name": "Widget", "price": "19.99", "categoryId": "1"}))

	after := e.page.List.Working()
	require.Len(t, after, 4)
	created := after[len(after)-1]
	assert.Equal(t, "Widget", created.String("name"))
	assert.NotContains(t, before, created.ID())
}

func TestCreate_NotPermitted(t *testing.T) {
	e := newEnv(t, "USER")

	err := e.page.Create(context.Background(), map[string]string{"name": "Widget", "price": "1", "categoryId": "1"})

	assert.ErrorIs(t, err, ErrNotPermitted)
	assert.Zero(t, e.api.Count(http.MethodPost, "/api/products"))
}

func TestEdit(t *testing.T) {
	e := newEnv(t, "ADMIN")

	require.NoError(t, e.page.Edit(context.Background(), "3", map[string]string{"price": "49.90"}))
	rec, ok := e.page.List.Find("3")
	require.True(t, ok)
	assert.Equal(t, "49.9", rec.String("price"))

	err := e.page.Edit(context.Background(), "99", nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"Product 99 not found"}, e.notes.Messages(notify.LevelError))
}

func TestRender_UsesSessionRole(t *testing.T) {
	user := newEnv(t, "user")
	table := user.page.Render(context.Background())
	assert.Len(t, table.Rows, 3)
	for _, a := range capability.Privileged {
		assert.False(t, table.HasAction(a))
	}
	assert.False(t, user.page.Capabilities(context.Background()).Destructive())

	admin := newEnv(t, "ADMIN")
	assert.True(t, admin.page.Render(context.Background()).HasAction(capability.ActionDelete))
	assert.Equal(t, "ADMIN", admin.page.Role(context.Background()))
}
