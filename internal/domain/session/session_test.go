package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, error) { return "", errors.New("boom") }
func (failingStore) Set(context.Context, string, string) error   { return errors.New("boom") }
func (failingStore) Delete(context.Context, ...string) error     { return errors.New("boom") }

func seeded(t *testing.T, kv map[string]string) *Context {
	t.Helper()
	store := NewMemoryStore()
	for k, v := range kv {
		require.NoError(t, store.Set(context.Background(), k, v))
	}
	return NewContext(store)
}

func TestContext_Role(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		roles string
		want  string
	}{
		{"first entry wins", `["admin","MANAGER"]`, "ADMIN"},
		{"absent", "", DefaultRole},
		{"empty list", `[]`, DefaultRole},
		{"malformed json", `{"role":`, DefaultRole},
		{"wrong shape", `"ADMIN"`, DefaultRole},
		{"blank names skipped", `[" ", "manager"]`, "MANAGER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := map[string]string{}
			if tt.roles != "" {
				kv[KeyUserRoles] = tt.roles
			}
			assert.Equal(t, tt.want, seeded(t, kv).Role(ctx))
		})
	}
}

func TestContext_Token(t *testing.T) {
	ctx := context.Background()

	tok, ok := seeded(t, nil).Token(ctx)
	assert.False(t, ok)
	assert.Empty(t, tok)

	tok, ok = seeded(t, map[string]string{KeyAuthToken: "abc"}).Token(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)
}

func TestContext_StoreFailuresAreAbsentSession(t *testing.T) {
	ctx := context.Background()
	c := NewContext(failingStore{})

	assert.Equal(t, DefaultRole, c.Role(ctx))
	_, ok := c.Token(ctx)
	assert.False(t, ok)
	assert.Equal(t, Session{RoleName: DefaultRole}, c.Current(ctx))
	assert.Error(t, c.Clear(ctx))
}

func TestContext_Current(t *testing.T) {
	ctx := context.Background()
	c := seeded(t, map[string]string{
		KeyAuthToken:   "tok",
		KeyCurrentUser: `{"id":42,"username":"jdoe","email":"j@example.com"}`,
		KeyUserRoles:   `["MANAGER"]`,
	})

	assert.Equal(t, Session{ActorID: "42", DisplayName: "jdoe", RoleName: "MANAGER", Token: "tok"}, c.Current(ctx))

	c = seeded(t, map[string]string{KeyCurrentUser: `not json`})
	assert.Equal(t, Session{RoleName: DefaultRole}, c.Current(ctx))
}

func TestContext_LoginAndClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := NewContext(store)

	err := c.Login(ctx, Session{ActorID: "1", DisplayName: "Admin", Token: "t"}, []string{"ADMIN", "USER"})
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())
	assert.Equal(t, "ADMIN", c.Role(ctx))
	assert.Equal(t, []string{"ADMIN", "USER"}, c.Roles(ctx))
	assert.Equal(t, "Admin", c.Current(ctx).DisplayName)

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, DefaultRole, c.Role(ctx))

	assert.Error(t, c.Login(ctx, Session{}, nil), "token required")

	require.NoError(t, c.Login(ctx, Session{Token: "t", RoleName: "manager"}, nil))
	assert.Equal(t, "MANAGER", c.Role(ctx))
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	got, ok := TokenExpiry(signed)
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = TokenExpiry("opaque-token")
	assert.False(t, ok)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "1"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, ok = TokenExpiry(noExp)
	assert.False(t, ok)
}
