package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/internal/config"
	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	postservice "github.com/aiot-hub/aiot/backend/go-client/internal/posts/service"
	"github.com/aiot-hub/aiot/backend/go-client/internal/resets"
	"github.com/aiot-hub/aiot/backend/go-client/internal/tokens"
	"github.com/aiot-hub/aiot/backend/go-client/internal/users"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adminFixture struct {
	engine *gin.Engine
	users  *users.Service
	rev    *resets.MemoryRevocations
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.JWT.Secret = "s"
	cfg.JWT.AccessTokenTTL = time.Hour
	f := &adminFixture{
		users: users.NewService(users.NewMemoryUserRepository()),
		rev:   resets.NewMemoryRevocations(),
	}
	f.engine = NewRouter(Deps{
		Config:      cfg,
		Users:       f.users,
		Resets:      resets.NewService(resets.NewMemoryRepository(), 0),
		Revocations: f.rev,
		Posts:       postservice.NewMemoryService(),
	})
	return f
}

func (f *adminFixture) user(t *testing.T, email string, role models.Role) (*models.User, string) {
	t.Helper()
	ctx := context.Background()
	u, err := f.users.Register(ctx, "U", email, "secret123")
	require.NoError(t, err)
	u, err = f.users.SetRole(ctx, u.ID, role)
	require.NoError(t, err)
	tok, err := tokens.Issue("s", u, time.Hour)
	require.NoError(t, err)
	return u, tok
}

func (f *adminFixture) do(method, path, tok, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	f.engine.ServeHTTP(w, req)
	return w
}

func TestAdmin_RoleChanges(t *testing.T) {
	f := newAdminFixture(t)
	_, adminTok := f.user(t, "admin@example.com", models.RoleAdmin)
	member, _ := f.user(t, "member@example.com", models.RoleUser)
	_, superTok := f.user(t, "super@example.com", models.RoleSuperAdmin)
	path := "/api/admin/users/" + strconv.FormatInt(member.ID, 10) + "/role"

	w := f.do(http.MethodPut, path, adminTok, `{"role":"super_admin"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodPut, path, adminTok, `{"role":"nobody"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(http.MethodPut, path, superTok, `{"role":"admin"}`)
	require.Equal(t, http.StatusOK, w.Code)
	at, _ := f.rev.RevokedAt(context.Background(), member.ID)
	assert.False(t, at.IsZero())

	w = f.do(http.MethodPut, "/api/admin/users/999/role", superTok, `{"role":"admin"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_DeleteUser(t *testing.T) {
	f := newAdminFixture(t)
	admin, adminTok := f.user(t, "admin@example.com", models.RoleAdmin)
	member, memberTok := f.user(t, "member@example.com", models.RoleUser)

	w := f.do(http.MethodDelete, "/api/admin/users/"+strconv.FormatInt(admin.ID, 10), memberTok, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodDelete, "/api/admin/users/"+strconv.FormatInt(admin.ID, 10), adminTok, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(http.MethodDelete, "/api/admin/users/"+strconv.FormatInt(member.ID, 10), adminTok, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(http.MethodDelete, "/api/admin/users/abc", adminTok, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_UploadNotConfigured(t *testing.T) {
	f := newAdminFixture(t)
	_, adminTok := f.user(t, "admin@example.com", models.RoleAdmin)
	w := f.do(http.MethodPost, "/api/admin/upload", adminTok, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCommunity_SubscribeAndThreads(t *testing.T) {
	f := newAdminFixture(t)
	_, tok := f.user(t, "member@example.com", models.RoleUser)

	w := f.do(http.MethodPost, "/api/subscribe", "", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = f.do(http.MethodPost, "/api/subscribe", "", `{"email":"Fan@Example.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodPost, "/api/threads", "", `{"title":"x","body":"y"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = f.do(http.MethodPost, "/api/threads", tok, `{"title":"","body":"y"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = f.do(http.MethodPost, "/api/threads/missing/replies", tok, `{"body":"y"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/api/learning-paths/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommunity_Subscribers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := NewCommunity(nil)
	g := gin.New()
	c.RegisterPublic(g)
	for _, e := range []string{"b@example.com", "A@example.com", "b@example.com"} {
		w := httptest.NewRecorder()
		g.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(`{"email":"`+e+`"}`)))
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, c.Subscribers())
}
