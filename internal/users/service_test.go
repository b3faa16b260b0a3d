package users

import (
	"context"
	"testing"

	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newService() *Service {
	s := NewService(NewMemoryUserRepository())
	s.cost = bcrypt.MinCost
	return s
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.Register(ctx, "Ana", " Ana@Example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.NotEqual(t, "secret123", u.PasswordHash)

	got, err := svc.Authenticate(ctx, "ANA@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "ana@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Register(ctx, "Ana 2", "ana@example.com", "secret123")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_Validation(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	var verr *ValidationError

	_, err := svc.Register(ctx, "", "a@b.c", "secret123")
	assert.ErrorAs(t, err, &verr)
	_, err = svc.Register(ctx, "A", "not-an-email", "secret123")
	assert.ErrorAs(t, err, &verr)
	_, err = svc.Register(ctx, "A", "a@b.c", "short")
	assert.ErrorAs(t, err, &verr)
}

func TestUpsertFromGoogle(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	created, err := svc.UpsertFromGoogle(ctx, GoogleProfile{Sub: "g-1", Email: "g@example.com", Name: "Gee"})
	require.NoError(t, err)
	again, err := svc.UpsertFromGoogle(ctx, GoogleProfile{Sub: "g-1", Email: "g@example.com"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	// an existing password account gets linked by email
	pw, err := svc.Register(ctx, "Pat", "pat@example.com", "secret123")
	require.NoError(t, err)
	linked, err := svc.UpsertFromGoogle(ctx, GoogleProfile{Sub: "g-2", Email: "pat@example.com", Picture: "https://img/p.png"})
	require.NoError(t, err)
	assert.Equal(t, pw.ID, linked.ID)
	assert.Equal(t, "https://img/p.png", linked.Avatar)

	_, err = svc.UpsertFromGoogle(ctx, GoogleProfile{Email: "x@example.com"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSetRoleDeleteAndList(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	a, _ := svc.Register(ctx, "A", "a@example.com", "secret123")
	b, _ := svc.Register(ctx, "B", "b@example.com", "secret123")

	u, err := svc.SetRole(ctx, b.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	_, err = svc.SetRole(ctx, b.ID, models.Role("root"))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.SetRole(ctx, 99, models.RoleUser)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), ErrNotFound)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, b.ID, all[0].ID)
}

func TestSetPasswordAndOnboarding(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	u, _ := svc.Register(ctx, "A", "a@example.com", "secret123")

	_, err := svc.SetPassword(ctx, "a@example.com", "new-secret")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "a@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "a@example.com", "new-secret")
	assert.NoError(t, err)

	_, err = svc.SetPassword(ctx, "missing@example.com", "new-secret")
	assert.ErrorIs(t, err, ErrNotFound)

	on, err := svc.CompleteOnboarding(ctx, u.ID, []string{"iot", "ml"})
	require.NoError(t, err)
	assert.True(t, on.Onboarded)
	assert.Equal(t, []string{"iot", "ml"}, on.Interests)
}
