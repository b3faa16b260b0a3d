package resets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndRedeem(t *testing.T) {
	svc := NewService(NewMemoryRepository(), time.Hour)
	ctx := context.Background()

	tok, err := svc.Issue(ctx, " Ana@Example.com ")
	require.NoError(t, err)
	assert.Len(t, tok, 64)

	rs, err := svc.Redeem(ctx, tok, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", rs.Email)

	_, err = svc.Redeem(ctx, tok, "ana@example.com")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestRedeem_WrongEmailKeepsToken(t *testing.T) {
	svc := NewService(NewMemoryRepository(), time.Hour)
	ctx := context.Background()
	tok, err := svc.Issue(ctx, "ana@example.com")
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, tok, "bob@example.com")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = svc.Redeem(ctx, tok, "ana@example.com")
	assert.NoError(t, err)
}

func TestRedeem_Expired(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, time.Minute)
	now := time.Now()
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	tok, err := svc.Issue(ctx, "ana@example.com")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = svc.Redeem(ctx, tok, "ana@example.com")
	assert.ErrorIs(t, err, ErrInvalid)

	left, err := repo.Get(ctx, tok)
	require.NoError(t, err)
	assert.Nil(t, left)
}

func TestMemoryRevocations(t *testing.T) {
	rev := NewMemoryRevocations()
	ctx := context.Background()
	at, err := rev.RevokedAt(ctx, 1)
	require.NoError(t, err)
	assert.True(t, at.IsZero())

	now := time.Now()
	require.NoError(t, rev.Revoke(ctx, 1, now))
	at, _ = rev.RevokedAt(ctx, 1)
	assert.Equal(t, now, at)
}
