package service

import (
	"context"
	"testing"

	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/aiot-hub/aiot/backend/go-client/internal/posts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_SlugAndStatus(t *testing.T) {
	svc := NewMemoryService()
	ctx := context.Background()

	p, err := svc.Create(ctx, 1, models.PostInput{Title: "Édge AI on ESP32!", Content: "<p>x</p>"})
	require.NoError(t, err)
	assert.Equal(t, "edge-ai-on-esp32", p.Slug)
	assert.Equal(t, posts.StatusDraft, p.Status)
	assert.Nil(t, p.PublishedAt)
	assert.Equal(t, int64(1), p.AuthorID)

	dup, err := svc.Create(ctx, 1, models.PostInput{Title: "Edge AI on ESP32", Status: posts.StatusPublished})
	require.NoError(t, err)
	assert.Equal(t, "edge-ai-on-esp32-2", dup.Slug)
	assert.NotNil(t, dup.PublishedAt)
}

func TestCreate_Validation(t *testing.T) {
	svc := NewMemoryService()
	var verr *ValidationError
	_, err := svc.Create(context.Background(), 1, models.PostInput{Title: "  "})
	assert.ErrorAs(t, err, &verr)
	_, err = svc.Create(context.Background(), 1, models.PostInput{Title: "x", Status: "archived"})
	assert.ErrorAs(t, err, &verr)
}

func TestUpdate_KeepsOwnSlugAndPublishes(t *testing.T) {
	svc := NewMemoryService()
	ctx := context.Background()
	p, err := svc.Create(ctx, 1, models.PostInput{Title: "Hello"})
	require.NoError(t, err)

	up, err := svc.Update(ctx, p.ID, models.PostInput{Title: "Hello", Status: posts.StatusPublished})
	require.NoError(t, err)
	assert.Equal(t, "hello", up.Slug)
	require.NotNil(t, up.PublishedAt)

	got, err := svc.BySlug(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = svc.Update(ctx, "missing", models.PostInput{Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBySlug_HidesDrafts(t *testing.T) {
	svc := NewMemoryService()
	ctx := context.Background()
	_, err := svc.Create(ctx, 1, models.PostInput{Title: "Secret"})
	require.NoError(t, err)
	_, err = svc.BySlug(ctx, "secret")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := svc.Published(ctx, posts.Filter{Status: posts.StatusDraft})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDelete(t *testing.T) {
	svc := NewMemoryService()
	ctx := context.Background()
	p, _ := svc.Create(ctx, 1, models.PostInput{Title: "Bye"})
	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.ErrorIs(t, svc.Delete(ctx, p.ID), ErrNotFound)
}
