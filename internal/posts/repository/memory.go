package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/aiot-hub/aiot/backend/go-client/internal/posts"
)

var (
	ErrNotFound = errors.New("post not found")
)

// Repository persists posts. Implementations return ErrNotFound for unknown ids and slugs.
type Repository interface {
	Create(ctx context.Context, p *models.Post) error
	Get(ctx context.Context, id string) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	List(ctx context.Context, f posts.Filter) ([]models.Post, error)
	Update(ctx context.Context, p *models.Post) error
	Delete(ctx context.Context, id string) error
}

// MemoryRepo is an in-memory repository used for local runs and unit tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*models.Post
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*models.Post)}
}

func (m *MemoryRepo) Create(ctx context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.store[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// List returns matching posts newest first.
func (m *MemoryRepo) List(ctx context.Context, f posts.Filter) ([]models.Post, error) {
	m.mu.RLock()
	var out []models.Post
	search := strings.ToLower(f.Search)
	for _, p := range m.store {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) && !strings.Contains(strings.ToLower(p.Content), search) {
			continue
		}
		out = append(out, *p)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Page), nil
}

func page(all []models.Post, n int) []models.Post {
	if n < 1 {
		n = 1
	}
	start := (n - 1) * posts.PerPage
	if start >= len(all) {
		return []models.Post{}
	}
	end := start + posts.PerPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

func (m *MemoryRepo) Update(ctx context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MemoryRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}
