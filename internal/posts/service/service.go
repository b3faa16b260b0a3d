package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/aiot-hub/aiot/backend/go-client/internal/posts"
	"github.com/aiot-hub/aiot/backend/go-client/internal/posts/repository"
	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("Post not found.")
)

// ValidationError carries a message meant for the API caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Service defines the post operations used by the handler layer.
type Service struct {
	repo repository.Repository
	now  func() time.Time
}

func New(repo repository.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService() *Service {
	return New(repository.NewMemoryRepo())
}

func (s *Service) Create(ctx context.Context, authorID int64, in models.PostInput) (*models.Post, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p := &models.Post{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.apply(ctx, p, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, in models.PostInput) (*models.Post, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, p, in); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

func (s *Service) apply(ctx context.Context, p *models.Post, in models.PostInput) error {
	slug := posts.Slugify(in.Slug)
	if slug == "" {
		slug = posts.Slugify(in.Title)
	}
	if slug == "" {
		slug = p.ID[:8]
	}
	slug, err := s.uniqueSlug(ctx, slug, p.ID)
	if err != nil {
		return err
	}
	status := in.Status
	if status == "" {
		status = posts.StatusDraft
	}
	p.Title = strings.TrimSpace(in.Title)
	p.Slug = slug
	p.Excerpt = in.Excerpt
	p.Content = in.Content
	p.CoverImage = in.CoverImage
	p.Tags = in.Tags
	if status == posts.StatusPublished && p.PublishedAt == nil {
		t := s.now().UTC()
		p.PublishedAt = &t
	}
	if status == posts.StatusDraft {
		p.PublishedAt = nil
	}
	p.Status = status
	return nil
}

// uniqueSlug appends -2, -3, ... until no other post owns the slug.
func (s *Service) uniqueSlug(ctx context.Context, base, selfID string) (string, error) {
	slug := base
	for i := 2; ; i++ {
		other, err := s.repo.GetBySlug(ctx, slug)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && other.ID == selfID) {
			return slug, nil
		}
		if err != nil {
			return "", err
		}
		slug = base + "-" + strconv.Itoa(i)
	}
}

func validate(in models.PostInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return &ValidationError{"The title field is required."}
	}
	switch in.Status {
	case "", posts.StatusDraft, posts.StatusPublished:
	default:
		return &ValidationError{"The selected status is invalid."}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Post, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

// BySlug returns a published post. Drafts are reported as not found.
func (s *Service) BySlug(ctx context.Context, slug string) (*models.Post, error) {
	p, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, mapErr(err)
	}
	if p.Status != posts.StatusPublished {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, f posts.Filter) ([]models.Post, error) {
	return s.repo.List(ctx, f)
}

// Published lists published posts regardless of the requested status.
func (s *Service) Published(ctx context.Context, f posts.Filter) ([]models.Post, error) {
	f.Status = posts.StatusPublished
	return s.repo.List(ctx, f)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return mapErr(s.repo.Delete(ctx, id))
}

func mapErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
