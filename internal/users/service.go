package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("The email has already been taken.")
	ErrInvalidCredentials = errors.New("These credentials do not match our records.")
)

// ValidationError is returned for bad input; its message is safe to show.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// GoogleProfile is the subset of verified Google ID token claims we keep.
type GoogleProfile struct {
	Sub     string
	Email   string
	Name    string
	Picture string
}

// Service encapsulates user-related business logic
type Service struct {
	repo UserRepository
	cost int
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r, cost: bcrypt.DefaultCost}
}

// Register creates a user with the default role.
func (s *Service) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return nil, &ValidationError{"The name field is required."}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &ValidationError{"The email field must be a valid email address."}
	}
	if err := validPassword(password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, &models.User{
		Name:         name,
		Email:        email,
		Role:         models.RoleUser,
		PasswordHash: string(hash),
	})
}

// Authenticate checks an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil || u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// UpsertFromGoogle finds the user by Google subject, then by email, and
// creates one when neither matches.
func (s *Service) UpsertFromGoogle(ctx context.Context, p GoogleProfile) (*models.User, error) {
	if p.Sub == "" {
		return nil, &ValidationError{"Google credential has no subject."}
	}
	u, err := s.repo.GetByGoogleSub(ctx, p.Sub)
	if err != nil {
		return nil, err
	}
	if u == nil && p.Email != "" {
		if u, err = s.repo.GetByEmail(ctx, normalizeEmail(p.Email)); err != nil {
			return nil, err
		}
	}
	if u == nil {
		name := p.Name
		if name == "" {
			name = p.Email
		}
		return s.repo.Create(ctx, &models.User{
			Name:      name,
			Email:     normalizeEmail(p.Email),
			Role:      models.RoleUser,
			GoogleSub: p.Sub,
			Avatar:    p.Picture,
		})
	}
	u.GoogleSub = p.Sub
	if u.Avatar == "" {
		u.Avatar = p.Picture
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func (s *Service) List(ctx context.Context) ([]models.User, error) {
	return s.repo.List(ctx)
}

func (s *Service) SetRole(ctx context.Context, id int64, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, &ValidationError{"The selected role is invalid."}
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Role = role
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// SetPassword replaces the password of the user with the given email.
func (s *Service) SetPassword(ctx context.Context, email, password string) (*models.User, error) {
	if err := validPassword(password); err != nil {
		return nil, err
	}
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = string(hash)
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// CompleteOnboarding stores the chosen interests and flags the user as onboarded.
func (s *Service) CompleteOnboarding(ctx context.Context, id int64, interests []string) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Interests = interests
	u.Onboarded = true
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func validPassword(p string) error {
	if len(p) < MinPasswordLength {
		return &ValidationError{"The password field must be at least 8 characters."}
	}
	return nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
