package resets

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

const DefaultTTL = time.Hour

// ErrInvalid covers unknown, expired and mismatched reset tokens.
var ErrInvalid = errors.New("This password reset token is invalid.")

// Service issues and redeems single-use reset tokens.
type Service struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time
}

func NewService(r Repository, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{repo: r, ttl: ttl, now: time.Now}
}

// Issue stores a new reset for email and returns its token.
func (s *Service) Issue(ctx context.Context, email string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	now := s.now().UTC()
	rs := &Reset{
		Token:     hex.EncodeToString(b),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, rs); err != nil {
		return "", err
	}
	return rs.Token, nil
}

// Redeem checks token against email and deletes it. A token can be redeemed once.
func (s *Service) Redeem(ctx context.Context, token, email string) (*Reset, error) {
	rs, err := s.repo.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if rs == nil {
		return nil, ErrInvalid
	}
	if s.now().UTC().After(rs.ExpiresAt) {
		_ = s.repo.Delete(ctx, token)
		return nil, ErrInvalid
	}
	if !strings.EqualFold(rs.Email, strings.TrimSpace(email)) {
		return nil, ErrInvalid
	}
	if err := s.repo.Delete(ctx, token); err != nil {
		return nil, err
	}
	return rs, nil
}
