// Package session holds the client's authentication state: the bearer token,
// its decoded claims and the CSRF token. It is the only reader and writer of
// the persisted storage keys; everything else receives a *Session.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/aiot-hub/aiot/backend/go-client/internal/storage"
	"github.com/aiot-hub/aiot/backend/go-client/internal/tokens"
)

// Event is delivered to subscribers when the session changes.
type Event int

const (
	EventLogin Event = iota + 1
	EventLogout
	EventCSRF
)

func (e Event) String() string {
	switch e {
	case EventLogin:
		return "login"
	case EventLogout:
		return "logout"
	case EventCSRF:
		return "csrf"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

type Option func(*Session)

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

type Session struct {
	store storage.Store
	now   func() time.Time

	mu        sync.RWMutex
	token     string
	csrf      string
	claims    *tokens.Claims
	claimsErr error

	subMu  sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

// New returns an empty session over store. Call Load to read persisted state.
func New(store storage.Store, opts ...Option) *Session {
	s := &Session{store: store, now: time.Now, subs: map[int]func(Event){}}
	for _, o := range opts {
		o(s)
	}
	s.claimsErr = tokens.ErrMissing
	return s
}

// Open creates a session and loads persisted state.
func Open(ctx context.Context, store storage.Store, opts ...Option) (*Session, error) {
	s := New(store, opts...)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces in-memory state with what the store holds.
func (s *Session) Load(ctx context.Context) error {
	tok, _, err := s.store.Get(ctx, storage.KeyToken)
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	csrf, _, err := s.store.Get(ctx, storage.KeyCSRF)
	if err != nil {
		return fmt.Errorf("load csrf token: %w", err)
	}
	s.mu.Lock()
	s.setTokenLocked(tok)
	s.csrf = csrf
	s.mu.Unlock()
	return nil
}

func (s *Session) setTokenLocked(tok string) {
	s.token = tok
	s.claims, s.claimsErr = tokens.Decode(tok)
}

// Token returns the stored bearer token or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken persists a new bearer token and notifies subscribers. An empty
// token is a logout: it behaves like Clear.
func (s *Session) SetToken(ctx context.Context, tok string) error {
	if tok == "" {
		return s.Clear(ctx)
	}
	if err := s.store.Set(ctx, storage.KeyToken, tok); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	s.mu.Lock()
	s.setTokenLocked(tok)
	s.mu.Unlock()
	s.publish(EventLogin)
	return nil
}

// CSRFToken returns the stored CSRF token or "".
func (s *Session) CSRFToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.csrf
}

func (s *Session) SetCSRFToken(ctx context.Context, tok string) error {
	if err := s.store.Set(ctx, storage.KeyCSRF, tok); err != nil {
		return fmt.Errorf("store csrf token: %w", err)
	}
	s.mu.Lock()
	s.csrf = tok
	s.mu.Unlock()
	s.publish(EventCSRF)
	return nil
}

// Clear removes the token and CSRF token from memory and the store.
// Memory is cleared even when the store fails.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.setTokenLocked("")
	s.csrf = ""
	s.mu.Unlock()
	err := s.store.Delete(ctx, storage.KeyToken, storage.KeyCSRF)
	s.publish(EventLogout)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Claims returns the decoded claims or the decode error.
func (s *Session) Claims() (*tokens.Claims, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims, s.claimsErr
}

// IsLoggedIn is true only for a decodable token whose exp is in the future.
func (s *Session) IsLoggedIn() bool {
	c, err := s.Claims()
	if err != nil {
		return false
	}
	return c.Valid(s.now())
}

// Expired is true when a decodable token is present and its exp has passed.
func (s *Session) Expired() bool {
	c, err := s.Claims()
	if err != nil || c.ExpiresAt.IsZero() {
		return false
	}
	return !c.Valid(s.now())
}

// Role returns the token role; ok is false when the token does not decode.
func (s *Session) Role() (models.Role, bool) {
	c, err := s.Claims()
	if err != nil || c.Role == "" {
		return "", false
	}
	return c.Role, true
}

// UserID returns the numeric user id; ok is false when absent or undecodable.
func (s *Session) UserID() (int64, bool) {
	c, err := s.Claims()
	if err != nil || !c.HasUserID {
		return 0, false
	}
	return c.UserID, true
}

// Subscribe registers fn for session events and returns a function that removes it.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Session) publish(e Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}
