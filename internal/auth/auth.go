// Package auth implements login, registration and logout against the
// platform API on top of the shared session.
package auth

import (
	"context"
	"errors"

	"github.com/aiot-hub/aiot/backend/go-client/internal/apiclient"
	"github.com/aiot-hub/aiot/backend/go-client/internal/i18n"
	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/aiot-hub/aiot/backend/go-client/internal/session"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/logger"
)

// Navigator performs the full navigation to the landing page after logout.
type Navigator interface {
	Home()
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func()

func (f NavigatorFunc) Home() { f() }

// Error is returned by remote auth calls. Message is the server's message or
// a localized fallback.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

type Service struct {
	client *apiclient.Client
	sess   *session.Session
	nav    Navigator
	tr     *i18n.Translator
}

// NewService wires the auth helper to the client's session. A nil nav skips navigation.
func NewService(client *apiclient.Client, nav Navigator, tr *i18n.Translator) *Service {
	if tr == nil {
		tr = i18n.New("en")
	}
	if nav == nil {
		nav = NavigatorFunc(func() {})
	}
	return &Service{client: client, sess: client.Session(), nav: nav, tr: tr}
}

func (s *Service) Session() *session.Session { return s.sess }

type LoginResponse struct {
	Token       string       `json:"token"`
	AccessToken string       `json:"access_token"`
	User        *models.User `json:"user,omitempty"`
	Message     string       `json:"message,omitempty"`
}

func (r *LoginResponse) token() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AccessToken
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetPasswordInput struct {
	Token                string `json:"token"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Bootstrap fetches a CSRF token when the session has none.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.sess.CSRFToken() != "" {
		return nil
	}
	_, err := s.client.InitCSRF(ctx)
	return err
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := s.client.Post(ctx, "/auth/login", body, &resp); err != nil {
		return nil, s.fail("login", i18n.LoginFailed, err)
	}
	return s.storeToken(ctx, "login", &resp)
}

// LoginWithGoogle exchanges a Google ID token credential for a session token.
func (s *Service) LoginWithGoogle(ctx context.Context, credential string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := s.client.Post(ctx, "/auth/google", map[string]string{"credential": credential}, &resp); err != nil {
		return nil, s.fail("google", i18n.GoogleLoginFailed, err)
	}
	return s.storeToken(ctx, "google", &resp)
}

// Register creates an account. When the response carries a token the user is logged in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*LoginResponse, error) {
	var resp LoginResponse
	if err := s.client.Post(ctx, "/auth/register", in, &resp); err != nil {
		return nil, s.fail("register", i18n.RegisterFailed, err)
	}
	if resp.token() == "" {
		return &resp, nil
	}
	return s.storeToken(ctx, "register", &resp)
}

func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	var resp messageResponse
	if err := s.client.Post(ctx, "/auth/forgot-password", map[string]string{"email": email}, &resp); err != nil {
		return "", s.fail("forgot-password", i18n.ForgotPasswordFailed, err)
	}
	return resp.Message, nil
}

func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) (string, error) {
	var resp messageResponse
	if err := s.client.Post(ctx, "/auth/reset-password", in, &resp); err != nil {
		return "", s.fail("reset-password", i18n.ResetPasswordFailed, err)
	}
	return resp.Message, nil
}

// Me fetches the current user's profile.
func (s *Service) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := s.client.Get(ctx, "/me", &u); err != nil {
		return nil, s.fail("me", i18n.ProfileFailed, err)
	}
	return &u, nil
}

// Logout is local: the stored token and CSRF token are removed and the
// navigator is sent home. Navigation happens even if the store fails.
func (s *Service) Logout(ctx context.Context) error {
	err := s.sess.Clear(ctx)
	if err != nil {
		logger.Warnf("logout: clear session: %v", err)
	}
	s.nav.Home()
	return err
}

// IsLoggedIn reports whether a well-formed, unexpired token is stored. An
// expired token is removed.
func (s *Service) IsLoggedIn() bool {
	if s.sess.IsLoggedIn() {
		return true
	}
	if s.sess.Expired() {
		logger.Infof("session token expired, clearing")
		if err := s.sess.Clear(context.Background()); err != nil {
			logger.Warnf("clear expired session: %v", err)
		}
	}
	return false
}

// UserRole returns the role claim; ok is false when there is no decodable token.
func (s *Service) UserRole() (models.Role, bool) { return s.sess.Role() }

// UserID returns the numeric user id claim; ok is false when there is no decodable token.
func (s *Service) UserID() (int64, bool) { return s.sess.UserID() }

func (s *Service) storeToken(ctx context.Context, op string, resp *LoginResponse) (*LoginResponse, error) {
	tok := resp.token()
	if tok == "" {
		return nil, &Error{Op: op, Message: s.tr.T(i18n.NoTokenInResponse)}
	}
	if err := s.sess.SetToken(ctx, tok); err != nil {
		return nil, &Error{Op: op, Message: s.tr.T(i18n.LoginFailed), Err: err}
	}
	logger.Infof("%s succeeded (token len=%d)", op, len(tok))
	return resp, nil
}

func (s *Service) fail(op, fallback string, err error) error {
	out := &Error{Op: op, Message: s.tr.T(fallback), Err: err}
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		out.Status = apiErr.Status
		if msg := apiErr.ServerMessage(); msg != "" {
			out.Message = msg
		}
	}
	logger.Debugf("%s failed: %v", op, err)
	return out
}
