package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/internal/config"
	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/aiot-hub/aiot/backend/go-client/internal/oidc"
	"github.com/aiot-hub/aiot/backend/go-client/internal/resets"
	"github.com/aiot-hub/aiot/backend/go-client/internal/tokens"
	"github.com/aiot-hub/aiot/backend/go-client/internal/users"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/logger"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// ResetNotifier delivers a password reset token to its owner.
type ResetNotifier func(email, token string)

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg         *config.Config
	usersSvc    *users.Service
	resetsSvc   *resets.Service
	revocations resets.Revocations
	google      oidc.TokenVerifier
	notify      ResetNotifier
}

// NewAuthHandler wires the auth routes. google may be nil, in which case
// POST /auth/google answers 503.
func NewAuthHandler(cfg *config.Config, u *users.Service, r *resets.Service, rev resets.Revocations, google oidc.TokenVerifier) *AuthHandler {
	return &AuthHandler{
		cfg:         cfg,
		usersSvc:    u,
		resetsSvc:   r,
		revocations: rev,
		google:      google,
		notify: func(email, token string) {
			logger.Infof("password reset requested for %s: token=%s", email, token)
		},
	}
}

// SetResetNotifier replaces the default notifier, which only logs the token.
func (h *AuthHandler) SetResetNotifier(n ResetNotifier) { h.notify = n }

// Register mounts the public auth routes on rg and the authenticated
// profile routes on authed.
func (h *AuthHandler) Register(rg gin.IRoutes, authed gin.IRoutes) {
	rg.GET("/csrf-cookie", h.CSRFCookie)
	rg.POST("/auth/login", h.Login)
	rg.POST("/auth/google", h.Google)
	rg.POST("/auth/register", h.SignUp)
	rg.POST("/auth/forgot-password", h.ForgotPassword)
	rg.POST("/auth/reset-password", h.ResetPassword)

	authed.GET("/me", h.Me)
	authed.POST("/me/onboarding", h.Onboarding)
}

// CSRFCookie issues a signed CSRF token both as a cookie and in the body.
func (h *AuthHandler) CSRFCookie(c *gin.Context) {
	tok, err := middleware.NewCSRFToken(h.cfg.JWT.Secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CSRFCookie, tok, int((2 * time.Hour).Seconds()), "/", "", false, false)
	c.JSON(http.StatusOK, gin.H{"csrf_token": tok})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}
	u, err := h.usersSvc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	tok, err := h.issue(u)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok, "user": u})
}

// Google exchanges a Google ID token credential for an access token.
func (h *AuthHandler) Google(c *gin.Context) {
	if h.google == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Google sign-in is not configured."})
		return
	}
	var req struct {
		Credential string `json:"credential"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Credential == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The credential field is required."})
		return
	}
	p, err := oidc.Profile(c.Request.Context(), h.google, req.Credential)
	if err != nil {
		logger.Warnf("google credential rejected: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid Google credential."})
		return
	}
	u, err := h.usersSvc.UpsertFromGoogle(c.Request.Context(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	tok, err := h.issue(u)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": tok, "user": u})
}

// SignUp handles POST /auth/register.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req struct {
		Name                 string  `json:"name"`
		Email                string  `json:"email"`
		Password             string  `json:"password"`
		PasswordConfirmation *string `json:"password_confirmation"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}
	if req.PasswordConfirmation != nil && *req.PasswordConfirmation != req.Password {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The password field confirmation does not match."})
		return
	}
	u, err := h.usersSvc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	tok, err := h.issue(u)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": tok, "user": u, "message": "Registration successful."})
}

// ForgotPassword always answers with the same message so callers cannot
// probe which emails are registered.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The email field is required."})
		return
	}
	const msg = "We have emailed your password reset link."
	ctx := c.Request.Context()
	if _, err := h.usersSvc.GetByEmail(ctx, req.Email); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"message": msg})
			return
		}
		h.fail(c, err)
		return
	}
	tok, err := h.resetsSvc.Issue(ctx, req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.notify(req.Email, tok)
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// ResetPassword redeems a reset token, stores the new password and revokes
// every access token issued before now.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token                string `json:"token"`
		Email                string `json:"email"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}
	if req.Password != req.PasswordConfirmation {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "The password field confirmation does not match."})
		return
	}
	ctx := c.Request.Context()
	if _, err := h.resetsSvc.Redeem(ctx, req.Token, req.Email); err != nil {
		h.fail(c, err)
		return
	}
	u, err := h.usersSvc.SetPassword(ctx, req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	if h.revocations != nil {
		if err := h.revocations.Revoke(ctx, u.ID, time.Now()); err != nil {
			logger.Errorf("revoke tokens for user %d: %v", u.ID, err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Your password has been reset."})
}

func (h *AuthHandler) Me(c *gin.Context) {
	cl, _ := middleware.Claims(c)
	u, err := h.usersSvc.Get(c.Request.Context(), cl.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *AuthHandler) Onboarding(c *gin.Context) {
	var req struct {
		Interests []string `json:"interests"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
		return
	}
	cl, _ := middleware.Claims(c)
	u, err := h.usersSvc.CompleteOnboarding(c.Request.Context(), cl.UserID, req.Interests)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *AuthHandler) issue(u *models.User) (string, error) {
	return tokens.Issue(h.cfg.JWT.Secret, u, h.cfg.JWT.AccessTokenTTL)
}

func (h *AuthHandler) fail(c *gin.Context, err error) {
	var verr *users.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": verr.Message})
	case errors.Is(err, users.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
	case errors.Is(err, users.ErrEmailTaken), errors.Is(err, resets.ErrInvalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
	case errors.Is(err, users.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found."})
	default:
		logger.Errorf("auth handler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server Error"})
	}
}
