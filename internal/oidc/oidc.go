// Package oidc verifies Google ID tokens for the "Sign in with Google" flow.
package oidc

import (
	"context"
	"fmt"

	"github.com/aiot-hub/aiot/backend/go-client/internal/users"
	"github.com/coreos/go-oidc/v3/oidc"
)

const GoogleIssuer = "https://accounts.google.com"

// IDToken is a minimal interface for token payloads that allows extracting claims
// It is satisfied by *oidc.IDToken and by test fakes.
type IDToken interface {
	Claims(v interface{}) error
}

// TokenVerifier checks a raw ID token and returns its payload.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (IDToken, error)
}

// Verifier wraps the OIDC provider and token verifier
type Verifier struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers issuer and checks tokens against clientID.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return &Verifier{provider: provider, verifier: verifier}, nil
}

func (v *Verifier) Verify(ctx context.Context, raw string) (IDToken, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}

type googleClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Profile verifies raw and maps its claims to a Google profile. Unverified
// email addresses are dropped so they cannot be used to link accounts.
func Profile(ctx context.Context, v TokenVerifier, raw string) (users.GoogleProfile, error) {
	tok, err := v.Verify(ctx, raw)
	if err != nil {
		return users.GoogleProfile{}, err
	}
	var c googleClaims
	if err := tok.Claims(&c); err != nil {
		return users.GoogleProfile{}, err
	}
	p := users.GoogleProfile{Sub: c.Sub, Name: c.Name, Picture: c.Picture}
	if c.EmailVerified {
		p.Email = c.Email
	}
	return p, nil
}
