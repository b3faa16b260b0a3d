package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenExpired = errors.New("oidc: id token expired")

// claimsToken exposes already-decoded claims through the IDToken interface.
type claimsToken jwt.MapClaims

func (t claimsToken) Claims(v interface{}) error {
	b, err := json.Marshal(jwt.MapClaims(t))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// InsecureVerifier reads ID token claims without checking the signature.
// It still rejects tokens whose exp has passed. Enabled only through
// ALLOW_INSECURE_TOKEN for local runs and tests.
type InsecureVerifier struct {
	now func() time.Time
}

func NewInsecureVerifier() *InsecureVerifier { return &InsecureVerifier{now: time.Now} }

func (v *InsecureVerifier) Verify(_ context.Context, raw string) (IDToken, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, err
	}
	if exp != nil && !v.now().Before(exp.Time) {
		return nil, ErrTokenExpired
	}
	return claimsToken(claims), nil
}
