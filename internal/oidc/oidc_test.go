package oidc

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeIDToken(payload string) string {
	enc := base64.RawURLEncoding.EncodeToString
	return enc([]byte(`{"alg":"RS256","typ":"JWT"}`)) + "." + enc([]byte(payload)) + ".c2ln"
}

func TestProfile_InsecureVerifier(t *testing.T) {
	raw := fakeIDToken(`{"sub":"g-1","email":"ana@example.com","email_verified":true,"name":"Ana","picture":"https://img/a.png"}`)
	p, err := Profile(context.Background(), NewInsecureVerifier(), raw)
	require.NoError(t, err)
	assert.Equal(t, "g-1", p.Sub)
	assert.Equal(t, "ana@example.com", p.Email)
	assert.Equal(t, "Ana", p.Name)
	assert.Equal(t, "https://img/a.png", p.Picture)
}

func TestProfile_UnverifiedEmailDropped(t *testing.T) {
	raw := fakeIDToken(`{"sub":"g-2","email":"x@example.com","email_verified":false}`)
	p, err := Profile(context.Background(), NewInsecureVerifier(), raw)
	require.NoError(t, err)
	assert.Equal(t, "g-2", p.Sub)
	assert.Empty(t, p.Email)
}

func TestInsecureVerifier_Malformed(t *testing.T) {
	_, err := NewInsecureVerifier().Verify(context.Background(), "not-a-jwt")
	assert.Error(t, err)
}

func TestInsecureVerifier_RejectsExpired(t *testing.T) {
	v := NewInsecureVerifier()
	v.now = func() time.Time { return time.Unix(2000, 0) }

	_, err := v.Verify(context.Background(), fakeIDToken(`{"sub":"g-3","exp":1000}`))
	require.ErrorIs(t, err, ErrTokenExpired)

	tok, err := v.Verify(context.Background(), fakeIDToken(`{"sub":"g-3","exp":3000}`))
	require.NoError(t, err)
	var c googleClaims
	require.NoError(t, tok.Claims(&c))
	assert.Equal(t, "g-3", c.Sub)
}
