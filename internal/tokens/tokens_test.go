package tokens

import (
	"encoding/base64"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-32-bytes-should-be-long-enough"

// unsigned builds a token the client can decode; the signature is garbage on purpose.
func unsigned(t *testing.T, payload string) string {
	t.Helper()
	return seg(`{"alg":"HS256","typ":"JWT"}`) + "." + seg(payload) + ".c2lnbmF0dXJl"
}

func TestIssue_DecodeRoundTrip(t *testing.T) {
	u := &models.User{ID: 42, Name: "Ana", Email: "ana@example.com", Role: models.RoleAdmin}
	raw, err := Issue(secret, u, time.Hour)
	require.NoError(t, err)

	c, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, c.Role)
	require.True(t, c.HasUserID)
	require.Equal(t, int64(42), c.UserID)
	require.True(t, c.Valid(time.Now()))
	require.WithinDuration(t, time.Now().Add(time.Hour), c.ExpiresAt, 2*time.Second)
}

func TestIssue_RequiresSecret(t *testing.T) {
	_, err := Issue("", &models.User{ID: 1}, time.Minute)
	require.Error(t, err)
}

func TestDecode_IgnoresSignature(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	raw := unsigned(t, `{"exp":`+itoa(exp)+`,"role":"super_admin","id":"7"}`)

	c, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, models.RoleSuperAdmin, c.Role)
	require.Equal(t, int64(7), c.UserID)
	require.True(t, c.Valid(time.Now()))
}

func TestDecode_UserIDFallbacks(t *testing.T) {
	c, err := Decode(unsigned(t, `{"sub":"19"}`))
	require.NoError(t, err)
	require.True(t, c.HasUserID)
	require.Equal(t, int64(19), c.UserID)

	c, err = Decode(unsigned(t, `{"sub":"google-oauth-abc"}`))
	require.NoError(t, err)
	require.False(t, c.HasUserID)

	c, err = Decode(unsigned(t, `{"user_id":3,"id":4,"sub":"5"}`))
	require.NoError(t, err)
	require.Equal(t, int64(3), c.UserID)
}

func TestDecode_Expired(t *testing.T) {
	exp := time.Now().Add(-time.Hour).Unix()
	c, err := Decode(unsigned(t, `{"exp":`+itoa(exp)+`,"role":"user"}`))
	require.NoError(t, err)
	require.False(t, c.Valid(time.Now()))
}

func TestDecode_NoExpIsNeverValid(t *testing.T) {
	c, err := Decode(unsigned(t, `{"role":"admin"}`))
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, c.Role)
	require.False(t, c.Valid(time.Now()))
}

func TestDecode_Malformed(t *testing.T) {
	for _, raw := range []string{
		"not-a-jwt",
		"a.b",
		"a.b.c",
		unsigned(t, `not json`),
		unsigned(t, `{"exp":"tomorrow"}`),
	} {
		_, err := Decode(raw)
		require.ErrorIs(t, err, ErrMalformed, raw)
	}
	_, err := Decode("   ")
	require.ErrorIs(t, err, ErrMissing)
}

func TestVerify_WrongSecretFails(t *testing.T) {
	raw, err := Issue(secret, &models.User{ID: 3, Role: models.RoleUser}, time.Minute)
	require.NoError(t, err)

	_, err = Verify("different-secret-xxxxxxxxxxxxxxxx", raw)
	require.Error(t, err)

	c, err := Verify(secret, raw)
	require.NoError(t, err)
	require.Equal(t, int64(3), c.UserID)
}

func TestVerify_TamperedPayload(t *testing.T) {
	raw, err := Issue(secret, &models.User{ID: 5, Role: models.RoleUser}, 5*time.Minute)
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	parts[1] = seg(strings.Replace(string(payload), `"user"`, `"admin"`, 1))
	tampered := strings.Join(parts, ".")

	_, err = Verify(secret, tampered)
	require.Error(t, err)

	// the client still decodes it: decode is not a security boundary
	c, err := Decode(tampered)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, c.Role)
}

func TestVerify_AlgNoneRejected(t *testing.T) {
	tok := seg(`{"alg":"none"}`) + "." + seg(`{"user_id":1,"exp":9999999999}`) + "."
	_, err := Verify(secret, tok)
	require.Error(t, err)
}

func seg(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
