package tokens

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissing   = errors.New("token missing")
	ErrMalformed = errors.New("token malformed")
)

// Claims are the three fields the client reads from a session token.
// They are trusted but NOT verified: signature checks happen server-side.
type Claims struct {
	Subject   string
	Role      models.Role
	UserID    int64
	HasUserID bool
	ExpiresAt time.Time // zero when the token carries no exp
}

// Valid reports whether the token has an expiry later than now.
// A token without exp is never valid.
func (c *Claims) Valid(now time.Time) bool {
	if c == nil || c.ExpiresAt.IsZero() {
		return false
	}
	return c.ExpiresAt.After(now)
}

var unverified = jwt.NewParser(jwt.WithJSONNumber())

// Decode reads the payload of raw without checking its signature.
func Decode(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissing
	}
	mc := jwt.MapClaims{}
	if _, _, err := unverified.ParseUnverified(raw, mc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	c := &Claims{}
	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: exp: %v", ErrMalformed, err)
	}
	if exp != nil {
		c.ExpiresAt = exp.Time
	}
	c.Subject, _ = mc.GetSubject()
	if r, ok := mc["role"].(string); ok {
		c.Role = models.Role(r)
	}
	for _, k := range []string{"user_id", "id", "sub"} {
		if id, ok := numericClaim(mc[k]); ok {
			c.UserID, c.HasUserID = id, true
			break
		}
	}
	return c, nil
}

func numericClaim(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case float64:
		return int64(n), true
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}
