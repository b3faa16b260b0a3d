package tokens

import (
	"errors"
	"strconv"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is what the mock backend signs into access tokens.
type AccessClaims struct {
	UserID int64       `json:"user_id"`
	Role   models.Role `json:"role"`
	Name   string      `json:"name,omitempty"`
	Email  string      `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Issue creates an HS256 access token for the user.
func Issue(secret string, u *models.User, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := AccessClaims{
		UserID: u.ID,
		Role:   u.Role,
		Name:   u.Name,
		Email:  u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Verify checks the signature and expiry of an HS256 access token.
// Only the mock backend calls this; the client never verifies.
func Verify(secret, raw string) (*AccessClaims, error) {
	var c AccessClaims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return &c, nil
}
