package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aiot-hub/aiot/backend/go-client/internal/models"
	"github.com/aiot-hub/aiot/backend/go-client/internal/tokens"
	"github.com/gin-gonic/gin"
)

// ClaimsKey is the gin context key holding *tokens.AccessClaims.
const ClaimsKey = "claims"

// Revocations reports the time before which a user's tokens are no longer accepted.
type Revocations interface {
	RevokedAt(ctx context.Context, userID int64) (time.Time, error)
}

// AuthMiddleware verifies HS256 bearer tokens signed with secret. rev may be nil.
func AuthMiddleware(secret string, rev Revocations) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
			return
		}
		var raw string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &raw); n != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid Authorization header"})
			return
		}

		claims, err := tokens.Verify(secret, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token", "error": err.Error()})
			return
		}

		if rev != nil {
			at, err := rev.RevokedAt(c.Request.Context(), claims.UserID)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "revocation check failed"})
				return
			}
			if !at.IsZero() && (claims.IssuedAt == nil || claims.IssuedAt.Time.Before(at.Truncate(time.Second))) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "token revoked"})
				return
			}
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// Claims returns the verified claims stored by AuthMiddleware.
func Claims(c *gin.Context) (*tokens.AccessClaims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	cl, ok := v.(*tokens.AccessClaims)
	return cl, ok
}

// RequireRole rejects requests whose token role is not in roles. Must run after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := Claims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
			return
		}
		for _, r := range roles {
			if cl.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Forbidden."})
	}
}
