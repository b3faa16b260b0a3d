// Package resets stores password reset tokens and the per-user token
// revocations that follow a reset.
package resets

import "time"

// Reset is a pending password reset for one email address.
type Reset struct {
	Token     string    `json:"token" bson:"token"`
	Email     string    `json:"email" bson:"email"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expiresAt"`
}
