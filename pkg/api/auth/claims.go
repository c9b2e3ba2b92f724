// Package auth provides JWT authentication for the labauth admin API.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents JWT claims for admin API access.
type Claims struct {
	jwt.RegisteredClaims

	// Login is the human-readable login name.
	Login string `json:"login"`

	// Role is the caller's role ("admin" or "operator").
	Role string `json:"role"`
}

// IsAdmin returns true if the caller has the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == "admin"
}
