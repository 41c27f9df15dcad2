// Package auth verifies the bearer tokens that identify learners. Tokens are
// issued by an external identity provider sharing an HS256 secret; the
// subject claim carries the user's UUID.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService issues and verifies access tokens.
type JWTService interface {
	// GenerateToken creates a signed token for userID valid for lifetime.
	// The server never calls it; it serves local tooling and tests.
	GenerateToken(ctx context.Context, userID uuid.UUID, lifetime time.Duration) (string, error)

	// ValidateToken verifies tokenString and extracts its claims.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims are the verified contents of a token.
type Claims struct {
	// UserID is parsed from the subject claim.
	UserID    uuid.UUID `json:"sub"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
