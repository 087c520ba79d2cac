// Package jwtx wraps github.com/golang-jwt/jwt/v5 with the claim shape and
// the single-key HS256 codec used by the identity core.
package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the access-token claims. Tokens are self-contained: subject,
// email and role travel with the token so no session store is needed.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the authenticated user at issuance time.
	Email string `json:"email,omitempty"`

	// Role held by the user at issuance time. Authorization decisions that
	// must survive mid-token role changes re-read the role from storage
	// instead of trusting this claim.
	Role string `json:"role,omitempty"`
}

// NewClaims builds claims for subject with a fresh jti. The jti is carried so
// a revocation list can be added later without changing the token shape.
func NewClaims(subject, email, role, issuer, audience string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Email: email,
		Role:  role,
	}
}
