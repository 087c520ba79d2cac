package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrConfig reports missing codec configuration. Surfaced once at
	// startup, never per request.
	ErrConfig = errors.New("jwtx: secret, issuer and audience are required")

	// ErrInvalidToken covers every verification failure: malformed input,
	// wrong signature, wrong issuer or audience, expired or not yet valid.
	// Callers are deliberately not told which one it was.
	ErrInvalidToken = errors.New("jwtx: invalid token")
)

// HS256 signs and verifies tokens with a single symmetric secret.
type HS256 struct {
	secret   []byte
	issuer   string
	audience string
	parser   *jwt.Parser
}

// NewHS256 builds the codec, failing fast when any security parameter is
// unset. Verification enforces issuer, audience and lifetime with zero
// clock-skew leeway.
func NewHS256(secret, issuer, audience string) (*HS256, error) {
	if secret == "" || issuer == "" || audience == "" {
		return nil, ErrConfig
	}
	return &HS256{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Sign serializes claims into a signed compact JWT.
func (c *HS256) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks the signature, issuer, audience and lifetime of token and
// returns its claims. Every failure mode collapses to ErrInvalidToken.
func (c *HS256) Verify(token string) (Claims, error) {
	var claims Claims
	parsed, err := c.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Peek decodes the claims without verifying the signature. Only call it on
// tokens that already passed Verify.
func (c *HS256) Peek(token string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
