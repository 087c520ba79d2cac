package service

import (
	"time"

	"github.com/hipp-erp/identity/internal/identity/domain"
	"github.com/hipp-erp/identity/pkg/jwtx"
)

// DefaultTokenTTL bounds token exposure when no TTL is configured.
const DefaultTokenTTL = time.Hour

// TokenService issues and validates the self-contained HS256 bearer tokens.
// Tokens are never persisted: validity is purely signature plus lifetime at
// the moment of validation.
type TokenService struct {
	codec    *jwtx.HS256
	issuer   string
	audience string
	ttl      time.Duration
}

// NewTokenService builds the codec and fails immediately when the secret,
// issuer or audience is missing. Callers treat that error as fatal at
// startup; it never occurs per request.
func NewTokenService(secret, issuer, audience string, ttl time.Duration) (*TokenService, error) {
	codec, err := jwtx.NewHS256(secret, issuer, audience)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{codec: codec, issuer: issuer, audience: audience, ttl: ttl}, nil
}

// Issue mints a token for the subject with a fresh jti.
func (s *TokenService) Issue(subjectID, email string, role domain.RoleName) (string, error) {
	claims := jwtx.NewClaims(subjectID, email, string(role),
		s.issuer, s.audience, s.ttl, time.Now().UTC())
	return s.codec.Sign(claims)
}

// Validate reports whether token is genuine and inside its lifetime. It
// never returns an error: malformed input, a forged signature and expiry are
// indistinguishable to the caller.
func (s *TokenService) Validate(token string) bool {
	_, err := s.codec.Verify(token)
	return err == nil
}

// Subject reads the subject id from an already-validated token.
func (s *TokenService) Subject(token string) (string, error) {
	claims, err := s.codec.Peek(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Role reads the role claim from an already-validated token. Note this is
// the role at issuance time; authorization that must see revocations reads
// the role from storage instead.
func (s *TokenService) Role(token string) (string, error) {
	claims, err := s.codec.Peek(token)
	if err != nil {
		return "", err
	}
	return claims.Role, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }
