package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hipp-erp/identity/internal/identity/domain"
	"github.com/hipp-erp/identity/pkg/idx"
	"github.com/hipp-erp/identity/pkg/jwtx"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	t.Parallel()

	tokens, err := NewTokenService(testSecret, "identity-test", "hipp-erp", time.Minute)
	require.NoError(t, err)

	userID := idx.New().String()
	raw, err := tokens.Issue(userID, "alice@example.com", domain.RoleAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	require.True(t, tokens.Validate(raw))

	subject, err := tokens.Subject(raw)
	require.NoError(t, err)
	require.Equal(t, userID, subject)

	role, err := tokens.Role(raw)
	require.NoError(t, err)
	require.Equal(t, string(domain.RoleAdmin), role)
}

func TestTokenServiceRejectsBadConfig(t *testing.T) {
	t.Parallel()

	t.Run("empty secret", func(t *testing.T) {
		_, err := NewTokenService("", "iss", "aud", time.Minute)
		require.Error(t, err)
	})

	t.Run("empty issuer", func(t *testing.T) {
		_, err := NewTokenService(testSecret, "", "aud", time.Minute)
		require.Error(t, err)
	})

	t.Run("empty audience", func(t *testing.T) {
		_, err := NewTokenService(testSecret, "iss", "", time.Minute)
		require.Error(t, err)
	})
}

func TestTokenServiceValidateFailures(t *testing.T) {
	t.Parallel()

	tokens, err := NewTokenService(testSecret, "identity-test", "hipp-erp", time.Minute)
	require.NoError(t, err)

	t.Run("garbage input", func(t *testing.T) {
		require.False(t, tokens.Validate("not-a-token"))
		require.False(t, tokens.Validate(""))
	})

	t.Run("wrong signing secret", func(t *testing.T) {
		other, err := NewTokenService("another-secret-also-long-enough!", "identity-test", "hipp-erp", time.Minute)
		require.NoError(t, err)

		raw, err := other.Issue(idx.New().String(), "bob@example.com", domain.RoleShofer)
		require.NoError(t, err)
		require.False(t, tokens.Validate(raw))
	})

	t.Run("expired token", func(t *testing.T) {
		codec, err := jwtx.NewHS256(testSecret, "identity-test", "hipp-erp")
		require.NoError(t, err)

		claims := jwtx.NewClaims(idx.New().String(), "carol@example.com", string(domain.RoleMenaxher),
			"identity-test", "hipp-erp", time.Minute, time.Now().Add(-time.Hour))
		raw, err := codec.Sign(claims)
		require.NoError(t, err)
		require.False(t, tokens.Validate(raw))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewTokenService(testSecret, "some-other-service", "hipp-erp", time.Minute)
		require.NoError(t, err)

		raw, err := other.Issue(idx.New().String(), "dave@example.com", domain.RoleAdmin)
		require.NoError(t, err)
		require.False(t, tokens.Validate(raw))
	})

	t.Run("wrong audience", func(t *testing.T) {
		other, err := NewTokenService(testSecret, "identity-test", "someone-else", time.Minute)
		require.NoError(t, err)

		raw, err := other.Issue(idx.New().String(), "erin@example.com", domain.RoleAdmin)
		require.NoError(t, err)
		require.False(t, tokens.Validate(raw))
	})
}

func TestTokenServiceDefaultTTL(t *testing.T) {
	t.Parallel()

	tokens, err := NewTokenService(testSecret, "identity-test", "hipp-erp", 0)
	require.NoError(t, err)
	require.Equal(t, DefaultTokenTTL, tokens.TTL())
}
