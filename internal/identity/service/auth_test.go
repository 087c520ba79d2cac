package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hipp-erp/identity/internal/identity/domain"
	"github.com/hipp-erp/identity/internal/identity/store"
)

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svcs := newTestServices(t)

	created := svcs.createUser(t, "alice@example.com", "correct-horse-battery", domain.RoleMenaxher)

	t.Run("valid credentials issue a token", func(t *testing.T) {
		token, view, err := svcs.auth.Login(ctx, "alice@example.com", "correct-horse-battery")
		require.NoError(t, err)
		require.NotEmpty(t, token)
		require.Equal(t, created.ID, view.ID)
		require.Equal(t, string(domain.RoleMenaxher), view.Role)

		require.True(t, svcs.auth.ValidateToken(token))

		subject, err := svcs.tokens.Subject(token)
		require.NoError(t, err)
		require.Equal(t, created.ID, subject)
	})

	t.Run("email is case-insensitive", func(t *testing.T) {
		_, view, err := svcs.auth.Login(ctx, "  ALICE@Example.COM ", "correct-horse-battery")
		require.NoError(t, err)
		require.Equal(t, created.ID, view.ID)
	})

	t.Run("login updates last_login and appends audit entry", func(t *testing.T) {
		user, err := svcs.store.Users().GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, user.LastLogin)

		entries, _, err := svcs.activity.List(ctx, store.ActivityFilter{UserID: created.ID})
		require.NoError(t, err)

		var found bool
		for _, e := range entries {
			if e.Action == domain.ActionLogin {
				found = true
			}
		}
		require.True(t, found)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		_, _, err := svcs.auth.Login(ctx, "alice@example.com", "wrong-password")
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("unknown email is unauthorized, not not-found", func(t *testing.T) {
		_, _, err := svcs.auth.Login(ctx, "nobody@example.com", "whatever-pass")
		require.ErrorIs(t, err, ErrUnauthorized)
		require.NotErrorIs(t, err, store.ErrNotFound)
	})
}

func TestLoginRejectsSoftDeletedAccount(t *testing.T) {
	ctx := context.Background()
	svcs := newTestServices(t)

	created := svcs.createUser(t, "gone@example.com", "correct-horse-battery", domain.RoleShofer)
	require.NoError(t, svcs.users.SoftDelete(ctx, created.ID, "admin-1"))

	_, _, err := svcs.auth.Login(ctx, "gone@example.com", "correct-horse-battery")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestLoginRejectsUserWithoutRole(t *testing.T) {
	ctx := context.Background()
	svcs := newTestServices(t)

	created := svcs.createUser(t, "bare@example.com", "correct-horse-battery", domain.RoleEtiketues)
	require.NoError(t, svcs.store.Roles().ClearUserRoles(ctx, created.ID))

	_, _, err := svcs.auth.Login(ctx, "bare@example.com", "correct-horse-battery")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestLoginThrottle(t *testing.T) {
	ctx := context.Background()
	svcs := newTestServices(t)

	svcs.createUser(t, "throttled@example.com", "correct-horse-battery", domain.RoleKomercialist)

	// Burst of 2 and effectively no refill within the test.
	svcs.auth.LoginRate = 1.0 / 3600.0
	svcs.auth.LoginBurst = 2

	for i := 0; i < 2; i++ {
		_, _, err := svcs.auth.Login(ctx, "throttled@example.com", "bad-password-here")
		require.ErrorIs(t, err, ErrUnauthorized)
	}

	// Third attempt is throttled even with the correct password.
	_, _, err := svcs.auth.Login(ctx, "throttled@example.com", "correct-horse-battery")
	require.ErrorIs(t, err, ErrUnauthorized)

	// The throttle is per email: other accounts are unaffected.
	svcs.createUser(t, "other@example.com", "correct-horse-battery", domain.RoleShofer)
	_, _, err = svcs.auth.Login(ctx, "other@example.com", "correct-horse-battery")
	require.NoError(t, err)
}

func TestGetUserByToken(t *testing.T) {
	ctx := context.Background()
	svcs := newTestServices(t)

	created := svcs.createUser(t, "carol@example.com", "correct-horse-battery", domain.RoleMenaxher)

	token, _, err := svcs.auth.Login(ctx, "carol@example.com", "correct-horse-battery")
	require.NoError(t, err)

	t.Run("resolves the bearer", func(t *testing.T) {
		view, err := svcs.auth.GetUserByToken(ctx, token)
		require.NoError(t, err)
		require.Equal(t, created.ID, view.ID)
		require.Equal(t, "carol@example.com", view.Email)
	})

	t.Run("role is read fresh, not from the claim", func(t *testing.T) {
		require.NoError(t, svcs.roles.AssignRole(ctx, created.ID, string(domain.RoleShofer)))

		view, err := svcs.auth.GetUserByToken(ctx, token)
		require.NoError(t, err)
		require.Equal(t, string(domain.RoleShofer), view.Role)

		// The embedded claim still carries the role at issuance.
		claimRole, err := svcs.tokens.Role(token)
		require.NoError(t, err)
		require.Equal(t, string(domain.RoleMenaxher), claimRole)
	})

	t.Run("invalid token is unauthorized", func(t *testing.T) {
		_, err := svcs.auth.GetUserByToken(ctx, "garbage-token")
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("token for a hard-deleted user fails", func(t *testing.T) {
		victim := svcs.createUser(t, "victim@example.com", "correct-horse-battery", domain.RoleShofer)
		vToken, _, err := svcs.auth.Login(ctx, "victim@example.com", "correct-horse-battery")
		require.NoError(t, err)

		require.NoError(t, svcs.users.HardDelete(ctx, victim.ID))

		_, err = svcs.auth.GetUserByToken(ctx, vToken)
		require.Error(t, err)
	})
}

func TestTokenLifetimeConfigured(t *testing.T) {
	t.Parallel()

	tokens, err := NewTokenService(testSecret, "identity-test", "hipp-erp", 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, tokens.TTL())
}
