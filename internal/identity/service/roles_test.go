package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hipp-erp/identity/internal/identity/domain"
	"github.com/hipp-erp/identity/internal/identity/store"
)

func TestListRolesReturnsCatalog(t *testing.T) {
	ctx := context.Background()
	svcs := newTestServices(t)

	roles, err := svcs.roles.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, len(domain.AllRoles()))

	names := make([]domain.RoleName, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	require.Equal(t, domain.AllRoles(), names)
}

func TestAssignRoleSwapsProfile(t *testing.T) {
	ctx := context.Background()
	svcs := newTestServices(t)

	created := svcs.createUser(t, "worker@example.com", "correct-horse-battery", domain.RoleMenaxher)

	profiles, err := svcs.store.Profiles().ByUser(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	require.Equal(t, domain.RoleMenaxher, profiles[0].Role)

	// Moving to another role replaces the profile record, never accumulates.
	require.NoError(t, svcs.roles.AssignRole(ctx, created.ID, "Komercialist"))

	profiles, err = svcs.store.Profiles().ByUser(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	require.Equal(t, domain.RoleKomercialist, profiles[0].Role)

	role, ok, err := svcs.roles.GetRole(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.RoleKomercialist, role)
}

func TestAssignRoleToAdminDropsProfiles(t *testing.T) {
	ctx := context.Background()
	svcs := newTestServices(t)

	created := svcs.createUser(t, "promoted@example.com", "correct-horse-battery", domain.RoleEtiketues)

	require.NoError(t, svcs.roles.AssignRole(ctx, created.ID, string(domain.RoleAdmin)))

	profiles, err := svcs.store.Profiles().ByUser(ctx, created.ID)
	require.NoError(t, err)
	require.Empty(t, profiles)

	role, ok, err := svcs.roles.GetRole(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.RoleAdmin, role)
}

func TestAssignRoleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svcs := newTestServices(t)

	created := svcs.createUser(t, "steady@example.com", "correct-horse-battery", domain.RoleShofer)

	first, err := svcs.store.Profiles().ByUser(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.NoError(t, svcs.roles.AssignRole(ctx, created.ID, string(domain.RoleShofer)))

	second, err := svcs.store.Profiles().ByUser(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, first[0].ID, second[0].ID)
}

func TestAssignRoleErrors(t *testing.T) {
	ctx := context.Background()
	svcs := newTestServices(t)

	created := svcs.createUser(t, "errs@example.com", "correct-horse-battery", domain.RoleShofer)

	t.Run("unknown role name", func(t *testing.T) {
		err := svcs.roles.AssignRole(ctx, created.ID, "Superuser")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unknown user", func(t *testing.T) {
		err := svcs.roles.AssignRole(ctx, "no-such-user", string(domain.RoleShofer))
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("role name matching is case-insensitive", func(t *testing.T) {
		require.NoError(t, svcs.roles.AssignRole(ctx, created.ID, "menaxher"))

		role, ok, err := svcs.roles.GetRole(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, domain.RoleMenaxher, role)
	})
}

func TestListProfiles(t *testing.T) {
	ctx := context.Background()
	svcs := newTestServices(t)

	a := svcs.createUser(t, "driver-a@example.com", "correct-horse-battery", domain.RoleShofer)
	b := svcs.createUser(t, "driver-b@example.com", "correct-horse-battery", domain.RoleShofer)
	svcs.createUser(t, "manager@example.com", "correct-horse-battery", domain.RoleMenaxher)

	t.Run("lists only the role's members", func(t *testing.T) {
		members, err := svcs.roles.ListProfiles(ctx, string(domain.RoleShofer))
		require.NoError(t, err)
		require.Len(t, members, 2)

		ids := []string{members[0].UserID, members[1].UserID}
		require.ElementsMatch(t, []string{a.ID, b.ID}, ids)
	})

	t.Run("admin owns no profiles", func(t *testing.T) {
		_, err := svcs.roles.ListProfiles(ctx, string(domain.RoleAdmin))
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := svcs.roles.ListProfiles(ctx, "Ghost")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
