package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hipp-erp/identity/internal/identity/domain"
	"github.com/hipp-erp/identity/internal/identity/store"
	"github.com/hipp-erp/identity/pkg/idx"
)

// RoleService enforces the one-role-per-user invariant and keeps the
// role-specific profile record in sync with role membership.
type RoleService struct {
	Store    store.Store
	Activity *ActivityService
}

// AssignRole makes roleName the user's only role and reconciles profile
// records: the old role's profile is removed and the new role's profile is
// created if absent, all in one transaction. Re-assigning the current role
// is a no-op beyond refreshing membership. Returns store.ErrNotFound when
// the user or the role name does not exist.
func (s *RoleService) AssignRole(ctx context.Context, userID, roleName string) error {
	role, ok := domain.ParseRole(roleName)
	if !ok {
		return fmt.Errorf("role %q: %w", roleName, store.ErrNotFound)
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().GetByID(ctx, userID); err != nil {
			return err
		}
		return bindRole(ctx, tx, userID, role)
	})
	if err != nil {
		return err
	}

	if s.Activity != nil {
		s.Activity.Record(ctx, userID, domain.ActionRoleAssigned,
			"Role changed to "+string(role))
	}
	return nil
}

// bindRole replaces every membership of the user with role and reconciles
// the profile tables. It must run inside a transaction; CreateUser reuses it
// so account creation and role binding commit together.
func bindRole(ctx context.Context, tx store.Tx, userID string, role domain.RoleName) error {
	stored, err := tx.Roles().GetByName(ctx, role)
	if err != nil {
		return err
	}

	if err := tx.Roles().ClearUserRoles(ctx, userID); err != nil {
		return err
	}
	if err := tx.Roles().AddUserRole(ctx, userID, stored.ID); err != nil {
		return err
	}

	keep := domain.RoleName("")
	if role.HasProfile() {
		keep = role
	}
	if err := tx.Profiles().DeleteExcept(ctx, userID, keep); err != nil {
		return err
	}
	if role.HasProfile() {
		return tx.Profiles().Ensure(ctx, domain.Profile{
			ID:        idx.New().String(),
			UserID:    userID,
			Role:      role,
			CreatedAt: time.Now().UTC(),
		})
	}
	return nil
}

// GetRole returns the user's single role. When the user holds no role the
// second return is false. Should a user anomalously hold several roles, the
// lexicographically first is returned rather than an error, because login
// needs a single value.
func (s *RoleService) GetRole(ctx context.Context, userID string) (domain.RoleName, bool, error) {
	names, err := s.Store.Roles().UserRoles(ctx, userID)
	if err != nil {
		return "", false, err
	}
	if len(names) == 0 {
		return "", false, nil
	}
	return names[0], true, nil
}

// ListRoles returns the role catalog.
func (s *RoleService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.Store.Roles().List(ctx)
}

// ListProfiles lists the members of one profile-carrying role with their
// identity fields. store.ErrNotFound for Admin or unknown names, since
// neither owns profiles.
func (s *RoleService) ListProfiles(ctx context.Context, roleName string) ([]domain.ProfileMember, error) {
	role, ok := domain.ParseRole(roleName)
	if !ok || !role.HasProfile() {
		return nil, fmt.Errorf("role %q has no profiles: %w", roleName, store.ErrNotFound)
	}
	return s.Store.Profiles().Members(ctx, role)
}
