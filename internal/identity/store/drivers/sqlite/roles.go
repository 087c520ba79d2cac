package sqlite

import (
	"context"

	"github.com/hipp-erp/identity/internal/identity/domain"
)

type rolesRepo struct {
	db querier
}

func (r *rolesRepo) GetByName(ctx context.Context, name domain.RoleName) (domain.Role, error) {
	var role domain.Role
	var n string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM roles WHERE name = ?`, string(name)).
		Scan(&role.ID, &n, &role.CreatedAt)
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	role.Name = domain.RoleName(n)
	return role, nil
}

func (r *rolesRepo) List(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM roles ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		var n string
		if err := rows.Scan(&role.ID, &n, &role.CreatedAt); err != nil {
			return nil, err
		}
		role.Name = domain.RoleName(n)
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// UserRoles is ordered by role name so callers resolving "the" role of a
// user in an anomalous multi-role state always pick the same one.
func (r *rolesRepo) UserRoles(ctx context.Context, userID string) ([]domain.RoleName, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.name FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = ?
		ORDER BY r.name ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []domain.RoleName
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, domain.RoleName(n))
	}
	return names, rows.Err()
}

func (r *rolesRepo) ClearUserRoles(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = ?`, userID)
	return err
}

func (r *rolesRepo) AddUserRole(ctx context.Context, userID, roleID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)
		ON CONFLICT (user_id, role_id) DO NOTHING`,
		userID, roleID)
	return err
}
