package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hipp-erp/identity/internal/identity/domain"
)

type profilesRepo struct {
	db querier
}

// profileTables is the closed role-to-table mapping. Admin carries no profile
// and is deliberately absent. Table names never come from caller input.
var profileTables = map[domain.RoleName]string{
	domain.RoleMenaxher:     "menaxher_profiles",
	domain.RoleKomercialist: "komercialist_profiles",
	domain.RoleEtiketues:    "etiketues_profiles",
	domain.RoleShofer:       "shofer_profiles",
}

func profileTable(role domain.RoleName) (string, error) {
	table, ok := profileTables[role]
	if !ok {
		return "", fmt.Errorf("sqlite: role %q has no profile table", role)
	}
	return table, nil
}

// Ensure creates the profile row for p.Role if the user doesn't have one yet.
func (r *profilesRepo) Ensure(ctx context.Context, p domain.Profile) error {
	table, err := profileTable(p.Role)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, user_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING`, table),
		p.ID, p.UserID, p.CreatedAt)
	return err
}

// DeleteExcept removes the user's profile rows in every table except the one
// owned by keep. An empty keep removes them all.
func (r *profilesRepo) DeleteExcept(ctx context.Context, userID string, keep domain.RoleName) error {
	for role, table := range profileTables {
		if role == keep {
			continue
		}
		if _, err := r.db.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE user_id = ?`, table), userID); err != nil {
			return err
		}
	}
	return nil
}

func (r *profilesRepo) ByUser(ctx context.Context, userID string) ([]domain.Profile, error) {
	var profiles []domain.Profile
	// Iterate the closed set in a fixed order for deterministic output.
	for _, role := range domain.AllRoles() {
		table, ok := profileTables[role]
		if !ok {
			continue
		}
		p, err := r.scanOne(ctx, table, role, userID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			profiles = append(profiles, *p)
		}
	}
	return profiles, nil
}

func (r *profilesRepo) scanOne(ctx context.Context, table string, role domain.RoleName, userID string) (*domain.Profile, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, user_id, created_at, updated_at FROM %s WHERE user_id = ?`, table), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	var p domain.Profile
	var updatedAt sql.NullTime
	if err := rows.Scan(&p.ID, &p.UserID, &p.CreatedAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Role = role
	p.UpdatedAt = mapNullTimePtr(updatedAt)
	return &p, nil
}

func (r *profilesRepo) Members(ctx context.Context, role domain.RoleName) ([]domain.ProfileMember, error) {
	table, err := profileTable(role)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT p.id, u.id, u.first_name, u.last_name, u.email
		FROM %s p
		JOIN users u ON u.id = p.user_id
		ORDER BY u.last_name ASC, u.first_name ASC`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.ProfileMember
	for rows.Next() {
		var m domain.ProfileMember
		if err := rows.Scan(&m.ProfileID, &m.UserID, &m.FirstName, &m.LastName, &m.Email); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
