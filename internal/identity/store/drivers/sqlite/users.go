package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hipp-erp/identity/internal/identity/domain"
	"github.com/hipp-erp/identity/internal/identity/store"
)

type usersRepo struct {
	db querier
}

const userColumns = `id, email, password_hash, first_name, last_name, phone,
	is_active, deleted_at, deleted_by, created_at, last_modified_at, last_login,
	pending_email, email_token_hash, email_token_expires,
	reset_token_hash, reset_token_expires`

func (r *usersRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	// email column is COLLATE NOCASE; no lowercasing needed here.
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) Create(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone,
		u.IsActive, u.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateProfile(ctx context.Context, id, firstName, lastName, phone string) error {
	return r.exec(ctx, `
		UPDATE users SET first_name = ?, last_name = ?, phone = ?, last_modified_at = ?
		WHERE id = ?`,
		firstName, lastName, phone, time.Now().UTC(), id,
	)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.exec(ctx, `
		UPDATE users SET password_hash = ?, last_modified_at = ? WHERE id = ?`,
		hash, time.Now().UTC(), id,
	)
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at, id)
}

func (r *usersRepo) SetResetToken(ctx context.Context, id, fingerprint string, expires time.Time) error {
	return r.exec(ctx, `
		UPDATE users SET reset_token_hash = ?, reset_token_expires = ? WHERE id = ?`,
		fingerprint, expires, id,
	)
}

func (r *usersRepo) ClearResetToken(ctx context.Context, id string) error {
	return r.exec(ctx, `
		UPDATE users SET reset_token_hash = NULL, reset_token_expires = NULL WHERE id = ?`,
		id,
	)
}

func (r *usersRepo) SetPendingEmail(ctx context.Context, id, newEmail, fingerprint string, expires time.Time) error {
	return r.exec(ctx, `
		UPDATE users SET pending_email = ?, email_token_hash = ?, email_token_expires = ?,
			last_modified_at = ?
		WHERE id = ?`,
		newEmail, fingerprint, expires, time.Now().UTC(), id,
	)
}

func (r *usersRepo) CommitPendingEmail(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET email = pending_email,
			pending_email = NULL, email_token_hash = NULL, email_token_expires = NULL,
			last_modified_at = ?
		WHERE id = ? AND pending_email IS NOT NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRows(res)
}

func (r *usersRepo) ClearPendingEmail(ctx context.Context, id string) error {
	return r.exec(ctx, `
		UPDATE users SET pending_email = NULL, email_token_hash = NULL, email_token_expires = NULL
		WHERE id = ?`,
		id,
	)
}

func (r *usersRepo) SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) error {
	return r.exec(ctx, `
		UPDATE users SET deleted_at = ?, deleted_by = ?, is_active = 0, last_modified_at = ?
		WHERE id = ?`,
		at, deletedBy, at, id,
	)
}

func (r *usersRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRows(res)
}

// Search pages users matching q. Ordering is created_at then id ascending so
// a fixed filter set never duplicates or skips rows across pages.
func (r *usersRepo) Search(ctx context.Context, q store.UserSearch) ([]domain.User, int, error) {
	var (
		where []string
		args  []any
	)

	if term := strings.TrimSpace(q.Term); term != "" {
		like := "%" + term + "%"
		where = append(where, `(first_name LIKE ? OR last_name LIKE ? OR email LIKE ?)`)
		args = append(args, like, like, like)
	}
	if q.Role != "" {
		where = append(where, `id IN (
			SELECT ur.user_id FROM user_roles ur
			JOIN roles r ON r.id = ur.role_id
			WHERE r.name = ?)`)
		args = append(args, string(q.Role))
	}
	if q.Deleted != nil {
		if *q.Deleted {
			where = append(where, `deleted_at IS NOT NULL`)
		} else {
			where = append(where, `deleted_at IS NULL`)
		}
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size < 1 {
		size = 10
	}

	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`,
			userColumns, clause),
		append(args, size, (page-1)*size)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *usersRepo) ClearExpiredWorkflowTokens(ctx context.Context, now time.Time) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE users SET reset_token_hash = NULL, reset_token_expires = NULL
		WHERE reset_token_expires IS NOT NULL AND reset_token_expires < ?`, now); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET pending_email = NULL, email_token_hash = NULL, email_token_expires = NULL
		WHERE email_token_expires IS NOT NULL AND email_token_expires < ?`, now)
	return err
}

func (r *usersRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireRows(res)
}

// requireRows maps "no row touched" to ErrNotFound so update paths report
// missing users uniformly.
func requireRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u          domain.User
		deletedAt  sql.NullTime
		deletedBy  sql.NullString
		modifiedAt sql.NullTime
		lastLogin  sql.NullTime
		pending    sql.NullString
		emailHash  sql.NullString
		emailExp   sql.NullTime
		resetHash  sql.NullString
		resetExp   sql.NullTime
	)

	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone,
		&u.IsActive, &deletedAt, &deletedBy, &u.CreatedAt, &modifiedAt, &lastLogin,
		&pending, &emailHash, &emailExp, &resetHash, &resetExp,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.DeletedAt = mapNullTimePtr(deletedAt)
	u.DeletedBy = mapNullStringPtr(deletedBy)
	u.LastModifiedAt = mapNullTimePtr(modifiedAt)
	u.LastLogin = mapNullTimePtr(lastLogin)
	u.PendingEmail = mapNullStringPtr(pending)
	u.EmailTokenHash = mapNullStringPtr(emailHash)
	u.EmailTokenExpires = mapNullTimePtr(emailExp)
	u.ResetTokenHash = mapNullStringPtr(resetHash)
	u.ResetTokenExpires = mapNullTimePtr(resetExp)
	return u, nil
}
