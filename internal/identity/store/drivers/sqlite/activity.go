package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hipp-erp/identity/internal/identity/domain"
	"github.com/hipp-erp/identity/internal/identity/store"
)

type activityRepo struct {
	db querier
}

func (r *activityRepo) Append(ctx context.Context, e domain.ActivityEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_activity_logs (id, user_id, action, description, origin, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Action, e.Description, e.Origin,
		mapOptionalString(e.Details), e.CreatedAt,
	)
	return err
}

func (r *activityRepo) List(ctx context.Context, f store.ActivityFilter) ([]domain.ActivityEntry, int, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		where = append(where, `user_id = ?`)
		args = append(args, f.UserID)
	}
	if f.Start != nil {
		where = append(where, `created_at >= ?`)
		args = append(args, *f.Start)
	}
	if f.End != nil {
		where = append(where, `created_at < ?`)
		args = append(args, *f.End)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_activity_logs`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size < 1 {
		size = 10
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, action, description, origin, details, created_at
		FROM user_activity_logs`+clause+`
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, size, (page-1)*size)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []domain.ActivityEntry
	for rows.Next() {
		var e domain.ActivityEntry
		var details sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Description,
			&e.Origin, &details, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.Details = mapNullStringPtr(details)
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (r *activityRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM user_activity_logs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
