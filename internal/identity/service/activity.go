package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/hipp-erp/identity/internal/identity/domain"
	"github.com/hipp-erp/identity/internal/identity/store"
	"github.com/hipp-erp/identity/pkg/idx"
	"github.com/hipp-erp/identity/pkg/slogx"
)

// ActivityService owns the append-only audit trail.
type ActivityService struct {
	Store store.Store
}

// Log appends one entry. Origin identifies the caller; pass
// domain.OriginSystem for engine-internal actions.
func (s *ActivityService) Log(ctx context.Context, userID, action, description, origin string, details *string) error {
	if origin == "" {
		origin = domain.OriginSystem
	}
	return s.Store.Activity().Append(ctx, domain.ActivityEntry{
		ID:          idx.New().String(),
		UserID:      userID,
		Action:      action,
		Description: description,
		Origin:      origin,
		Details:     details,
		CreatedAt:   time.Now().UTC(),
	})
}

// Record is the best-effort variant used after a primary operation already
// succeeded: a logging failure is logged and swallowed, never propagated, so
// it cannot unwind a successful login or account change.
func (s *ActivityService) Record(ctx context.Context, userID, action, description string) {
	if err := s.Log(ctx, userID, action, description, domain.OriginSystem, nil); err != nil {
		slogx.FromContext(ctx).Warn("activity log append failed",
			slog.String("user_id", userID),
			slog.String("action", action),
			slog.Any("error", err),
		)
	}
}

// List pages the trail newest-first, optionally narrowed by user and time
// window, and returns the total match count.
func (s *ActivityService) List(ctx context.Context, f store.ActivityFilter) ([]domain.ActivityEntry, int, error) {
	return s.Store.Activity().List(ctx, f)
}

// ClearOldLogs purges entries older than keepFor and reports how many rows
// were removed. This is the only delete path for the trail.
func (s *ActivityService) ClearOldLogs(ctx context.Context, keepFor time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-keepFor)
	return s.Store.Activity().DeleteOlderThan(ctx, cutoff)
}
