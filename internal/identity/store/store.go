package store

import (
	"context"
	"errors"
	"time"

	"github.com/hipp-erp/identity/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories to keep concerns separated and testable.
type Store interface {
	Users() Users
	Roles() Roles
	Profiles() Profiles
	Activity() Activity

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction: rolled back when fn errors,
	// committed otherwise. Prefer this over Tx for multi-step mutations
	// (role reassignment, user creation with role binding, hard delete).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// UserSearch narrows and pages a user listing. Term matches first name, last
// name and email with a substring match.
type UserSearch struct {
	Term     string
	Role     domain.RoleName // empty = any role
	Deleted  *bool           // nil = both, true = soft-deleted only, false = live only
	Page     int             // 1-based
	PageSize int
}

// ActivityFilter narrows and pages the audit trail listing.
type ActivityFilter struct {
	UserID   string // empty = all users
	Start    *time.Time
	End      *time.Time
	Page     int // 1-based
	PageSize int
}

type Users interface {
	GetByID(ctx context.Context, id string) (domain.User, error)

	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (domain.User, error)

	// Create inserts a new user. Returns ErrAlreadyExists on a duplicate
	// email.
	Create(ctx context.Context, u domain.User) error

	// UpdateProfile replaces name and phone in one statement.
	UpdateProfile(ctx context.Context, id, firstName, lastName, phone string) error

	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// SetResetToken stores a password-reset token fingerprint, replacing any
	// previous one.
	SetResetToken(ctx context.Context, id, fingerprint string, expires time.Time) error
	ClearResetToken(ctx context.Context, id string) error

	// SetPendingEmail stages a two-phase email change.
	SetPendingEmail(ctx context.Context, id, newEmail, fingerprint string, expires time.Time) error

	// CommitPendingEmail promotes the staged email to the login email and
	// clears the pending state. ErrNotFound when nothing is pending,
	// ErrAlreadyExists when the staged email meanwhile collides.
	CommitPendingEmail(ctx context.Context, id string) error
	ClearPendingEmail(ctx context.Context, id string) error

	// SoftDelete marks the row deleted and inactive; the row stays readable.
	SoftDelete(ctx context.Context, id, deletedBy string, at time.Time) error

	// Delete removes the row permanently. Role memberships, profiles and
	// activity rows go with it (per schema cascade).
	Delete(ctx context.Context, id string) error

	// Search returns one page plus the total match count, ordered by
	// created_at then id ascending.
	Search(ctx context.Context, q UserSearch) ([]domain.User, int, error)

	// ClearExpiredWorkflowTokens drops reset and email-verification state
	// whose expiry has passed. Housekeeping.
	ClearExpiredWorkflowTokens(ctx context.Context, now time.Time) error
}

type Roles interface {
	GetByName(ctx context.Context, name domain.RoleName) (domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)

	// UserRoles returns the roles held by a user ordered by role name, so
	// anomalous multi-role states resolve deterministically.
	UserRoles(ctx context.Context, userID string) ([]domain.RoleName, error)

	ClearUserRoles(ctx context.Context, userID string) error
	AddUserRole(ctx context.Context, userID, roleID string) error
}

type Profiles interface {
	// Ensure creates the profile row if absent. Idempotent.
	Ensure(ctx context.Context, p domain.Profile) error

	// DeleteExcept removes every profile of the user other than keep. Pass
	// an empty RoleName to remove them all.
	DeleteExcept(ctx context.Context, userID string, keep domain.RoleName) error

	ByUser(ctx context.Context, userID string) ([]domain.Profile, error)

	// Members lists the profile rows of one role joined with user identity.
	Members(ctx context.Context, role domain.RoleName) ([]domain.ProfileMember, error)
}

type Activity interface {
	// Append inserts one audit entry. Entries are never updated.
	Append(ctx context.Context, e domain.ActivityEntry) error

	// List returns one page newest-first plus the total match count.
	List(ctx context.Context, f ActivityFilter) ([]domain.ActivityEntry, int, error)

	// DeleteOlderThan purges entries created before cutoff and reports how
	// many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
