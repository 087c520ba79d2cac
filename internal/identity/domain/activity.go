package domain

import "time"

// Activity action tags. Kept short and stable; reports filter on them.
const (
	ActionLogin           = "Login"
	ActionUserCreated     = "UserCreated"
	ActionProfileUpdated  = "ProfileUpdated"
	ActionPasswordChanged = "PasswordChanged"
	ActionPasswordReset   = "PasswordReset"
	ActionEmailChanged    = "EmailChanged"
	ActionUserSoftDeleted = "UserSoftDeleted"
	ActionRoleAssigned    = "RoleAssigned"
)

// OriginSystem marks entries produced by the engine itself rather than an
// attributable network caller.
const OriginSystem = "system"

// ActivityEntry is one append-only audit record. Entries are never updated;
// the only delete path is the retention purge.
type ActivityEntry struct {
	ID          string
	UserID      string
	Action      string
	Description string
	Origin      string  // caller address, or OriginSystem
	Details     *string // optional structured extra data (JSON)
	CreatedAt   time.Time
}
