package domain

import (
	"strings"
	"time"
)

// RoleName is one of the five fixed authorization roles. The set is closed:
// role handling switches over these constants, never over free-form strings.
type RoleName string

const (
	RoleAdmin        RoleName = "Admin"
	RoleMenaxher     RoleName = "Menaxher"
	RoleKomercialist RoleName = "Komercialist"
	RoleEtiketues    RoleName = "Etiketues"
	RoleShofer       RoleName = "Shofer"
)

// AllRoles lists every role in lexicographic order of name.
func AllRoles() []RoleName {
	return []RoleName{RoleAdmin, RoleEtiketues, RoleKomercialist, RoleMenaxher, RoleShofer}
}

// ParseRole resolves a case-insensitive role name against the closed set.
func ParseRole(s string) (RoleName, bool) {
	for _, r := range AllRoles() {
		if strings.EqualFold(s, string(r)) {
			return r, true
		}
	}
	return "", false
}

// HasProfile reports whether the role owns a 1:1 profile record per user.
// Admin is a pure authorization role and has none.
func (r RoleName) HasProfile() bool {
	return r != RoleAdmin && r != ""
}

// Role is a stored role catalog entry.
type Role struct {
	ID        string
	Name      RoleName
	CreatedAt time.Time
}

// Profile is the role-specific 1:1 record a non-Admin role owns for a user.
// Invariant: a profile of role R exists iff the user currently holds R.
type Profile struct {
	ID        string
	UserID    string
	Role      RoleName
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// ProfileMember is a profile row joined with its owner's identity fields,
// used for per-role listings.
type ProfileMember struct {
	ProfileID string `json:"profile_id"`
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}
