package domain

import "time"

// User is the stored credential record. Email is persisted lowercase and is
// unique across all rows that have not been hard-deleted.
type User struct {
	ID           string
	Email        string
	PasswordHash string // argon2id encoded
	FirstName    string
	LastName     string
	Phone        string

	IsActive  bool
	DeletedAt *time.Time // set on soft delete
	DeletedBy *string    // who performed the soft delete

	CreatedAt      time.Time
	LastModifiedAt *time.Time
	LastLogin      *time.Time

	// Pending two-phase email change. The verification token is stored as a
	// fingerprint, never in plaintext.
	PendingEmail      *string
	EmailTokenHash    *string
	EmailTokenExpires *time.Time

	// Pending password reset, same fingerprint treatment.
	ResetTokenHash    *string
	ResetTokenExpires *time.Time
}

// View is the caller-facing projection of a user: no password hash and the
// role resolved fresh from storage.
type View struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Phone     string     `json:"phone,omitempty"`
	Role      string     `json:"role,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// NewView projects u without a role. The role is attached by the caller
// because it lives in the role store, not on the user row.
func NewView(u User) View {
	return View{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
		DeletedAt: u.DeletedAt,
	}
}
