package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hipp-erp/identity/internal/identity/domain"
	"github.com/hipp-erp/identity/internal/identity/store"
	"github.com/hipp-erp/identity/pkg/cryptox"
	"github.com/hipp-erp/identity/pkg/idx"
	"github.com/hipp-erp/identity/pkg/slogx"
)

// Workflow token lifetimes used when the service is constructed with zero
// values.
const (
	DefaultResetTokenTTL = time.Hour
	DefaultEmailTokenTTL = 24 * time.Hour
)

// Notifier delivers workflow tokens to the user out of band (mail, SMS).
// Delivery is an external collaborator; the engine only hands over the
// plaintext token, which it never stores.
type Notifier interface {
	PasswordResetRequested(ctx context.Context, email, token string) error
	EmailChangeRequested(ctx context.Context, newEmail, token string) error
}

// NoopNotifier discards notifications. Useful default for tests and
// deployments that poll tokens elsewhere.
type NoopNotifier struct{}

func (NoopNotifier) PasswordResetRequested(context.Context, string, string) error { return nil }
func (NoopNotifier) EmailChangeRequested(context.Context, string, string) error   { return nil }

// CreateUserInput carries everything needed to provision an account.
type CreateUserInput struct {
	Email     string `validate:"required,email"`
	Password  string `validate:"required,min=8"`
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Phone     string `validate:"omitempty,min=6"`
	Role      string `validate:"required"`
}

// UserService drives the account lifecycle: creation, profile and credential
// changes, reset and email-change workflows, soft/hard deletion and search.
type UserService struct {
	Store    store.Store
	Roles    *RoleService
	Activity *ActivityService
	Notifier Notifier

	ResetTokenTTL time.Duration
	EmailTokenTTL time.Duration

	validate *validator.Validate
}

// NewUserService wires the lifecycle service. notifier may be nil.
func NewUserService(st store.Store, roles *RoleService, activity *ActivityService, notifier Notifier) *UserService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &UserService{
		Store:         st,
		Roles:         roles,
		Activity:      activity,
		Notifier:      notifier,
		ResetTokenTTL: DefaultResetTokenTTL,
		EmailTokenTTL: DefaultEmailTokenTTL,
		validate:      validator.New(),
	}
}

// CreateUser validates input, creates the credential record and binds the
// role in one transaction: a role-binding failure rolls the account back so
// no user ever exists without exactly one role. Rejections come back as a
// ValidationError aggregating every reason.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (domain.View, error) {
	reasons := s.validateInput(in)

	role, ok := domain.ParseRole(in.Role)
	if in.Role != "" && !ok {
		reasons = append(reasons, fmt.Sprintf("unknown role %q", in.Role))
	}
	if len(reasons) > 0 {
		return domain.View{}, &ValidationError{Reasons: reasons}
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.View{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return bindRole(ctx, tx, user.ID, role)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.View{}, &ValidationError{Reasons: []string{"email is already in use"}}
		}
		return domain.View{}, err
	}

	s.Activity.Record(ctx, user.ID, domain.ActionUserCreated,
		"Account created with role "+string(role))

	view := domain.NewView(user)
	view.Role = string(role)
	return view, nil
}

// GetByID returns the user view with the role resolved fresh from storage.
func (s *UserService) GetByID(ctx context.Context, userID string) (domain.View, error) {
	user, err := s.Store.Users().GetByID(ctx, userID)
	if err != nil {
		return domain.View{}, err
	}
	return s.withRole(ctx, user)
}

// GetByEmail matches case-insensitively.
func (s *UserService) GetByEmail(ctx context.Context, email string) (domain.View, error) {
	user, err := s.Store.Users().GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return domain.View{}, err
	}
	return s.withRole(ctx, user)
}

// UpdateProfile replaces name and phone in a single statement; there is no
// partial application. store.ErrNotFound when the user is gone.
func (s *UserService) UpdateProfile(ctx context.Context, userID, firstName, lastName, phone string) error {
	if err := s.Store.Users().UpdateProfile(ctx, userID, firstName, lastName, phone); err != nil {
		return err
	}
	s.Activity.Record(ctx, userID, domain.ActionProfileUpdated, "Profile details updated")
	return nil
}

// ChangePassword rehashes and stores the new password. Live tokens stay
// valid until natural expiry; there is no revocation store.
func (s *UserService) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if len(newPassword) < 8 {
		return &ValidationError{Reasons: []string{"password must be at least 8 characters"}}
	}
	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	s.Activity.Record(ctx, userID, domain.ActionPasswordChanged, "Password was changed")
	return nil
}

// InitiatePasswordReset always reports success so callers cannot learn
// whether an email is registered. When the account exists a fresh token is
// generated, its fingerprint stored (superseding any previous one) and the
// plaintext handed to the notifier. Internal failures are logged, not
// surfaced.
func (s *UserService) InitiatePasswordReset(ctx context.Context, email string) {
	l := slogx.FromContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.Error("password reset lookup failed", slog.Any("error", err))
		}
		return
	}

	token := uuid.NewString()
	expires := time.Now().UTC().Add(s.ResetTokenTTL)
	if err := s.Store.Users().SetResetToken(ctx, user.ID, cryptox.Fingerprint(token), expires); err != nil {
		l.Error("password reset token store failed", slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}

	if err := s.Notifier.PasswordResetRequested(ctx, user.Email, token); err != nil {
		l.Warn("password reset notification failed", slog.String("user_id", user.ID), slog.Any("error", err))
	}
}

// ResetPassword completes the reset flow. The presented token must match the
// stored fingerprint and be unexpired; any mismatch is ErrUnauthorized with
// no further detail.
func (s *UserService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	user, err := s.Store.Users().GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}

	if user.ResetTokenHash == nil || user.ResetTokenExpires == nil ||
		time.Now().UTC().After(*user.ResetTokenExpires) ||
		!cryptox.FingerprintMatches(token, *user.ResetTokenHash) {
		return ErrUnauthorized
	}

	if len(newPassword) < 8 {
		return &ValidationError{Reasons: []string{"password must be at least 8 characters"}}
	}
	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return err
		}
		return tx.Users().ClearResetToken(ctx, user.ID)
	})
	if err != nil {
		return err
	}

	s.Activity.Record(ctx, user.ID, domain.ActionPasswordReset,
		"Password was reset using reset token")
	return nil
}

// InitiateEmailChange stages newEmail without touching the login email. A
// fresh verification token supersedes any earlier pending change.
func (s *UserService) InitiateEmailChange(ctx context.Context, userID, newEmail string) error {
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if err := s.validate.Var(newEmail, "required,email"); err != nil {
		return &ValidationError{Reasons: []string{"new email address is invalid"}}
	}

	if _, err := s.Store.Users().GetByID(ctx, userID); err != nil {
		return err
	}

	// Early duplicate check; the unique index re-checks at confirm time.
	if other, err := s.Store.Users().GetByEmail(ctx, newEmail); err == nil && other.ID != userID {
		return &ValidationError{Reasons: []string{"email is already in use"}}
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	token := uuid.NewString()
	expires := time.Now().UTC().Add(s.EmailTokenTTL)
	if err := s.Store.Users().SetPendingEmail(ctx, userID, newEmail,
		cryptox.Fingerprint(token), expires); err != nil {
		return err
	}

	if err := s.Notifier.EmailChangeRequested(ctx, newEmail, token); err != nil {
		slogx.FromContext(ctx).Warn("email change notification failed",
			slog.String("user_id", userID), slog.Any("error", err))
	}
	return nil
}

// ConfirmEmailChange validates the verification token and commits the staged
// email as the login email. Mismatched or expired tokens are ErrUnauthorized;
// a meanwhile-taken email is a ValidationError.
func (s *UserService) ConfirmEmailChange(ctx context.Context, userID, token string) error {
	user, err := s.Store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.PendingEmail == nil || user.EmailTokenHash == nil || user.EmailTokenExpires == nil ||
		time.Now().UTC().After(*user.EmailTokenExpires) ||
		!cryptox.FingerprintMatches(token, *user.EmailTokenHash) {
		return ErrUnauthorized
	}

	if err := s.Store.Users().CommitPendingEmail(ctx, userID); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return &ValidationError{Reasons: []string{"email is already in use"}}
		}
		return err
	}

	s.Activity.Record(ctx, userID, domain.ActionEmailChanged,
		"Email changed to "+*user.PendingEmail)
	return nil
}

// SoftDelete marks the account deleted and inactive. The row stays readable
// and listable; only authentication is cut off.
func (s *UserService) SoftDelete(ctx context.Context, userID, deletedBy string) error {
	if err := s.Store.Users().SoftDelete(ctx, userID, deletedBy, time.Now().UTC()); err != nil {
		return err
	}
	s.Activity.Record(ctx, userID, domain.ActionUserSoftDeleted,
		"Account soft-deleted by "+deletedBy)
	return nil
}

// HardDelete permanently removes the account. Role memberships, profile
// records and the user's audit rows cascade away with it. Irreversible.
func (s *UserService) HardDelete(ctx context.Context, userID string) error {
	return s.Store.Users().Delete(ctx, userID)
}

// SearchResult is one page of a user search.
type SearchResult struct {
	Users []domain.View `json:"users"`
	Total int           `json:"total"`
}

// Search pages accounts matching term (substring over names and email), an
// optional role and an optional deletion filter. Ordering is creation time
// then id ascending, stable for a fixed filter set.
func (s *UserService) Search(ctx context.Context, term, roleName string, deleted *bool, page, pageSize int) (SearchResult, error) {
	q := store.UserSearch{Term: term, Deleted: deleted, Page: page, PageSize: pageSize}
	if roleName != "" {
		role, ok := domain.ParseRole(roleName)
		if !ok {
			return SearchResult{}, &ValidationError{Reasons: []string{fmt.Sprintf("unknown role %q", roleName)}}
		}
		q.Role = role
	}

	users, total, err := s.Store.Users().Search(ctx, q)
	if err != nil {
		return SearchResult{}, err
	}

	result := SearchResult{Total: total, Users: make([]domain.View, 0, len(users))}
	for _, u := range users {
		view, err := s.withRole(ctx, u)
		if err != nil {
			return SearchResult{}, err
		}
		result.Users = append(result.Users, view)
	}
	return result, nil
}

func (s *UserService) withRole(ctx context.Context, u domain.User) (domain.View, error) {
	view := domain.NewView(u)
	role, ok, err := s.Roles.GetRole(ctx, u.ID)
	if err != nil {
		return domain.View{}, err
	}
	if ok {
		view.Role = string(role)
	}
	return view, nil
}

func (s *UserService) validateInput(in CreateUserInput) []string {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verr validator.ValidationErrors
	if !errors.As(err, &verr) {
		return []string{err.Error()}
	}

	reasons := make([]string, 0, len(verr))
	for _, fe := range verr {
		switch fe.Tag() {
		case "required":
			reasons = append(reasons, strings.ToLower(fe.Field())+" is required")
		case "email":
			reasons = append(reasons, "email address is invalid")
		case "min":
			reasons = append(reasons, fmt.Sprintf("%s must be at least %s characters",
				strings.ToLower(fe.Field()), fe.Param()))
		default:
			reasons = append(reasons, fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field())))
		}
	}
	return reasons
}
