package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hipp-erp/identity/internal/identity/domain"
	"github.com/hipp-erp/identity/internal/identity/store"
	"github.com/hipp-erp/identity/pkg/cryptox"
	"github.com/hipp-erp/identity/pkg/slogx"
)

// Default login throttle: a handful of attempts, refilling slowly.
const (
	DefaultLoginRate  = rate.Limit(1.0 / 10.0) // one attempt per 10s sustained
	DefaultLoginBurst = 5
)

// AuthService verifies credentials, orchestrates token issuance and
// authorizes token-bearing requests.
type AuthService struct {
	Store    store.Store
	Tokens   *TokenService
	Roles    *RoleService
	Activity *ActivityService

	// LoginRate/LoginBurst throttle attempts per email. Zero values fall
	// back to the defaults above.
	LoginRate  rate.Limit
	LoginBurst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Login verifies the email/password pair and issues a token. Every failure
// mode (unknown email, wrong password, throttled, inactive or soft-deleted
// account, no assigned role) returns the same ErrUnauthorized.
//
// On success the last-login update and the "Login" audit entry are applied
// best-effort before token issuance; neither can fail the login.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, domain.View, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	l := slogx.FromContext(ctx)

	if !s.allow(email) {
		l.Warn("login throttled", slog.String("email", email))
		return "", domain.View{}, ErrUnauthorized
	}

	user, err := s.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", domain.View{}, ErrUnauthorized
		}
		return "", domain.View{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("login failed", slog.String("user_id", user.ID))
		return "", domain.View{}, ErrUnauthorized
	}

	// Soft-deleted and deactivated accounts cannot authenticate.
	if !user.IsActive || user.DeletedAt != nil {
		l.Info("login rejected for inactive account", slog.String("user_id", user.ID))
		return "", domain.View{}, ErrUnauthorized
	}

	role, ok, err := s.Roles.GetRole(ctx, user.ID)
	if err != nil {
		return "", domain.View{}, err
	}
	if !ok {
		l.Warn("login rejected: no assigned role", slog.String("user_id", user.ID))
		return "", domain.View{}, ErrUnauthorized
	}

	// Best-effort side effects, deliberately before issuance.
	if err := s.Store.Users().UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		l.Warn("last-login update failed", slog.String("user_id", user.ID), slog.Any("error", err))
	}
	s.Activity.Record(ctx, user.ID, domain.ActionLogin, "User logged in successfully")

	token, err := s.Tokens.Issue(user.ID, user.Email, role)
	if err != nil {
		return "", domain.View{}, err
	}

	view := domain.NewView(user)
	view.Role = string(role)
	return token, view, nil
}

// ValidateToken reports whether token is genuine and unexpired.
func (s *AuthService) ValidateToken(token string) bool {
	return s.Tokens.Validate(token)
}

// GetUserByToken resolves the token's subject to a fresh user view. The role
// is re-read from storage rather than trusted from the token, so revoking a
// role takes effect immediately even against live tokens.
func (s *AuthService) GetUserByToken(ctx context.Context, token string) (domain.View, error) {
	if !s.Tokens.Validate(token) {
		return domain.View{}, ErrUnauthorized
	}

	subject, err := s.Tokens.Subject(token)
	if err != nil {
		return domain.View{}, ErrUnauthorized
	}

	user, err := s.Store.Users().GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.View{}, ErrUnauthorized
		}
		return domain.View{}, err
	}

	view := domain.NewView(user)
	if role, ok, err := s.Roles.GetRole(ctx, user.ID); err != nil {
		return domain.View{}, err
	} else if ok {
		view.Role = string(role)
	}
	return view, nil
}

func (s *AuthService) allow(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limiters == nil {
		s.limiters = make(map[string]*rate.Limiter)
	}
	lim, ok := s.limiters[email]
	if !ok {
		r := s.LoginRate
		if r == 0 {
			r = DefaultLoginRate
		}
		burst := s.LoginBurst
		if burst == 0 {
			burst = DefaultLoginBurst
		}
		lim = rate.NewLimiter(r, burst)
		s.limiters[email] = lim
	}
	return lim.Allow()
}
