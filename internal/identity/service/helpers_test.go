package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hipp-erp/identity/internal/identity/domain"
	"github.com/hipp-erp/identity/internal/identity/store"
	"github.com/hipp-erp/identity/internal/identity/store/drivers/sqlite"
)

const testSecret = "test-secret-at-least-32-chars-long!!"

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

type testServices struct {
	store    store.Store
	tokens   *TokenService
	activity *ActivityService
	roles    *RoleService
	users    *UserService
	auth     *AuthService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	st := newTestStore(t)

	tokens, err := NewTokenService(testSecret, "identity-test", "hipp-erp", time.Minute)
	require.NoError(t, err)

	activity := &ActivityService{Store: st}
	roles := &RoleService{Store: st, Activity: activity}
	users := NewUserService(st, roles, activity, nil)
	auth := &AuthService{Store: st, Tokens: tokens, Roles: roles, Activity: activity}

	return &testServices{
		store:    st,
		tokens:   tokens,
		activity: activity,
		roles:    roles,
		users:    users,
		auth:     auth,
	}
}

// createUser provisions an account through the real lifecycle path so tests
// exercise the same code operators do.
func (s *testServices) createUser(t *testing.T, email, password string, role domain.RoleName) domain.View {
	t.Helper()

	view, err := s.users.CreateUser(context.Background(), CreateUserInput{
		Email:     email,
		Password:  password,
		FirstName: "Test",
		LastName:  "User",
		Phone:     "0691234567",
		Role:      string(role),
	})
	require.NoError(t, err)
	return view
}
