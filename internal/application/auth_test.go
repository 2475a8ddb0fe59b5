package application

import (
	"context"
	"testing"

	"github.com/abdirisakgelle/taskplus/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAuthFixture() (accessFixture, *AuthService) {
	f := newAccessFixture()
	return f, NewAuthService(f.users, f.svc, hasherStub{}, tokenStub{}, &mockLogger{})
}

func TestAuthService_Login(t *testing.T) {
	f, svc := newAuthFixture()
	employee := int64(12)
	f.users.On("GetByIdentifier", mock.Anything, "amina@example.com").Return(domain.User{
		ID: "u1", Username: "amina", Email: "amina@example.com", EmployeeID: &employee, PasswordHash: "hashed:s3cret-pass",
	}, nil)
	f.access.On("Get", mock.Anything, "u1").Return(domain.UserAccess{UserID: "u1", Roles: []domain.RoleKey{"agent"}}, nil)
	f.roles.On("List", mock.Anything).Return(presetRoles, nil)

	session, err := svc.Login(context.Background(), "  Amina@Example.com ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "u1", session.ID)
	assert.Equal(t, &employee, session.EmployeeID)
	assert.Equal(t, []domain.PermissionKey{domain.PermDashboardView, domain.PermSupportTickets}, session.Permissions)
	assert.Equal(t, domain.RouteSupportTickets, session.HomeRoute)
	assert.Equal(t, "token-u1", session.Token)
}

func TestAuthService_LoginWrongPassword(t *testing.T) {
	f, svc := newAuthFixture()
	f.users.On("GetByIdentifier", mock.Anything, "amina").Return(domain.User{ID: "u1", PasswordHash: "hashed:right"}, nil)

	_, err := svc.Login(context.Background(), "amina", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthService_LoginUnknownUser(t *testing.T) {
	f, svc := newAuthFixture()
	f.users.On("GetByIdentifier", mock.Anything, "nobody").Return(domain.User{}, domain.ErrNotFound)

	_, err := svc.Login(context.Background(), "nobody", "whatever")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthService_MeWithoutAccessRecord(t *testing.T) {
	f, svc := newAuthFixture()
	f.users.On("GetByID", mock.Anything, "u2").Return(domain.User{ID: "u2", Username: "new"}, nil)
	f.access.On("Get", mock.Anything, "u2").Return(domain.UserAccess{}, domain.ErrNotFound)

	session, err := svc.Me(context.Background(), "u2")
	require.NoError(t, err)
	assert.Empty(t, session.Permissions)
	assert.Equal(t, domain.RouteDashboard, session.HomeRoute)
	assert.Empty(t, session.Token)
}

func TestAuthService_MeUnknownUser(t *testing.T) {
	f, svc := newAuthFixture()
	f.users.On("GetByID", mock.Anything, "gone").Return(domain.User{}, domain.ErrNotFound)

	_, err := svc.Me(context.Background(), "gone")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestAuthService_Register(t *testing.T) {
	f, svc := newAuthFixture()
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u domain.User) bool {
		return u.Username == "admin" && u.Email == "admin@taskplus.local" && u.PasswordHash == "hashed:changeme123"
	})).Return(nil)

	user, err := svc.Register(context.Background(), domain.User{ID: "u-admin", Username: " Admin ", Email: "ADMIN@taskplus.local"}, "changeme123")
	require.NoError(t, err)
	assert.False(t, user.CreatedAt.IsZero())

	_, err = svc.Register(context.Background(), domain.User{ID: "x", Username: "x", Email: "x@y"}, "short")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAuthService_RegisterAssignsID(t *testing.T) {
	f, svc := newAuthFixture()
	f.users.On("Create", mock.Anything, mock.Anything).Return(nil)

	user, err := svc.Register(context.Background(), domain.User{Username: "agent1", Email: "agent1@taskplus.local"}, "changeme123")
	require.NoError(t, err)
	_, parseErr := uuid.Parse(user.ID)
	assert.NoError(t, parseErr)
}
