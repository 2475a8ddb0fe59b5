package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abdirisakgelle/taskplus/internal/domain"
	"github.com/abdirisakgelle/taskplus/internal/ports"
)

// Session is the identity envelope returned by login and /me.
type Session struct {
	ID          string                 `json:"id"`
	Username    string                 `json:"username"`
	Email       string                 `json:"email"`
	EmployeeID  *int64                 `json:"employeeId"`
	Permissions []domain.PermissionKey `json:"permissions"`
	Roles       []domain.RoleKey       `json:"roles"`
	HomeRoute   string                 `json:"homeRoute"`
	Token       string                 `json:"token,omitempty"`
}

type AuthService struct {
	users  ports.UserRepository
	access *AccessService
	hasher ports.PasswordHasher
	tokens ports.TokenIssuer
	logger ports.Logger
}

func NewAuthService(users ports.UserRepository, access *AccessService, hasher ports.PasswordHasher, tokens ports.TokenIssuer, logger ports.Logger) *AuthService {
	return &AuthService{users: users, access: access, hasher: hasher, tokens: tokens, logger: logger}
}

func (s *AuthService) Login(ctx context.Context, identifier, password string) (Session, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		return Session{}, domain.ErrInvalidInput
	}
	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Session{}, domain.ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.logger.Warn(ctx, "login rejected", "user_id", user.ID)
		return Session{}, domain.ErrInvalidCredentials
	}
	session, err := s.session(ctx, user)
	if err != nil {
		return Session{}, err
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, err
	}
	session.Token = token
	return session, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (Session, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Session{}, domain.ErrUnauthenticated
		}
		return Session{}, err
	}
	return s.session(ctx, user)
}

// Register creates a user with a hashed password. An empty id is replaced by
// a random UUID. Used by seeding.
func (s *AuthService) Register(ctx context.Context, user domain.User, password string) (domain.User, error) {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Username == "" || user.Email == "" || len(password) < 8 {
		return domain.User{}, domain.ErrInvalidInput
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, err
	}
	user.PasswordHash = hash
	user.CreatedAt = time.Now().UTC()
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *AuthService) session(ctx context.Context, user domain.User) (Session, error) {
	eff, err := s.access.Effective(ctx, user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		EmployeeID:  user.EmployeeID,
		Permissions: eff.Permissions.Sorted(),
		Roles:       eff.Roles,
		HomeRoute:   eff.HomeRouteOrDefault(),
	}, nil
}
