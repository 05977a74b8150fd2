package users

import (
	"context"
	"fmt"

	"github.com/opsboard/opsboard/internal/auth"
	"github.com/opsboard/opsboard/internal/platform/httpx"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, in CreateInput, hash string) (User, error)
	UpdateRole(ctx context.Context, id int64, role auth.Role) (User, error)
	SetActive(ctx context.Context, id int64, active bool) (User, error)
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
	hash func(string) (string, error)
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, hash: auth.HashPassword}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// CreateUser hashes the password and stores the account.
func (s *Service) CreateUser(ctx context.Context, in CreateInput) (User, error) {
	if in.Role == "" {
		in.Role = auth.RoleUser
	}
	if !in.Role.Valid() {
		return User{}, fmt.Errorf("%w: %w", httpx.ErrValidation, errInvalidRole)
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	return s.repo.CreateUser(ctx, in, hash)
}

// SetRole changes the role of another user.
func (s *Service) SetRole(ctx context.Context, actor *auth.Principal, id int64, role auth.Role) (User, error) {
	if !role.Valid() {
		return User{}, fmt.Errorf("%w: %w", httpx.ErrValidation, errInvalidRole)
	}
	if actor != nil && actor.UserID == id && role != actor.Role {
		return User{}, ErrSelfLockout
	}
	return s.repo.UpdateRole(ctx, id, role)
}

// SetActive activates or deactivates another user.
func (s *Service) SetActive(ctx context.Context, actor *auth.Principal, id int64, active bool) (User, error) {
	if actor != nil && actor.UserID == id && !active {
		return User{}, ErrSelfLockout
	}
	return s.repo.SetActive(ctx, id, active)
}
