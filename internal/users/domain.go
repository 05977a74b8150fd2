package users

import (
	"errors"
	"fmt"
	"time"

	"github.com/opsboard/opsboard/internal/auth"
	"github.com/opsboard/opsboard/internal/platform/httpx"
)

// User represents a user account for management.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      auth.Role `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateInput carries a new account.
type CreateInput struct {
	Email    string    `json:"email" validate:"required,email"`
	Name     string    `json:"name" validate:"max=120"`
	Password string    `json:"password" validate:"required,min=8"`
	Role     auth.Role `json:"role" validate:"omitempty,oneof=admin user"`
}

var (
	// ErrNotFound is returned for unknown user ids.
	ErrNotFound = fmt.Errorf("user: %w", httpx.ErrNotFound)
	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = fmt.Errorf("user email: %w", httpx.ErrDuplicate)
	// ErrSelfLockout blocks admins from demoting or deactivating themselves.
	ErrSelfLockout = fmt.Errorf("cannot change own access: %w", httpx.ErrForbidden)
	errInvalidRole = errors.New("invalid role")
)
