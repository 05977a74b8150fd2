package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/opsboard/opsboard/internal/platform/httpx"
)

// Role grants access levels.
type Role string

// Roles.
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the caller identity resolved from a bearer token.
type Principal struct {
	UserID    int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool { return p != nil && p.Role == RoleAdmin }

var (
	// ErrInvalidCredentials is returned for unknown, inactive or mismatched logins.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", httpx.ErrUnauthorized)
	// ErrInvalidToken is returned for malformed, expired or revoked tokens.
	ErrInvalidToken = fmt.Errorf("invalid token: %w", httpx.ErrUnauthorized)
	// ErrUserNotFound is returned by repositories for missing users.
	ErrUserNotFound = errors.New("auth: user not found")
)
