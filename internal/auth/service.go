package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// HashPassword derives the stored bcrypt hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Service wraps authentication business rules.
type Service struct {
	repo        Repository
	tokens      *Tokens
	revocations *Revocations
	onLogout    []func(userID int64)
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *Tokens, revocations *Revocations) *Service {
	return &Service{repo: repo, tokens: tokens, revocations: revocations}
}

// OnLogout registers a callback run after a token is revoked.
func (s *Service) OnLogout(fn func(userID int64)) {
	if fn != nil {
		s.onLogout = append(s.onLogout, fn)
	}
}

// Login validates credentials and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *Principal, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !user.IsActive {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, principal(user, claims), nil
}

// Authenticate resolves a bearer token to an active principal.
func (s *Service) Authenticate(ctx context.Context, raw string) (*Principal, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("auth: check revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("%w: unknown user", ErrInvalidToken)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: inactive user", ErrInvalidToken)
	}
	return principal(user, claims), nil
}

// Logout revokes the principal's token.
func (s *Service) Logout(ctx context.Context, p *Principal) error {
	if p == nil || p.TokenID == "" {
		return nil
	}
	if err := s.revocations.Revoke(ctx, p.TokenID, p.ExpiresAt); err != nil {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	for _, fn := range s.onLogout {
		fn(p.UserID)
	}
	return nil
}

func principal(user *User, claims *Claims) *Principal {
	p := &Principal{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Role:    user.Role,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p
}
