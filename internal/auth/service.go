package auth

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/kliq/backoffice/internal/rbac"
	"github.com/kliq/backoffice/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Principal rebuilds the principal of a signed-in user. Deactivated or
// deleted accounts yield shared.ErrNotFound so their sessions stop working.
func (s *Service) Principal(ctx context.Context, userID string) (*rbac.Principal, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, shared.ErrNotFound
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrNotFound
	}
	return PrincipalFromUser(user), nil
}

// Users lists staff accounts.
func (s *Service) Users(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// PrincipalFromUser maps a staff account onto a principal.
func PrincipalFromUser(u *User) *rbac.Principal {
	claims := map[string]any{
		"sub":                u.ID,
		"email":              u.Email,
		"name":               u.Name,
		"preferred_username": u.Email,
	}
	return rbac.NewPrincipal(u.ID, u.Name, u.Email, u.Roles, claims)
}
