package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ecoly/ecoly/internal/rbac"
	"github.com/ecoly/ecoly/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Authenticate validates email/password credentials and returns the
// principal for the account. Accounts whose stored role is not part of the
// enumeration fail with rbac.ErrUnknownRole.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*rbac.Principal, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("auth lookup", slog.Any("error", err))
		}
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	principal, err := user.Principal()
	if err != nil {
		s.logger.Warn("auth rejected stored role", slog.String("user", user.ID), slog.String("role", user.Role))
		return nil, err
	}
	if err := s.repo.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("auth touch last login", slog.Any("error", err))
	}
	return principal, nil
}

// Lookup reloads the principal for an active account.
func (s *Service) Lookup(ctx context.Context, id string) (*rbac.Principal, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("auth: user %s inactive: %w", id, shared.ErrNotFound)
	}
	return user.Principal()
}

// HashPassword hashes a plain password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
