package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/distrischool/authservice/internal/common"
	"github.com/distrischool/authservice/internal/server/events"
	"github.com/distrischool/authservice/internal/server/models"
)

// AdminSeed describes the administrator created on first start.
type AdminSeed struct {
	Name     string
	Email    string
	Password string
}

// EnsureAdmin creates a verified ADMIN account from seed unless one with the
// same email exists. An empty email or password skips seeding.
func (s *AuthService) EnsureAdmin(ctx context.Context, seed AdminSeed) error {
	email := models.NormalizeEmail(seed.Email)
	if email == "" || seed.Password == "" {
		s.logger.Info(ctx, "admin seed not configured, skipping")
		return nil
	}

	exists, err := s.repos.Accounts().ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if exists {
		s.logger.Info(ctx, "admin account already present", "email", email)
		return nil
	}

	digest, err := s.hasher.Hash(seed.Password)
	if err != nil {
		return err
	}

	name := seed.Name
	if name == "" {
		name = "Administrator"
	}
	account := models.NewAccount(email, name, models.RoleAdmin, digest, s.clock())
	account.EmailVerified = true

	if _, err := s.repos.Accounts().Create(ctx, account); err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			return nil
		}
		return fmt.Errorf("create admin: %w", err)
	}

	s.logger.Info(ctx, "admin account created", "account_id", account.ID, "email", email)
	s.events.Notify(ctx, events.TypeRegistered, account)
	return nil
}
