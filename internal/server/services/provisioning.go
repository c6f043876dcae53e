package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/distrischool/authservice/internal/common"
	"github.com/distrischool/authservice/internal/server/events"
	"github.com/distrischool/authservice/internal/server/models"
)

// HandleProvisioning makes sure an account exists for a request coming from
// user management. Repeated or concurrent deliveries of the same request
// leave exactly one account and emit exactly one registered event.
//
// A nil return means the message is done with, including the cases where it
// was a duplicate or unusable. Errors are infrastructure failures and the
// message should be redelivered.
func (s *AuthService) HandleProvisioning(ctx context.Context, e events.ProvisioningEvent) error {
	email := models.NormalizeEmail(e.Email)
	if email == "" {
		s.logger.Warn(ctx, "provisioning request without email dropped")
		return nil
	}
	exists, err := s.repos.Accounts().ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if exists {
		s.logger.Info(ctx, "account already provisioned")
		return nil
	}

	password, temporary := e.Password, false
	if strings.TrimSpace(password) == "" {
		if password, err = s.tempPassword(); err != nil {
			return err
		}
		temporary = true
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	account := models.NewAccount(email, e.Name, models.ParseRole(e.Role), digest, s.clock())
	verifyToken, err := s.verification.Attach(account)
	if err != nil {
		return err
	}
	if _, err := s.repos.Accounts().Create(ctx, account); err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			s.logger.Info(ctx, "account provisioned concurrently")
			return nil
		}
		return fmt.Errorf("create account: %w", err)
	}
	s.logger.Info(ctx, "account provisioned", "account_id", account.ID, "role", account.Role, "temporary_password", temporary)

	if temporary {
		s.mailer.SendTemporaryPassword(ctx, email, account.Name, password)
	}
	s.mailer.SendVerification(ctx, email, verifyToken)
	s.events.Notify(ctx, events.TypeRegistered, account)
	return nil
}
