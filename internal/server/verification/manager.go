// Package verification manages the single-use tokens mailed to account
// holders: email-verification tokens and time-bound password-reset tokens.
//
// Every issue and consume is one read-modify-write of a single account row,
// so a token can be consumed at most once even under concurrent requests.
package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/distrischool/authservice/internal/common"
	"github.com/distrischool/authservice/internal/server/models"
	"github.com/distrischool/authservice/internal/server/repositories/accounts"
	"github.com/distrischool/authservice/internal/server/repositories/repomanager"
)

// TokenBytes is the entropy of every issued token, hex-encoded on the wire.
const TokenBytes = 32

// DefaultResetTTL bounds how long a password-reset token stays usable.
const DefaultResetTTL = time.Hour

type Manager struct {
	repos    repomanager.RepositoryManager
	resetTTL time.Duration
	clock    func() time.Time
	newToken func() (string, error)
}

func NewManager(repos repomanager.RepositoryManager, resetTTL time.Duration, clock func() time.Time) *Manager {
	if resetTTL <= 0 {
		resetTTL = DefaultResetTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		repos:    repos,
		resetTTL: resetTTL,
		clock:    clock,
		newToken: func() (string, error) { return common.MakeRandHexString(TokenBytes) },
	}
}

// Attach places a fresh verification token on an account that has not been
// stored yet, so creation and token issue are one write.
func (m *Manager) Attach(account *models.Account) (string, error) {
	token, err := m.newToken()
	if err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	account.VerificationToken = token
	return token, nil
}

// IssueVerificationToken stores a new token for the account with email,
// replacing any previous one.
func (m *Manager) IssueVerificationToken(ctx context.Context, email string) (string, error) {
	return m.issueVerification(ctx, email, nil)
}

// Resend is IssueVerificationToken for accounts that are still pending.
func (m *Manager) Resend(ctx context.Context, email string) (string, error) {
	return m.issueVerification(ctx, email, func(a *models.Account) error {
		if a.EmailVerified {
			return common.ErrAlreadyVerified
		}
		return nil
	})
}

// issueVerification runs check and the token issue in one write.
func (m *Manager) issueVerification(ctx context.Context, email string, check func(*models.Account) error) (string, error) {
	var token string
	err := m.update(ctx, email, func(a *models.Account) error {
		if check != nil {
			if err := check(a); err != nil {
				return err
			}
		}
		var err error
		token, err = m.Attach(a)
		return err
	})
	return token, err
}

// ConsumeVerificationToken marks the owning account verified and clears the
// token in the same write. Unknown or already used tokens fail with
// common.ErrInvalidOrExpiredToken.
func (m *Manager) ConsumeVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	if strings.TrimSpace(token) == "" {
		return nil, common.ErrInvalidOrExpiredToken
	}

	var out *models.Account
	err := m.repos.WithinTx(ctx, func(ctx context.Context, repo accounts.Repository) error {
		a, err := repo.FindByVerificationToken(ctx, token)
		if err != nil {
			return err
		}
		a.MarkVerified()
		if err := repo.Save(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, mapNotFound(err, common.ErrInvalidOrExpiredToken)
	}
	return out, nil
}

// IssueResetToken replaces any outstanding reset token of the account.
func (m *Manager) IssueResetToken(ctx context.Context, email string) (string, time.Time, error) {
	var (
		token     string
		expiresAt time.Time
	)
	err := m.update(ctx, email, func(a *models.Account) error {
		t, err := m.newToken()
		if err != nil {
			return fmt.Errorf("generate reset token: %w", err)
		}
		token, expiresAt = t, m.clock().Add(m.resetTTL).UTC()
		a.SetReset(token, expiresAt)
		return nil
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ConsumeResetToken installs newDigest and clears both reset fields, provided
// the token matches and has not expired. Expiry is inclusive: a token is
// still accepted at exactly its expiry instant.
func (m *Manager) ConsumeResetToken(ctx context.Context, token, newDigest string) (*models.Account, error) {
	if strings.TrimSpace(token) == "" {
		return nil, common.ErrInvalidOrExpiredToken
	}

	var out *models.Account
	err := m.repos.WithinTx(ctx, func(ctx context.Context, repo accounts.Repository) error {
		a, err := repo.FindByResetTokenValid(ctx, token, m.clock())
		if err != nil {
			return err
		}
		a.ClearReset()
		a.PasswordDigest = newDigest
		if err := repo.Save(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, mapNotFound(err, common.ErrInvalidOrExpiredToken)
	}
	return out, nil
}

func (m *Manager) update(ctx context.Context, email string, fn func(*models.Account) error) error {
	err := m.repos.WithinTx(ctx, func(ctx context.Context, repo accounts.Repository) error {
		a, err := repo.FindByEmail(ctx, models.NormalizeEmail(email))
		if err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
		return repo.Save(ctx, a)
	})
	return mapNotFound(err, common.ErrAccountNotFound)
}

func mapNotFound(err, to error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return to
	}
	return err
}
