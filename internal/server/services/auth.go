// Package services contains server-side business logic. AuthService drives
// the account lifecycle: registration, login, email verification, password
// reset, token refresh and provisioning requests from other services.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/distrischool/authservice/internal/common"
	"github.com/distrischool/authservice/internal/logging"
	"github.com/distrischool/authservice/internal/server/auth"
	"github.com/distrischool/authservice/internal/server/events"
	"github.com/distrischool/authservice/internal/server/mail"
	"github.com/distrischool/authservice/internal/server/models"
	"github.com/distrischool/authservice/internal/server/passwords"
	"github.com/distrischool/authservice/internal/server/repositories/accounts"
	"github.com/distrischool/authservice/internal/server/repositories/repomanager"
	"github.com/distrischool/authservice/internal/server/verification"
)

// EventNotifier publishes lifecycle events without reporting failures.
type EventNotifier interface {
	Notify(ctx context.Context, eventType string, account *models.Account)
}

type Deps struct {
	Repos        repomanager.RepositoryManager
	Tokens       *auth.TokenService
	Verification *verification.Manager
	Hasher       passwords.Hasher
	Mailer       mail.Mailer
	Events       EventNotifier
	Logger       logging.Logger
	Clock        func() time.Time
	// TemporaryPassword generates passwords for provisioned accounts.
	TemporaryPassword func() (string, error)
}

type AuthService struct {
	repos        repomanager.RepositoryManager
	tokens       *auth.TokenService
	verification *verification.Manager
	hasher       passwords.Hasher
	mailer       mail.Mailer
	events       EventNotifier
	logger       logging.Logger
	clock        func() time.Time
	tempPassword func() (string, error)
}

func NewAuthService(d Deps) *AuthService {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.TemporaryPassword == nil {
		d.TemporaryPassword = passwords.Temporary
	}
	return &AuthService{
		repos:        d.Repos,
		tokens:       d.Tokens,
		verification: d.Verification,
		hasher:       d.Hasher,
		mailer:       d.Mailer,
		events:       d.Events,
		logger:       d.Logger.With("module", "auth_service"),
		clock:        d.Clock,
		tempPassword: d.TemporaryPassword,
	}
}

// Register creates a pending account, mails its verification link and
// returns tokens right away. Login stays closed until the email is verified.
func (s *AuthService) Register(ctx context.Context, name, email, password, role string) (*AuthResponse, error) {
	email = models.NormalizeEmail(email)

	exists, err := s.repos.Accounts().ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, common.ErrEmailAlreadyRegistered
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	account := models.NewAccount(email, name, models.ParseRole(role), digest, s.clock())
	token, err := s.verification.Attach(account)
	if err != nil {
		return nil, err
	}

	if _, err := s.repos.Accounts().Create(ctx, account); err != nil {
		if errors.Is(err, common.ErrEmailTaken) {
			return nil, common.ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info(ctx, "account registered", "account_id", account.ID, "role", account.Role)
	s.mailer.SendVerification(ctx, account.Email, token)
	s.events.Notify(ctx, events.TypeRegistered, account)

	return s.authResponse(account, "")
}

// Login checks credentials and records the login time. Password mismatch
// and unknown email are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	email = models.NormalizeEmail(email)

	account, err := s.repos.Accounts().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	if !s.hasher.Verify(password, account.PasswordDigest) || !account.Enabled {
		return nil, common.ErrInvalidCredentials
	}
	if !account.EmailVerified {
		return nil, common.ErrEmailNotVerified
	}

	err = s.repos.WithinTx(ctx, func(ctx context.Context, repo accounts.Repository) error {
		locked, err := repo.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		now := s.clock().UTC()
		locked.LastLogin = &now
		if err := repo.Save(ctx, locked); err != nil {
			return err
		}
		account = locked
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	s.logger.Info(ctx, "login succeeded", "account_id", account.ID)
	s.events.Notify(ctx, events.TypeLogged, account)

	return s.authResponse(account, "")
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*MessageResponse, error) {
	account, err := s.verification.ConsumeVerificationToken(ctx, token)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "email verified", "account_id", account.ID)
	s.events.Notify(ctx, events.TypeEmailVerified, account)

	return &MessageResponse{Success: true, Message: msgEmailVerified}, nil
}

func (s *AuthService) ResendVerification(ctx context.Context, principal auth.Principal) (*MessageResponse, error) {
	email, err := principalEmail(principal)
	if err != nil {
		return nil, err
	}

	token, err := s.verification.Resend(ctx, email)
	if err != nil {
		return nil, err
	}

	s.mailer.SendVerification(ctx, email, token)
	return &MessageResponse{Success: true, Message: msgVerificationSent}, nil
}

// RequestPasswordReset answers the same way whether or not the email is
// registered, so the endpoint cannot be used to enumerate accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*MessageResponse, error) {
	email = models.NormalizeEmail(email)
	ok := &MessageResponse{Success: true, Message: msgResetRequested}

	token, _, err := s.verification.IssueResetToken(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrAccountNotFound) {
			s.logger.Info(ctx, "password reset requested for unknown email")
			return ok, nil
		}
		return nil, err
	}

	s.mailer.SendPasswordReset(ctx, email, token)
	return ok, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (*MessageResponse, error) {
	if strings.TrimSpace(token) == "" {
		return nil, common.ErrInvalidOrExpiredToken
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}

	account, err := s.verification.ConsumeResetToken(ctx, token, digest)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "password reset", "account_id", account.ID)
	s.events.Notify(ctx, events.TypePasswordReset, account)

	return &MessageResponse{Success: true, Message: msgPasswordResetDone}, nil
}

// RefreshToken mints a new access token and hands back the same refresh
// token. Verification status is not re-checked here.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.tokens.Validate(refreshToken, auth.PurposeRefresh)
	if err != nil {
		return nil, err
	}

	account, err := s.repos.Accounts().FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	return s.authResponse(account, refreshToken)
}

func (s *AuthService) GetProfile(ctx context.Context, principal auth.Principal) (*Profile, error) {
	email, err := principalEmail(principal)
	if err != nil {
		return nil, err
	}

	account, err := s.repos.Accounts().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return profileOf(account), nil
}

// authResponse issues an access token and, unless refresh is given, a new
// refresh token.
func (s *AuthService) authResponse(a *models.Account, refresh string) (*AuthResponse, error) {
	access, err := s.tokens.IssueAccess(a)
	if err != nil {
		return nil, err
	}
	if refresh == "" {
		if refresh, err = s.tokens.IssueRefresh(a); err != nil {
			return nil, err
		}
	}
	return &AuthResponse{
		AccessToken:   access,
		RefreshToken:  refresh,
		TokenType:     TokenTypeBearer,
		AccountID:     a.ID,
		Email:         a.Email,
		Name:          a.Name,
		Role:          a.Role,
		EmailVerified: a.EmailVerified,
		ExpiresIn:     s.tokens.AccessTTL(),
	}, nil
}

func principalEmail(p auth.Principal) (string, error) {
	email := models.NormalizeEmail(p.Email)
	if email == "" {
		return "", common.ErrUnauthenticated
	}
	return email, nil
}
