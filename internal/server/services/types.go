package services

import (
	"time"

	"github.com/distrischool/authservice/internal/server/models"
)

// TokenTypeBearer is the only token type handed out.
const TokenTypeBearer = "Bearer"

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	AccessToken   string
	RefreshToken  string
	TokenType     string
	AccountID     string
	Email         string
	Name          string
	Role          models.Role
	EmailVerified bool
	// ExpiresIn is the access token lifetime.
	ExpiresIn time.Duration
}

// MessageResponse acknowledges operations that yield no tokens.
type MessageResponse struct {
	Success bool
	Message string
}

// Profile is the self-service view of an account.
type Profile struct {
	ID            string
	Name          string
	Email         string
	Role          models.Role
	EmailVerified bool
	CreatedAt     time.Time
	LastLogin     *time.Time
}

func profileOf(a *models.Account) *Profile {
	p := &Profile{
		ID:            a.ID,
		Name:          a.Name,
		Email:         a.Email,
		Role:          a.Role,
		EmailVerified: a.EmailVerified,
		CreatedAt:     a.CreatedAt,
	}
	if a.LastLogin != nil {
		t := *a.LastLogin
		p.LastLogin = &t
	}
	return p
}

const (
	msgEmailVerified     = "Email verified successfully."
	msgVerificationSent  = "Verification email sent."
	msgResetRequested    = "If the email is registered, a password reset link has been sent."
	msgPasswordResetDone = "Password reset successfully."
)
