package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of platform roles carried in tokens and events.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole maps s onto a known Role, case-insensitively. Unknown or blank
// input yields RoleStudent, the lowest-privilege role.
func ParseRole(s string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleTeacher:
		return RoleTeacher
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleStudent
	}
}

// AccountState is the lifecycle position of an account.
type AccountState string

const (
	StatePendingVerification AccountState = "PENDING_VERIFICATION"
	StateVerified            AccountState = "VERIFIED"
)

// Account is an identity record. Accounts are never hard-deleted.
//
// VerificationToken is non-empty only while verification is pending.
// ResetToken and ResetExpiresAt are either both set or both empty.
type Account struct {
	ID                string
	Email             string
	Name              string
	Role              Role
	PasswordDigest    string
	EmailVerified     bool
	Enabled           bool
	VerificationToken string
	ResetToken        string
	ResetExpiresAt    *time.Time
	CreatedAt         time.Time
	LastLogin         *time.Time
}

// NewAccount returns an enabled, unverified account with a fresh id.
func NewAccount(email, name string, role Role, digest string, now time.Time) *Account {
	return &Account{
		ID:             uuid.NewString(),
		Email:          NormalizeEmail(email),
		Name:           strings.TrimSpace(name),
		Role:           role,
		PasswordDigest: digest,
		Enabled:        true,
		CreatedAt:      now.UTC(),
	}
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Account) State() AccountState {
	if a.EmailVerified {
		return StateVerified
	}
	return StatePendingVerification
}

// ResetPending reports whether a password reset has been requested and not
// yet completed. Expiry is not considered.
func (a *Account) ResetPending() bool {
	return a.ResetToken != "" && a.ResetExpiresAt != nil
}

// SetReset installs a reset token together with its expiry.
func (a *Account) SetReset(token string, expiresAt time.Time) {
	exp := expiresAt.UTC()
	a.ResetToken = token
	a.ResetExpiresAt = &exp
}

// ClearReset removes both reset fields.
func (a *Account) ClearReset() {
	a.ResetToken = ""
	a.ResetExpiresAt = nil
}

// MarkVerified consumes the pending verification token.
func (a *Account) MarkVerified() {
	a.VerificationToken = ""
	a.EmailVerified = true
}

// Clone returns a deep copy so callers never share pointer fields.
func (a *Account) Clone() *Account {
	c := *a
	if a.ResetExpiresAt != nil {
		t := *a.ResetExpiresAt
		c.ResetExpiresAt = &t
	}
	if a.LastLogin != nil {
		t := *a.LastLogin
		c.LastLogin = &t
	}
	return &c
}
