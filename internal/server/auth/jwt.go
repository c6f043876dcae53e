// Package auth issues and validates the signed access and refresh tokens
// handed to clients after a successful login.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/distrischool/authservice/internal/common"
	"github.com/distrischool/authservice/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose distinguishes access tokens from refresh tokens so one can never
// be presented in place of the other.
type Purpose string

const (
	PurposeAccess  Purpose = "access"
	PurposeRefresh Purpose = "refresh"
)

// Claims carries the registered claims plus the account role and purpose.
type Claims struct {
	jwt.RegisteredClaims
	Role    models.Role `json:"role"`
	Purpose Purpose     `json:"purpose"`
}

// Principal identifies the authenticated caller of an operation.
type Principal struct {
	Email string
}

// TokenService signs tokens with an immutable HMAC secret. It holds no
// mutable state and is safe for concurrent use.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      func() time.Time
}

// NewTokenService copies secret, so later changes to the caller's slice do
// not affect signing.
func NewTokenService(secret []byte, issuer string, accessTTL, refreshTTL time.Duration, clock func() time.Time) *TokenService {
	if clock == nil {
		clock = time.Now
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenService{
		secret:     key,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		clock:      clock,
	}
}

// AccessTTL is the lifetime of access tokens.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

func (s *TokenService) IssueAccess(account *models.Account) (string, error) {
	return s.issue(account, PurposeAccess, s.accessTTL)
}

func (s *TokenService) IssueRefresh(account *models.Account) (string, error) {
	return s.issue(account, PurposeRefresh, s.refreshTTL)
}

func (s *TokenService) issue(account *models.Account, purpose Purpose, ttl time.Duration) (string, error) {
	// NumericDate has second precision.
	now := s.clock().Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   account.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:    account.Role,
		Purpose: purpose,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate checks signature, expiry and purpose. Errors are one of
// common.ErrMalformedToken, common.ErrTokenExpired or common.ErrWrongPurpose.
func (s *TokenService) Validate(tokenString string, purpose Purpose) (*Claims, error) {
	claims, err := s.parse(tokenString,
		jwt.WithTimeFunc(s.clock),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrMalformedToken
	}
	if claims.Purpose != purpose {
		return nil, common.ErrWrongPurpose
	}
	return claims, nil
}

// ExtractSubject returns the email a token was issued for. The signature is
// verified but expiry is not.
func (s *TokenService) ExtractSubject(tokenString string) (string, error) {
	claims, err := s.parse(tokenString, jwt.WithoutClaimsValidation())
	if err != nil {
		return "", common.ErrMalformedToken
	}
	return claims.Subject, nil
}

func (s *TokenService) parse(tokenString string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrMalformedToken
	}
	return claims, nil
}
