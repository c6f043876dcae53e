// Package api holds the wire contract of the auth service: method names,
// request and response messages, and the JSON codec both ends speak.
package api

import "time"

const ServiceName = "distrischool.auth.v1.AuthService"

const (
	MethodRegister             = "Register"
	MethodLogin                = "Login"
	MethodVerifyEmail          = "VerifyEmail"
	MethodResendVerification   = "ResendVerification"
	MethodRequestPasswordReset = "RequestPasswordReset"
	MethodResetPassword        = "ResetPassword"
	MethodRefreshToken         = "RefreshToken"
	MethodGetProfile           = "GetProfile"
)

// FullMethod returns the "/service/method" path gRPC routes on.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

type ResendVerificationRequest struct{}

type RequestPasswordResetRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type GetProfileRequest struct{}

// AuthResponse is returned by Register, Login and RefreshToken.
// ExpiresIn is the access token lifetime in seconds.
type AuthResponse struct {
	AccessToken   string `json:"accessToken"`
	RefreshToken  string `json:"refreshToken"`
	TokenType     string `json:"tokenType"`
	AccountID     string `json:"accountId"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
	ExpiresIn     int64  `json:"expiresIn"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ProfileResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"emailVerified"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
}
