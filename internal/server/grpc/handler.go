package grpc

import (
	"context"
	"errors"

	"github.com/distrischool/authservice/internal/api"
	"github.com/distrischool/authservice/internal/common"
	"github.com/distrischool/authservice/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Register(ctx context.Context, req *api.RegisterRequest) (*api.AuthResponse, error) {
	resp, err := s.auth.Register(ctx, req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		return nil, s.toStatus(ctx, "register", err)
	}
	return authReply(resp), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.AuthResponse, error) {
	resp, err := s.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, "login", err)
	}
	return authReply(resp), nil
}

func (s *GRPCServer) VerifyEmail(ctx context.Context, req *api.VerifyEmailRequest) (*api.MessageResponse, error) {
	resp, err := s.auth.VerifyEmail(ctx, req.Token)
	if err != nil {
		return nil, s.toStatus(ctx, "verify email", err)
	}
	return messageReply(resp), nil
}

func (s *GRPCServer) ResendVerification(ctx context.Context, _ *api.ResendVerificationRequest) (*api.MessageResponse, error) {
	resp, err := s.auth.ResendVerification(ctx, principalFrom(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, "resend verification", err)
	}
	return messageReply(resp), nil
}

func (s *GRPCServer) RequestPasswordReset(ctx context.Context, req *api.RequestPasswordResetRequest) (*api.MessageResponse, error) {
	resp, err := s.auth.RequestPasswordReset(ctx, req.Email)
	if err != nil {
		return nil, s.toStatus(ctx, "request password reset", err)
	}
	return messageReply(resp), nil
}

func (s *GRPCServer) ResetPassword(ctx context.Context, req *api.ResetPasswordRequest) (*api.MessageResponse, error) {
	resp, err := s.auth.ResetPassword(ctx, req.Token, req.NewPassword)
	if err != nil {
		return nil, s.toStatus(ctx, "reset password", err)
	}
	return messageReply(resp), nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *api.RefreshTokenRequest) (*api.AuthResponse, error) {
	resp, err := s.auth.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, "refresh token", err)
	}
	return authReply(resp), nil
}

func (s *GRPCServer) GetProfile(ctx context.Context, _ *api.GetProfileRequest) (*api.ProfileResponse, error) {
	p, err := s.auth.GetProfile(ctx, principalFrom(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, "get profile", err)
	}
	return &api.ProfileResponse{
		ID:            p.ID,
		Name:          p.Name,
		Email:         p.Email,
		Role:          string(p.Role),
		EmailVerified: p.EmailVerified,
		CreatedAt:     p.CreatedAt,
		LastLogin:     p.LastLogin,
	}, nil
}

// codeFor maps domain errors onto status codes. Anything unknown is Internal.
func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrUnauthenticated),
		errors.Is(err, common.ErrMalformedToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrWrongPurpose):
		return codes.Unauthenticated
	case errors.Is(err, common.ErrEmailNotVerified),
		errors.Is(err, common.ErrAlreadyVerified):
		return codes.FailedPrecondition
	case errors.Is(err, common.ErrEmailAlreadyRegistered):
		return codes.AlreadyExists
	case errors.Is(err, common.ErrInvalidOrExpiredToken):
		return codes.InvalidArgument
	case errors.Is(err, common.ErrAccountNotFound):
		return codes.NotFound
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

func (s *GRPCServer) toStatus(ctx context.Context, op string, err error) error {
	code := codeFor(err)
	if code == codes.Internal {
		s.logger.Error(ctx, op+" failed", "error", err.Error())
		return status.Error(codes.Internal, common.ErrorInternal.Error())
	}
	return status.Error(code, err.Error())
}

func authReply(r *services.AuthResponse) *api.AuthResponse {
	return &api.AuthResponse{
		AccessToken:   r.AccessToken,
		RefreshToken:  r.RefreshToken,
		TokenType:     r.TokenType,
		AccountID:     r.AccountID,
		Email:         r.Email,
		Name:          r.Name,
		Role:          string(r.Role),
		EmailVerified: r.EmailVerified,
		ExpiresIn:     int64(r.ExpiresIn.Seconds()),
	}
}

func messageReply(r *services.MessageResponse) *api.MessageResponse {
	return &api.MessageResponse{Success: r.Success, Message: r.Message}
}
