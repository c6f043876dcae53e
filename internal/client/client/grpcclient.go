package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/distrischool/authservice/internal/api"
	"github.com/distrischool/authservice/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL  string
	conn         *grpc.ClientConn
	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AuthorizationHeaderName)
	if token != "" {
		md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, refresh := s.Tokens()

	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}
	if refresh == "" || method == api.FullMethod(api.MethodRefreshToken) {
		return err
	}

	var refreshed api.AuthResponse
	rerr := invoker(ctx, api.FullMethod(api.MethodRefreshToken),
		&api.RefreshTokenRequest{RefreshToken: refresh}, &refreshed, cc, opts...)
	if rerr != nil {
		return rerr
	}
	s.SetTokens(refreshed.AccessToken, refreshed.RefreshToken)

	return invoker(withAccessToken(ctx, refreshed.AccessToken), method, req, reply, cc, opts...)
}

// NewAuthClient connects lazily to endpointURL. Extra options are appended
// to the defaults, which tests use to dial in-memory listeners.
func NewAuthClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (s *GRPCClient) Tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	s.refreshToken = refresh
}

func (s *GRPCClient) call(ctx context.Context, method string, req, resp any) error {
	if err := s.conn.Invoke(ctx, api.FullMethod(method), req, resp); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) authCall(ctx context.Context, method string, req any) (*api.AuthResponse, error) {
	resp := &api.AuthResponse{}
	if err := s.call(ctx, method, req, resp); err != nil {
		return nil, err
	}
	s.SetTokens(resp.AccessToken, resp.RefreshToken)
	return resp, nil
}

func (s *GRPCClient) messageCall(ctx context.Context, method string, req any) (*api.MessageResponse, error) {
	resp := &api.MessageResponse{}
	if err := s.call(ctx, method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *GRPCClient) Register(ctx context.Context, name, email, password, role string) (*api.AuthResponse, error) {
	return s.authCall(ctx, api.MethodRegister, &api.RegisterRequest{Name: name, Email: email, Password: password, Role: role})
}

func (s *GRPCClient) Login(ctx context.Context, email, password string) (*api.AuthResponse, error) {
	return s.authCall(ctx, api.MethodLogin, &api.LoginRequest{Email: email, Password: password})
}

// Refresh exchanges the stored refresh token for a new access token.
func (s *GRPCClient) Refresh(ctx context.Context) (*api.AuthResponse, error) {
	_, refresh := s.Tokens()
	return s.authCall(ctx, api.MethodRefreshToken, &api.RefreshTokenRequest{RefreshToken: refresh})
}

func (s *GRPCClient) VerifyEmail(ctx context.Context, token string) (*api.MessageResponse, error) {
	return s.messageCall(ctx, api.MethodVerifyEmail, &api.VerifyEmailRequest{Token: token})
}

func (s *GRPCClient) ResendVerification(ctx context.Context) (*api.MessageResponse, error) {
	return s.messageCall(ctx, api.MethodResendVerification, &api.ResendVerificationRequest{})
}

func (s *GRPCClient) RequestPasswordReset(ctx context.Context, email string) (*api.MessageResponse, error) {
	return s.messageCall(ctx, api.MethodRequestPasswordReset, &api.RequestPasswordResetRequest{Email: email})
}

func (s *GRPCClient) ResetPassword(ctx context.Context, token, newPassword string) (*api.MessageResponse, error) {
	return s.messageCall(ctx, api.MethodResetPassword, &api.ResetPasswordRequest{Token: token, NewPassword: newPassword})
}

func (s *GRPCClient) Profile(ctx context.Context) (*api.ProfileResponse, error) {
	resp := &api.ProfileResponse{}
	if err := s.call(ctx, api.MethodGetProfile, &api.GetProfileRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.InvalidArgument, codes.FailedPrecondition, codes.AlreadyExists, codes.NotFound:
		return fmt.Errorf("%w: %s", ErrRejected, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
