package grpc

import (
	"context"
	"net"

	"github.com/distrischool/authservice/internal/api"
	"github.com/distrischool/authservice/internal/logging"
	"github.com/distrischool/authservice/internal/server/auth"
	"github.com/distrischool/authservice/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// AuthService is the business surface the transport exposes.
type AuthService interface {
	Register(ctx context.Context, name, email, password, role string) (*services.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*services.AuthResponse, error)
	VerifyEmail(ctx context.Context, token string) (*services.MessageResponse, error)
	ResendVerification(ctx context.Context, principal auth.Principal) (*services.MessageResponse, error)
	RequestPasswordReset(ctx context.Context, email string) (*services.MessageResponse, error)
	ResetPassword(ctx context.Context, token, newPassword string) (*services.MessageResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	GetProfile(ctx context.Context, principal auth.Principal) (*services.Profile, error)
}

// TokenValidator checks access tokens presented in request metadata.
type TokenValidator interface {
	Validate(token string, purpose auth.Purpose) (*auth.Claims, error)
}

type GRPCServer struct {
	address string
	auth    AuthService
	tokens  TokenValidator
	logger  logging.Logger
	health  *health.Server
}

func NewGRPCServer(a string, l logging.Logger, svc AuthService, tokens TokenValidator) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		auth:    svc,
		tokens:  tokens,
		health:  health.NewServer(),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	srv.RegisterService(&serviceDesc, s)
	healthpb.RegisterHealthServer(srv, s.health)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.health.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)
	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
