package grpc

import (
	"context"

	"github.com/distrischool/authservice/internal/api"
	"google.golang.org/grpc"
)

// authServer is the handler set behind serviceDesc.
type authServer interface {
	Register(context.Context, *api.RegisterRequest) (*api.AuthResponse, error)
	Login(context.Context, *api.LoginRequest) (*api.AuthResponse, error)
	VerifyEmail(context.Context, *api.VerifyEmailRequest) (*api.MessageResponse, error)
	ResendVerification(context.Context, *api.ResendVerificationRequest) (*api.MessageResponse, error)
	RequestPasswordReset(context.Context, *api.RequestPasswordResetRequest) (*api.MessageResponse, error)
	ResetPassword(context.Context, *api.ResetPasswordRequest) (*api.MessageResponse, error)
	RefreshToken(context.Context, *api.RefreshTokenRequest) (*api.AuthResponse, error)
	GetProfile(context.Context, *api.GetProfileRequest) (*api.ProfileResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: api.ServiceName,
	HandlerType: (*authServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(api.MethodRegister, (*GRPCServer).Register),
		unary(api.MethodLogin, (*GRPCServer).Login),
		unary(api.MethodVerifyEmail, (*GRPCServer).VerifyEmail),
		unary(api.MethodResendVerification, (*GRPCServer).ResendVerification),
		unary(api.MethodRequestPasswordReset, (*GRPCServer).RequestPasswordReset),
		unary(api.MethodResetPassword, (*GRPCServer).ResetPassword),
		unary(api.MethodRefreshToken, (*GRPCServer).RefreshToken),
		unary(api.MethodGetProfile, (*GRPCServer).GetProfile),
	},
	Metadata: "distrischool/auth/v1/auth.json",
}

// unary adapts a typed handler to grpc.MethodDesc, decoding the request
// with whatever codec the call negotiated.
func unary[Req, Resp any](name string, call func(*GRPCServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*GRPCServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: api.FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
