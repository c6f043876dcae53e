package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/distrischool/authservice/internal/api"
	"github.com/distrischool/authservice/internal/common"
	"github.com/distrischool/authservice/internal/logging"
	"github.com/distrischool/authservice/internal/server/auth"
	"github.com/distrischool/authservice/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newInterceptorServer(now func() time.Time) (*GRPCServer, *auth.TokenService) {
	tokens := auth.NewTokenService([]byte("secret"), "distrischool-auth", time.Minute, time.Hour, now)
	return NewGRPCServer("", logging.NewNopLogger(), nil, tokens), tokens
}

func protectedInfo() *grpc.UnaryServerInfo {
	return &grpc.UnaryServerInfo{FullMethod: api.FullMethod(api.MethodGetProfile)}
}

func TestInterceptor_PublicMethodPassesWithoutToken(t *testing.T) {
	s, _ := newInterceptorServer(time.Now)
	info := &grpc.UnaryServerInfo{FullMethod: api.FullMethod(api.MethodLogin)}

	called := false
	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		called = true
		return "ok", nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "ok", resp)
}

func TestInterceptor_MissingToken(t *testing.T) {
	s, _ := newInterceptorServer(time.Now)

	_, err := s.accessTokenInterceptor(context.Background(), nil, protectedInfo(), func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called when token missing")
		return nil, nil
	})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "missing token", status.Convert(err).Message())
}

func TestInterceptor_ExpiredTokenReportsExpiry(t *testing.T) {
	issued := time.Now().Add(-time.Hour)
	_, tokens := newInterceptorServer(func() time.Time { return issued })
	access, err := tokens.IssueAccess(&models.Account{Email: "ana@school.edu", Role: models.RoleStudent})
	require.NoError(t, err)

	s, _ := newInterceptorServer(time.Now)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, access))

	_, err = s.accessTokenInterceptor(ctx, nil, protectedInfo(), func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called for expired token")
		return nil, nil
	})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, common.ErrTokenExpired.Error(), status.Convert(err).Message())
}

func TestInterceptor_SetsPrincipal(t *testing.T) {
	s, tokens := newInterceptorServer(time.Now)
	access, err := tokens.IssueAccess(&models.Account{Email: "ana@school.edu", Role: models.RoleStudent})
	require.NoError(t, err)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AuthorizationHeaderName, "bearer "+access))

	var got auth.Principal
	_, err = s.accessTokenInterceptor(ctx, nil, protectedInfo(), func(ctx context.Context, req any) (any, error) {
		got = principalFrom(ctx)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@school.edu", got.Email)
}

func TestTokenFromMetadata(t *testing.T) {
	tests := []struct {
		name string
		md   metadata.MD
		want string
	}{
		{"none", metadata.MD{}, ""},
		{"bearer", metadata.Pairs("authorization", "Bearer abc"), "abc"},
		{"non bearer scheme ignored", metadata.Pairs("authorization", "Basic abc"), ""},
		{"access_token fallback", metadata.Pairs("access_token", "xyz"), "xyz"},
		{"bearer wins", metadata.Pairs("authorization", "Bearer abc", "access_token", "xyz"), "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := metadata.NewIncomingContext(context.Background(), tt.md)
			assert.Equal(t, tt.want, tokenFromMetadata(ctx))
		})
	}
}
