package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/distrischool/authservice/internal/common"
	"github.com/distrischool/authservice/internal/logging"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{common.ErrInvalidCredentials, codes.Unauthenticated},
		{common.ErrUnauthenticated, codes.Unauthenticated},
		{common.ErrMalformedToken, codes.Unauthenticated},
		{common.ErrTokenExpired, codes.Unauthenticated},
		{common.ErrWrongPurpose, codes.Unauthenticated},
		{common.ErrEmailNotVerified, codes.FailedPrecondition},
		{common.ErrAlreadyVerified, codes.FailedPrecondition},
		{common.ErrEmailAlreadyRegistered, codes.AlreadyExists},
		{common.ErrInvalidOrExpiredToken, codes.InvalidArgument},
		{common.ErrAccountNotFound, codes.NotFound},
		{fmt.Errorf("wrapped: %w", common.ErrAccountNotFound), codes.NotFound},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("disk on fire"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, codeFor(tt.err))
		})
	}
}

func TestToStatus_HidesInternalDetail(t *testing.T) {
	s := NewGRPCServer("", logging.NewNopLogger(), nil, nil)

	err := s.toStatus(context.Background(), "login", errors.New("pq: password authentication failed"))
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Equal(t, common.ErrorInternal.Error(), status.Convert(err).Message())
	assert.NotContains(t, status.Convert(err).Message(), "pq:")

	err = s.toStatus(context.Background(), "login", common.ErrTokenExpired)
	assert.Equal(t, common.ErrTokenExpired.Error(), status.Convert(err).Message())
}
