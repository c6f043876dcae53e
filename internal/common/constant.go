// Package common contains shared constants and sentinel errors used across
// the auth service components.
package common

// AccessTokenHeaderName is the gRPC metadata key that may carry a bare access
// token. AuthorizationHeaderName with a "Bearer " prefix is accepted as well.
const (
	AccessTokenHeaderName   = "access_token"
	AuthorizationHeaderName = "authorization"
	BearerPrefix            = "Bearer "
)
