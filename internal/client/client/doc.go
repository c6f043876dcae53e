// Package client is the gRPC client of the auth service.
//
// GRPCClient speaks the JSON codec from package api, attaches the current
// access token to every call, and on an expired-token rejection refreshes
// once with the stored refresh token and retries. Status codes are folded
// into the sentinel errors in errors.go.
package client
