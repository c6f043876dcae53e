// Package cli implements authctl, a small operator client for the auth
// service. Each invocation runs one subcommand and prints the server reply
// as JSON:
//
//	authctl [-a addr] [-w seconds] register -name Ana -email ana@school.edu [-role STUDENT]
//	authctl login -email ana@school.edu
//	authctl verify -token <verification token>
//	authctl resend -access <access token>
//	authctl request-reset -email ana@school.edu
//	authctl reset -token <reset token>
//	authctl refresh -refresh <refresh token>
//	authctl profile -access <access token>
//
// Passwords are always prompted for without echo. Access and refresh tokens
// fall back to $AUTHCTL_ACCESS_TOKEN and $AUTHCTL_REFRESH_TOKEN.
package cli
