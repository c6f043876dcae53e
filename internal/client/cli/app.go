package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/distrischool/authservice/internal/api"
	"github.com/distrischool/authservice/internal/client/client"
	"github.com/distrischool/authservice/internal/client/config"
)

// AuthClient is the slice of client.GRPCClient the commands use.
type AuthClient interface {
	Register(ctx context.Context, name, email, password, role string) (*api.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	VerifyEmail(ctx context.Context, token string) (*api.MessageResponse, error)
	ResendVerification(ctx context.Context) (*api.MessageResponse, error)
	RequestPasswordReset(ctx context.Context, email string) (*api.MessageResponse, error)
	ResetPassword(ctx context.Context, token, newPassword string) (*api.MessageResponse, error)
	Refresh(ctx context.Context) (*api.AuthResponse, error)
	Profile(ctx context.Context) (*api.ProfileResponse, error)
	SetTokens(access, refresh string)
	Close() error
}

const (
	envAccessToken  = "AUTHCTL_ACCESS_TOKEN"
	envRefreshToken = "AUTHCTL_REFRESH_TOKEN"
)

var ErrUsage = errors.New("usage")

type App struct {
	config *config.Config
	client AuthClient
	reader *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	apiClient, err := client.NewAuthClient(c.ServerEndpointAddr)
	if err != nil {
		return nil, err
	}
	return newApp(c, apiClient, os.Stdin, os.Stdout, os.Stderr), nil
}

func newApp(c *config.Config, ac AuthClient, in io.Reader, out, errOut io.Writer) *App {
	return &App{config: c, client: ac, reader: bufio.NewReader(in), out: out, errOut: errOut}
}

// Run executes the subcommand in args, which must already be free of the
// global flags.
func (a *App) Run(ctx context.Context, args []string) error {
	defer a.client.Close()

	if len(args) == 0 {
		a.usage()
		return ErrUsage
	}

	if a.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.RequestTimeout)
		defer cancel()
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return a.register(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "verify":
		return a.verify(ctx, rest)
	case "resend":
		return a.resend(ctx, rest)
	case "request-reset":
		return a.requestReset(ctx, rest)
	case "reset":
		return a.reset(ctx, rest)
	case "refresh":
		return a.refresh(ctx, rest)
	case "profile":
		return a.profile(ctx, rest)
	case "help", "-h", "--help":
		a.usage()
		return nil
	default:
		fmt.Fprintln(a.errOut, "Unknown command:", cmd)
		a.usage()
		return ErrUsage
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.errOut, "Available commands: register, login, verify, resend, request-reset, reset, refresh, profile")
}

func (a *App) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
