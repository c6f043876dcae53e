package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/distrischool/authservice/internal/common"
)

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// orPrompt returns v, or asks for it when empty.
func (a *App) orPrompt(v, prompt string) (string, error) {
	if v != "" {
		return v, nil
	}
	return getSimpleText(a.reader, prompt, a.out)
}

// password prompts without echo and hands back a string copy; the read
// buffer is wiped.
func (a *App) password(prompt string) (string, error) {
	pw, err := getPassword(prompt, a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	if len(pw) == 0 {
		return "", fmt.Errorf("%w: empty password", ErrUsage)
	}
	return string(pw), nil
}

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) register(ctx context.Context, args []string) error {
	fs := a.flagSet("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	role := fs.String("role", "", "STUDENT, TEACHER or ADMIN")
	if err := fs.Parse(args); err != nil {
		return err
	}

	n, err := a.orPrompt(*name, "Enter name")
	if err != nil {
		return err
	}
	e, err := a.orPrompt(*email, "Enter email")
	if err != nil {
		return err
	}
	pw, err := a.password("Enter password")
	if err != nil {
		return err
	}

	resp, err := a.client.Register(ctx, n, e, pw, *role)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.errOut, "Registered. Check your inbox to verify the email before logging in.")
	return a.print(resp)
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := a.flagSet("login")
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := a.orPrompt(*email, "Enter email")
	if err != nil {
		return err
	}
	pw, err := a.password("Enter password")
	if err != nil {
		return err
	}

	resp, err := a.client.Login(ctx, e, pw)
	if err != nil {
		return err
	}
	return a.print(resp)
}

func (a *App) verify(ctx context.Context, args []string) error {
	fs := a.flagSet("verify")
	token := fs.String("token", "", "verification token from the email link")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := a.orPrompt(*token, "Enter verification token")
	if err != nil {
		return err
	}
	resp, err := a.client.VerifyEmail(ctx, t)
	if err != nil {
		return err
	}
	return a.print(resp)
}

func (a *App) resend(ctx context.Context, args []string) error {
	fs := a.flagSet("resend")
	access := fs.String("access", os.Getenv(envAccessToken), "access token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *access == "" {
		return fmt.Errorf("%w: resend needs -access or $%s", ErrUsage, envAccessToken)
	}

	a.client.SetTokens(*access, os.Getenv(envRefreshToken))
	resp, err := a.client.ResendVerification(ctx)
	if err != nil {
		return err
	}
	return a.print(resp)
}

func (a *App) requestReset(ctx context.Context, args []string) error {
	fs := a.flagSet("request-reset")
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := a.orPrompt(*email, "Enter email")
	if err != nil {
		return err
	}
	resp, err := a.client.RequestPasswordReset(ctx, e)
	if err != nil {
		return err
	}
	return a.print(resp)
}

func (a *App) reset(ctx context.Context, args []string) error {
	fs := a.flagSet("reset")
	token := fs.String("token", "", "reset token from the email link")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := a.orPrompt(*token, "Enter reset token")
	if err != nil {
		return err
	}
	pw, err := a.password("Enter new password")
	if err != nil {
		return err
	}

	resp, err := a.client.ResetPassword(ctx, t, pw)
	if err != nil {
		return err
	}
	return a.print(resp)
}

func (a *App) refresh(ctx context.Context, args []string) error {
	fs := a.flagSet("refresh")
	refresh := fs.String("refresh", os.Getenv(envRefreshToken), "refresh token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *refresh == "" {
		return fmt.Errorf("%w: refresh needs -refresh or $%s", ErrUsage, envRefreshToken)
	}

	a.client.SetTokens("", *refresh)
	resp, err := a.client.Refresh(ctx)
	if err != nil {
		return err
	}
	return a.print(resp)
}

func (a *App) profile(ctx context.Context, args []string) error {
	fs := a.flagSet("profile")
	access := fs.String("access", os.Getenv(envAccessToken), "access token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *access == "" {
		return fmt.Errorf("%w: profile needs -access or $%s", ErrUsage, envAccessToken)
	}

	a.client.SetTokens(*access, os.Getenv(envRefreshToken))
	resp, err := a.client.Profile(ctx)
	if err != nil {
		return err
	}
	return a.print(resp)
}
