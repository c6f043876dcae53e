// Package mail delivers account emails: verification links, password-reset
// links and temporary passwords for provisioned accounts.
//
// Delivery is fire-and-forget. Mailer methods never return errors; failures
// are logged and the calling operation proceeds.
package mail

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/distrischool/authservice/internal/logging"
)

// Mailer is what account operations depend on.
type Mailer interface {
	SendVerification(ctx context.Context, to, token string)
	SendPasswordReset(ctx context.Context, to, token string)
	SendTemporaryPassword(ctx context.Context, to, name, password string)
}

// Message is a rendered plain-text email. Link is the actionable URL, if
// any, kept separately so it can be logged without the body.
type Message struct {
	To      string
	Subject string
	Body    string
	Link    string
	// Sensitive marks bodies that must never be logged.
	Sensitive bool
}

// Sender moves a rendered message to its recipient.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Composer renders messages with links into the frontend application.
type Composer struct {
	frontendURL string
}

func NewComposer(frontendURL string) Composer {
	return Composer{frontendURL: strings.TrimRight(frontendURL, "/")}
}

func (c Composer) Verification(to, token string) Message {
	link := c.frontendURL + "/verify-email?token=" + url.QueryEscape(token)
	return Message{
		To:      to,
		Subject: "Email verification - DistriSchool",
		Link:    link,
		Body: "Hello,\n\n" +
			"Thank you for registering with DistriSchool.\n\n" +
			"To activate your account, open the link below:\n" +
			link + "\n\n" +
			"If you did not create this account, ignore this email.\n\n" +
			"DistriSchool team",
	}
}

func (c Composer) PasswordReset(to, token string, ttl time.Duration) Message {
	link := c.frontendURL + "/password-reset/" + url.PathEscape(token)
	return Message{
		To:      to,
		Subject: "Password reset - DistriSchool",
		Link:    link,
		Body: "Hello,\n\n" +
			"We received a request to reset your password.\n\n" +
			"To choose a new password, open the link below:\n" +
			link + "\n\n" +
			fmt.Sprintf("This link expires in %s.\n\n", humanize(ttl)) +
			"If you did not request this change, ignore this email.\n\n" +
			"DistriSchool team",
	}
}

func (c Composer) TemporaryPassword(to, name, password string) Message {
	greeting := "Hello"
	if name != "" {
		greeting += " " + name
	}
	return Message{
		To:        to,
		Subject:   "Your DistriSchool account",
		Link:      c.frontendURL + "/login",
		Sensitive: true,
		Body: greeting + ",\n\n" +
			"An account has been created for you.\n\n" +
			"Email: " + to + "\n" +
			"Temporary password: " + password + "\n\n" +
			"Sign in at " + c.frontendURL + "/login and change your password.\n\n" +
			"DistriSchool team",
	}
}

func humanize(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}

// Service renders messages and hands them to a Sender, bounding each
// delivery by timeout.
type Service struct {
	composer Composer
	sender   Sender
	resetTTL time.Duration
	timeout  time.Duration
	logger   logging.Logger
}

func NewService(composer Composer, sender Sender, resetTTL, timeout time.Duration, logger logging.Logger) *Service {
	return &Service{
		composer: composer,
		sender:   sender,
		resetTTL: resetTTL,
		timeout:  timeout,
		logger:   logger.With("module", "mail"),
	}
}

func (s *Service) SendVerification(ctx context.Context, to, token string) {
	s.deliver(ctx, "verification", s.composer.Verification(to, token))
}

func (s *Service) SendPasswordReset(ctx context.Context, to, token string) {
	s.deliver(ctx, "password_reset", s.composer.PasswordReset(to, token, s.resetTTL))
}

func (s *Service) SendTemporaryPassword(ctx context.Context, to, name, password string) {
	s.deliver(ctx, "temporary_password", s.composer.TemporaryPassword(to, name, password))
}

func (s *Service) deliver(ctx context.Context, kind string, msg Message) {
	ctx = context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error(ctx, "email delivery failed", "kind", kind, "to", msg.To, "error", err)
		return
	}
	s.logger.Info(ctx, "email sent", "kind", kind, "to", msg.To)
}
