package services

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/distrischool/authservice/internal/logging"
	"github.com/distrischool/authservice/internal/server/auth"
	"github.com/distrischool/authservice/internal/server/models"
	"github.com/distrischool/authservice/internal/server/passwords"
	"github.com/distrischool/authservice/internal/server/repositories/accounts"
	"github.com/distrischool/authservice/internal/server/repositories/repomanager"
	"github.com/distrischool/authservice/internal/server/verification"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMail struct {
	kind, to, name, secret string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) record(s sentMail) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, s)
}

func (m *fakeMailer) SendVerification(ctx context.Context, to, token string) {
	m.record(sentMail{kind: "verification", to: to, secret: token})
}

func (m *fakeMailer) SendPasswordReset(ctx context.Context, to, token string) {
	m.record(sentMail{kind: "reset", to: to, secret: token})
}

func (m *fakeMailer) SendTemporaryPassword(ctx context.Context, to, name, password string) {
	m.record(sentMail{kind: "temporary", to: to, name: name, secret: password})
}

// last returns the most recent mail of kind, or the zero value.
func (m *fakeMailer) last(kind string) sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == kind {
			return m.sent[i]
		}
	}
	return sentMail{}
}

func (m *fakeMailer) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.kind == kind {
			n++
		}
	}
	return n
}

type publishedEvent struct {
	eventType string
	accountID string
	email     string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *fakeNotifier) Notify(ctx context.Context, eventType string, a *models.Account) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{eventType: eventType, accountID: a.ID, email: a.Email})
}

func (n *fakeNotifier) count(eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.eventType == eventType {
			c++
		}
	}
	return c
}

// failingRepos wraps a manager and fails reads with err.
type failingRepos struct {
	repomanager.RepositoryManager
	err error
}

func (f *failingRepos) Accounts() accounts.Repository {
	return &failingAccounts{Repository: f.RepositoryManager.Accounts(), err: f.err}
}

type failingAccounts struct {
	accounts.Repository
	err error
}

func (f *failingAccounts) ExistsByEmail(context.Context, string) (bool, error) { return false, f.err }

type harness struct {
	svc    *AuthService
	repos  repomanager.RepositoryManager
	tokens *auth.TokenService
	clock  *fakeClock
	mail   *fakeMailer
	events *fakeNotifier
	logs   *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithRepos(t, repomanager.NewMemoryRepositoryManager())
}

func newHarnessWithRepos(t *testing.T, repos repomanager.RepositoryManager) *harness {
	t.Helper()
	clk := &fakeClock{now: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}
	tokens := auth.NewTokenService([]byte("test-secret"), "distrischool-auth", 15*time.Minute, 7*24*time.Hour, clk.Now)
	mailer := &fakeMailer{}
	notifier := &fakeNotifier{}
	logs := &bytes.Buffer{}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(logs, nil)))

	svc := NewAuthService(Deps{
		Repos:        repos,
		Tokens:       tokens,
		Verification: verification.NewManager(repos, time.Hour, clk.Now),
		Hasher:       passwords.NewBcryptHasher(bcrypt.MinCost),
		Mailer:       mailer,
		Events:       notifier,
		Logger:       logger,
		Clock:        clk.Now,
		TemporaryPassword: func() (string, error) {
			return "Temp-Pass-42", nil
		},
	})

	return &harness{svc: svc, repos: repos, tokens: tokens, clock: clk, mail: mailer, events: notifier, logs: logs}
}
