// Package server wires the auth service together: storage, token issuing,
// mail, lifecycle events, the gRPC endpoint and the provisioning consumer.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/distrischool/authservice/internal/logging"
	"github.com/distrischool/authservice/internal/server/auth"
	"github.com/distrischool/authservice/internal/server/config"
	"github.com/distrischool/authservice/internal/server/events"
	"github.com/distrischool/authservice/internal/server/mail"
	"github.com/distrischool/authservice/internal/server/passwords"
	"github.com/distrischool/authservice/internal/server/repositories/repomanager"
	"github.com/distrischool/authservice/internal/server/services"
	"github.com/distrischool/authservice/internal/server/verification"

	gs "github.com/distrischool/authservice/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repos       repomanager.RepositoryManager
	tokens      *auth.TokenService
	authService *services.AuthService
	closers     []io.Closer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	repos, err := app.openRepositories(ctx)
	if err != nil {
		return nil, err
	}
	app.repos = repos
	app.closers = append(app.closers, repos)

	app.tokens = auth.NewTokenService([]byte(c.SecretKey), c.Issuer,
		c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration, nil)

	app.authService = services.NewAuthService(services.Deps{
		Repos:        repos,
		Tokens:       app.tokens,
		Verification: verification.NewManager(repos, c.ResetTokenValidityDuration, nil),
		Hasher:       passwords.NewBcryptHasher(c.BcryptCost),
		Mailer:       app.newMailer(),
		Events:       events.NewNotifier(app.newPublisher(), c.PublishTimeout, nil, logger),
		Logger:       logger,
	})

	return app, nil
}

func (app *App) openRepositories(ctx context.Context) (repomanager.RepositoryManager, error) {
	if app.config.DatabaseDSN == "" {
		app.logger.Warn(ctx, "no database DSN configured, using in-memory store")
		return repomanager.NewMemoryRepositoryManager(), nil
	}
	rm, err := repomanager.OpenPostgres(ctx, app.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	return rm, nil
}

func (app *App) newMailer() *mail.Service {
	c := app.config
	var sender mail.Sender
	if c.MailEnabled {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     c.MailHost,
			Port:     c.MailPort,
			Username: c.MailUsername,
			Password: c.MailPassword,
			From:     c.MailFrom,
		})
	} else {
		sender = mail.NewLogSender(app.logger)
	}
	return mail.NewService(mail.NewComposer(c.FrontendURL), sender, c.ResetTokenValidityDuration, c.MailTimeout, app.logger)
}

func (app *App) newPublisher() events.Publisher {
	if len(app.config.KafkaBrokers) == 0 {
		return events.NewLogPublisher(app.logger)
	}
	p := events.NewKafkaPublisher(app.config.KafkaBrokers)
	app.closers = append(app.closers, p)
	return p
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.authService, app.tokens)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startConsumer(ctx context.Context, cancelFunc context.CancelFunc) {
	c := events.NewConsumer(events.ConsumerConfig{
		Brokers: app.config.KafkaBrokers,
		GroupID: app.config.KafkaGroupID,
		Topic:   app.config.KafkaProvisionTopic,
		Workers: app.config.KafkaWorkers,
	}, app.authService, app.logger)

	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		app.logger.Error(ctx, "provisioning consumer failed", "error", err)
		cancelFunc()
	}
}

// Run prepares storage, seeds the administrator and serves until ctx is
// cancelled or a signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close(ctx)

	app.logger.Info(ctx, "Starting app...")

	if err := app.repos.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	err := app.authService.EnsureAdmin(ctx, services.AdminSeed{
		Name:     app.config.AdminName,
		Email:    app.config.AdminEmail,
		Password: app.config.AdminPassword,
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	if len(app.config.KafkaBrokers) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startConsumer(ctx, cancelFunc)
		}()
	} else {
		app.logger.Warn(ctx, "no kafka brokers configured, provisioning consumer disabled")
	}

	wg.Wait()
	app.logger.Info(ctx, "App stopped")
	return nil
}

func (app *App) close(ctx context.Context) {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Error(ctx, "close failed", "error", err)
		}
	}
}
