package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/accounts/internal/accounts/http"
	"github.com/aussiebroadwan/accounts/internal/accounts/metrics"
	"github.com/aussiebroadwan/accounts/internal/accounts/notify"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/postgres"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
	"github.com/pquerna/otp"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"

	serviceName = "accounts-service"
)

// Application encapsulates the accounts service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	keys       *jwtx.KeyRing
	hasher     *cryptox.Argon2Hasher
	dispatcher *notify.Dispatcher

	// Services
	accountService      *service.AccountService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router

	started bool
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg:    cfg,
		logger: NewLogger(cfg),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initCrypto(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initMail(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// NewLogger builds the service logger described by cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: serviceName,
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// OpenStore connects to the configured database without migrating it.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		st, err := postgres.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Ping(ctx); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to reach database: %w", err)
		}
		return st, nil
	case "sqlite":
		return sqlite.NewStore(cfg.sqliteDSN())
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}

// Handler is the fully wired HTTP handler, for serving it somewhere other
// than the built-in server.
func (app *Application) Handler() http.Handler { return app.router }

// Logger is the application logger.
func (app *Application) Logger() *slog.Logger { return app.logger }

// Start launches the background workers: notification delivery and
// housekeeping. Run calls it.
func (app *Application) Start() {
	if app.started {
		return
	}
	app.started = true
	app.dispatcher.Start()
	app.housekeepingService.Start()
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.Start()

	app.logger.Info("accounts service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"database", app.cfg.DatabaseDriver,
		"mail", app.cfg.MailDriver,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application. Queued emails get the
// rest of the grace period to go out.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down accounts service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.started {
		if err := app.dispatcher.Stop(ctx); err != nil {
			app.logger.Error("notification dispatcher did not drain", "error", err)
		}
		app.housekeepingService.Stop()
		app.started = false
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("accounts service stopped")
	return nil
}

// initDatabase opens the configured store and applies migrations
func (app *Application) initDatabase() error {
	db, err := OpenStore(context.Background(), app.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initCrypto loads the password pepper and the session signing keys
func (app *Application) initCrypto() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewArgon2Hasher(pepper)

	keys, err := jwtx.NewKeyRing(jwtx.KeyRingOptions{
		Algorithm: app.cfg.Algorithm,
		Issuer:    app.cfg.Issuer,
		NumKeys:   app.cfg.NumKeys,
		KeyFile:   app.cfg.SigningKeyFile,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keys = keys

	mode := "ephemeral"
	if app.cfg.SigningKeyFile != "" {
		mode = "persistent"
	}
	app.logger.Info("signing keys ready", "algorithm", keys.Algorithm(), "mode", mode, "issuer", keys.Issuer)
	return nil
}

// initMail picks the email sender and builds the delivery queue
func (app *Application) initMail() error {
	var sender notify.Sender
	switch app.cfg.MailDriver {
	case "postmark":
		pm, err := notify.NewPostmarkSender(notify.PostmarkConfig{
			ServerToken:  app.cfg.PostmarkServerToken,
			AccountToken: app.cfg.PostmarkAccountToken,
			From:         app.cfg.MailSender,
			ReplyTo:      app.cfg.MailSupport,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize postmark: %w", err)
		}
		sender = pm
	case "dev":
		sender = &notify.DevSender{Dir: app.cfg.MailDevDir}
		app.logger.Warn("emails are written to disk, not sent", "dir", app.cfg.MailDevDir)
	default:
		sender = &notify.LogSender{Logger: app.logger}
	}

	app.dispatcher = notify.NewDispatcher(sender, app.logger, notify.DispatcherConfig{
		QueueSize:   app.cfg.NotifyQueueSize,
		Workers:     app.cfg.NotifyWorkers,
		MaxAttempts: app.cfg.NotifyMaxAttempts,
		Brand: notify.Brand{
			AppName:      app.cfg.MailAppName,
			SupportEmail: app.cfg.MailSupport,
		},
	})
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.accountService = service.NewAccountService(
		app.db,
		service.AccountConfig{
			VerificationURL: app.cfg.VerificationURL,
			ResetURL:        app.cfg.ResetURL,
			TokenValidity:   app.cfg.TokenValidity,
			CodeTTL:         app.cfg.CodeTTL,
			CodeDigits:      otp.Digits(app.cfg.CodeDigits),
		},
		app.hasher,
		&service.SessionMinter{Keys: app.keys, TTL: app.cfg.SessionTTL},
		app.dispatcher,
	)
	app.userService = &service.UserService{Accounts: app.accountService}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.keys, BuildVersion, app.db, app.logger)

	// Wire services to router
	router.AccountService = app.accountService
	router.UserService = app.userService
	if app.cfg.MetricsEnabled {
		router.Registry = metrics.NewRegistry()
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
