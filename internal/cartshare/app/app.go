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

	"github.com/cartshare/cartshare/internal/cartshare/events"
	httpapi "github.com/cartshare/cartshare/internal/cartshare/http"
	"github.com/cartshare/cartshare/internal/cartshare/notify"
	"github.com/cartshare/cartshare/internal/cartshare/service"
	"github.com/cartshare/cartshare/internal/cartshare/store"
	"github.com/cartshare/cartshare/internal/cartshare/store/drivers/sqlite"
	"github.com/cartshare/cartshare/pkg/httpx"
	"github.com/cartshare/cartshare/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the cartshare service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	notifier *notify.Notifier

	// Optional event bridge (only when a broker URL is configured)
	publisher    *events.Publisher
	bridge       *events.Bridge
	bridgeCancel context.CancelFunc

	// Services
	membershipService *service.MembershipService
	listService       *service.ListService
	historyService    *service.HistoryService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "cartshare",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		notifier: notify.New(),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("CARTSHARE_JWT_SECRET must be set")
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initEventBridge(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	if app.bridge != nil {
		ctx, cancel := context.WithCancel(context.Background())
		app.bridgeCancel = cancel
		go func() {
			if err := app.bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				app.logger.Error("event bridge stopped", "error", err)
			}
		}()
	}

	app.logger.Info("cartshare service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down cartshare service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server; closing the notifier afterwards ends any
	// feed connections that outlived the deadline.
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.notifier.Close()

	if app.bridgeCancel != nil {
		app.bridgeCancel()
	}
	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Error("error closing event publisher", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("cartshare service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initEventBridge wires the AMQP mirror of the change feed when a broker is
// configured. Without one the in-process feed stands alone.
func (app *Application) initEventBridge() error {
	if app.cfg.AMQPURL == "" {
		app.logger.Info("event bridge disabled (no broker URL configured)")
		return nil
	}

	pub, err := events.NewPublisher(app.cfg.AMQPURL, app.cfg.AMQPExchange)
	if err != nil {
		return fmt.Errorf("failed to connect event bridge: %w", err)
	}
	app.publisher = pub

	app.bridge = events.NewBridge(pub, app.logger)
	app.bridge.Attach(app.notifier)

	app.logger.Info("event bridge enabled", "exchange", app.cfg.AMQPExchange)
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.membershipService = &service.MembershipService{
		Store:    app.db,
		Notifier: app.notifier,
	}
	app.listService = &service.ListService{
		Store:    app.db,
		Notifier: app.notifier,
	}
	app.historyService = &service.HistoryService{Store: app.db}
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		httpx.HS256Verifier{Secret: []byte(app.cfg.JWTSecret)},
		BuildVersion,
		app.db,
		app.notifier,
		app.logger,
	)

	router.MembershipService = app.membershipService
	router.ListService = app.listService
	router.HistoryService = app.historyService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
