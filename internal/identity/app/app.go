package app

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/hipp-erp/identity/internal/identity/service"
	"github.com/hipp-erp/identity/internal/identity/store"
	"github.com/hipp-erp/identity/internal/identity/store/drivers/sqlite"
	"github.com/hipp-erp/identity/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application wires the identity engine: store, services and the
// housekeeping worker.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	TokenService    *service.TokenService
	AuthService     *service.AuthService
	RoleService     *service.RoleService
	UserService     *service.UserService
	ActivityService *service.ActivityService

	housekeeping *service.HousekeepingService
}

// New creates an Application with all dependencies initialized. The services
// are exported so an embedding transport layer can reach them directly.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "identity",
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Run starts the housekeeping worker and blocks until a shutdown signal
// arrives.
func (app *Application) Run() error {
	app.housekeeping.Start()

	app.logger.Info("identity engine started", "version", BuildVersion)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	sig := <-shutdown
	app.logger.Info("shutdown signal received", "signal", sig)

	return app.Shutdown()
}

// Shutdown stops the worker and closes the store.
func (app *Application) Shutdown() error {
	app.housekeeping.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity engine stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
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

func (app *Application) initServices() error {
	tokens, err := service.NewTokenService(
		app.cfg.JWTSecret, app.cfg.JWTIssuer, app.cfg.JWTAudience, app.cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	app.TokenService = tokens

	app.ActivityService = &service.ActivityService{Store: app.db}
	app.RoleService = &service.RoleService{Store: app.db, Activity: app.ActivityService}

	app.UserService = service.NewUserService(app.db, app.RoleService, app.ActivityService, nil)
	app.UserService.ResetTokenTTL = app.cfg.ResetTokenTTL
	app.UserService.EmailTokenTTL = app.cfg.EmailTokenTTL

	app.AuthService = &service.AuthService{
		Store:      app.db,
		Tokens:     app.TokenService,
		Roles:      app.RoleService,
		Activity:   app.ActivityService,
		LoginRate:  rate.Every(app.cfg.LoginRefill),
		LoginBurst: app.cfg.LoginBurst,
	}

	app.housekeeping = service.NewHousekeepingService(
		app.db, app.logger, app.cfg.HousekeepingEvery, app.cfg.ActivityRetention)

	return nil
}
