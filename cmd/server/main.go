package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/skfsd/go-auth"
	"github.com/skfsd/go-auth/activitymap"
	"github.com/skfsd/go-auth/api"
	"github.com/skfsd/go-auth/config"
	"github.com/skfsd/go-auth/logging"
	"github.com/skfsd/go-auth/middleware/jwtware"
	"github.com/skfsd/go-auth/persistence"
	"github.com/skfsd/go-auth/repository"
	"github.com/skfsd/go-auth/repository/mongousers"
)

type App struct {
	config *config.Config
	logger *logging.Logger
	users  auth.Users
	srv    *fiber.App
	closer func(context.Context) error
}

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &App{config: cfg, logger: logger}
	if err := app.SetupStore(ctx); err != nil {
		logger.Error("store setup failed", "error", err)
		os.Exit(1)
	}
	app.SetupServer()

	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.App.Addr(), "env", cfg.App.Env, "driver", cfg.DB.Driver)
		errc <- app.srv.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-errc:
		if err != nil {
			logger.Error("server stopped", "error", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.srv.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if app.closer != nil {
		if err := app.closer(shutdownCtx); err != nil {
			logger.Error("store close", "error", err)
		}
	}
}

// SetupStore connects the configured backend and prepares its schema
func (a *App) SetupStore(ctx context.Context) error {
	switch a.config.DB.Driver {
	case "mongo":
		client, err := mongousers.Connect(ctx, a.config.Mongo.URI)
		if err != nil {
			return err
		}
		users := mongousers.NewUsers(client.Database(a.config.Mongo.Database))
		if err := users.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("mongo indexes: %w", err)
		}
		a.users = users
		a.closer = client.Disconnect
		a.logger.Info("MongoDB connected", "database", a.config.Mongo.Database)
		return nil

	case persistence.DriverSQLite, persistence.DriverPostgres:
		db, err := persistence.Open(ctx, persistence.Config{
			Driver: a.config.DB.Driver,
			DSN:    a.config.DB.URL,
			Debug:  a.config.DB.Debug,
		})
		if err != nil {
			return err
		}
		if err := persistence.Migrate(ctx, db); err != nil {
			db.Close()
			return err
		}
		repo := repository.NewManager(db)
		if err := repo.Validate(); err != nil {
			db.Close()
			return err
		}
		a.users = repo.Users()
		a.closer = func(context.Context) error { return db.Close() }
		a.logger.Info("database ready", "driver", a.config.DB.Driver)
		return nil
	}

	return errors.New("unsupported DB_DRIVER " + a.config.DB.Driver)
}

// SetupServer wires the services and mounts the routes
func (a *App) SetupServer() {
	opts := []auth.TokenServiceOption{
		auth.WithTokenLogger(a.logger.Named("tokens")),
	}
	if a.config.JWT.Issuer != "" {
		opts = append(opts, auth.WithTokenIssuer(a.config.JWT.Issuer))
	}
	if a.config.JWT.Audience != "" {
		opts = append(opts, auth.WithTokenAudience(a.config.JWT.Audience))
	}
	tokens := auth.NewTokenService([]byte(a.config.JWT.Secret), a.config.JWT.ExpiresIn, opts...)

	accountsLogger := a.logger.Named("accounts")
	accounts := auth.NewAccountService(a.users, tokens, auth.NewHasher(a.config.Auth.BcryptCost)).
		WithLogger(accountsLogger).
		WithActivitySink(activitymap.LogSink(a.logger.Named("activity"))).
		WithRequireActive(a.config.Auth.RequireActive)

	protect := jwtware.New(jwtware.Config{
		TokenValidator:       tokens,
		Users:                a.users,
		RequireActive:        a.config.Auth.RequireActive,
		RequireVerifiedEmail: a.config.Auth.RequireVerifiedEmail,
		Logger:               a.logger.Named("jwtware"),
	})

	a.srv = fiber.New(fiber.Config{
		AppName:               "SKFSD Backend",
		DisableStartupMessage: a.config.App.IsProduction(),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			if code == fiber.StatusInternalServerError {
				a.logger.Error("unhandled error", "path", c.Path(), "error", err)
				return c.Status(code).JSON(fiber.Map{"message": "Server error."})
			}
			return c.Status(code).JSON(fiber.Map{"message": err.Error()})
		},
	})
	a.srv.Use(recover.New())

	a.srv.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("SKFSD Backend is running")
	})

	users := api.NewUsersController(accounts, api.WithLogger(a.logger.Named("api")))
	api.RegisterRoutes(a.srv.Group("/api/users"), users, protect)
}
