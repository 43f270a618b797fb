package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	todoapi "github.com/goliatone/go-todo-api"
	"github.com/goliatone/go-todo-api/middleware/jwtware"
	"github.com/goliatone/go-todo-api/middleware/requestware"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	cfg := todoapi.NewConfigFromEnv()
	logger := todoapi.NewLogger(cfg)

	keys, err := todoapi.LoadKeyPair(cfg.PrivateKeyPath, cfg.PublicKeyPath)
	if err != nil {
		logger.Error("failed to load signing keys", "error", err)
		os.Exit(1)
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer sqldb.Close()

	db := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	if err := createSchema(ctx, db); err != nil {
		logger.Error("failed to create schema", "error", err)
		os.Exit(1)
	}

	repo := todoapi.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		logger.Error("repository validation failed", "error", err)
		os.Exit(1)
	}

	provider := todoapi.NewUserProvider(repo.Users()).WithLogger(logger)
	auther := todoapi.NewAuthenticator(provider, keys, cfg).WithLogger(logger)
	register := todoapi.NewRegisterUserHandler(repo).WithLogger(logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ErrorHandler: todoapi.NewErrorHandler(logger),
	})

	app.Use(requestware.New(requestware.Config{Logger: logger}))
	app.Use(recover.New())

	protected := jwtware.New(jwtware.Config{
		TokenValidator:   auther.TokenService(),
		IdentityVerifier: provider,
	})

	controller := todoapi.NewAPIController(auther, register, repo.Users(), repo.Todos(),
		todoapi.WithControllerLogger(logger),
		todoapi.WithHealthChecker(repo),
		todoapi.WithAppName(cfg.AppName),
	)
	controller.RegisterRoutes(app, protected)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "addr", cfg.HTTPAddr)
	if err := app.Listen(cfg.HTTPAddr); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func createSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*todoapi.User)(nil),
		(*todoapi.Todo)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}
