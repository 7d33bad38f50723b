package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/heraerp/hera-engine/pkg/auth"
	"github.com/heraerp/hera-engine/pkg/config"
	"github.com/heraerp/hera-engine/pkg/database"
	"github.com/heraerp/hera-engine/pkg/handlers"
	"github.com/heraerp/hera-engine/pkg/logging"
	"github.com/heraerp/hera-engine/pkg/middleware"
	"github.com/heraerp/hera-engine/pkg/repositories"
	"github.com/heraerp/hera-engine/pkg/retry"
	"github.com/heraerp/hera-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.URL())))

	ctx := context.Background()
	var db *database.DB
	err = retry.Do(ctx, retry.DefaultConfig(), func() error {
		var connErr error
		db, connErr = database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.URL(),
			MaxConnections: cfg.Database.MaxConnections,
		})
		return connErr
	})
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	migrationDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := migrationDB.Close(); err != nil {
		logger.Fatal("Failed to close migration connection", zap.Error(err))
	}

	store := repositories.NewStore(db)
	repos := store.Repos()

	orgService := services.NewOrganizationService(repos, logger)
	entityService := services.NewEntityService(store, repos, logger)
	relationshipService := services.NewRelationshipService(store, repos, logger)
	transactionService := services.NewTransactionService(store, repos, logger)
	introspectionService := services.NewIntrospectionService(repos, logger)

	verifier := auth.NewVerifier(cfg.Auth.TokenSecret, cfg.Auth.EnableVerification)
	authMiddleware := auth.NewMiddleware(verifier, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewOrganizationHandler(orgService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewEntityHandler(entityService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewRelationshipHandler(relationshipService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewTransactionHandler(transactionService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewIntrospectHandler(introspectionService, logger).RegisterRoutes(mux, authMiddleware)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting hera-engine", zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func buildLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
