package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/target/todo-platform/config"
	"github.com/target/todo-platform/internal/bootstrap"
	"github.com/target/todo-platform/internal/observability/metrics"
)

func main() {
	logger := bootstrap.InitLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if err = bootstrap.ValidateServiceConfig(&cfg); err != nil {
		return err
	}
	logStartupInfo(ctx, logger, &cfg)

	db, redisClient, err := initInfrastructure(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer closeInfrastructure(ctx, logger, db, redisClient)

	if db != nil {
		if cfg.Postgres.RunMigrationsOnStart {
			if err = bootstrap.RunMigrations(ctx, db, logger); err != nil {
				return err
			}
		} else {
			logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:  &cfg,
		DB:      db,
		Redis:   redisClient,
		Metrics: m,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}

	servers, err := bootstrap.BuildServers(&bootstrap.HTTPServerConfig{
		Config:   &cfg,
		Services: services,
		DB:       db,
		Redis:    redisClient,
		Metrics:  m,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	return bootstrap.RunServers(ctx, servers, logger)
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting todo platform",
		"enabled_services", bootstrap.GetEnabledServices(cfg),
		"session_store", cfg.Auth.SessionStore,
		"admin_policy", cfg.Auth.AdminPolicy,
		"dev", cfg.IsDev)
}

// initInfrastructure connects only what the enabled services use.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func initInfrastructure(
	ctx context.Context,
	cfg *config.AppConfig,
	logger *slog.Logger,
) (*sql.DB, redis.UniversalClient, error) {
	enabled, err := cfg.GetEnabledServices()
	if err != nil {
		return nil, nil, err
	}

	var db *sql.DB
	if enabled[config.ServiceModeTodo] || enabled[config.ServiceModeUsers] {
		db, err = bootstrap.ConnectDB(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect db: %w", err)
		}
	}

	if !enabled[config.ServiceModeTodo] || cfg.Auth.SessionStore == config.SessionStoreMemory {
		return db, nil, nil
	}
	redisClient, err := bootstrap.ConnectRedis(ctx, cfg.Redis, logger)
	if err != nil {
		if db != nil {
			if cerr := db.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("close database: %w", cerr))
			}
		}
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return db, redisClient, nil
}

func closeInfrastructure(ctx context.Context, logger *slog.Logger, db *sql.DB, redisClient redis.UniversalClient) {
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.ErrorContext(ctx, "close redis failed", "error", err)
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.ErrorContext(ctx, "close database failed", "error", err)
		}
	}
}
