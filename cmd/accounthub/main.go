// AccountHub - Authentication & Authorization Service
//
// This is the main entry point for the AccountHub service. AccountHub
// provides account registration, cookie-based sessions, role gating, and
// one-time-token flows for password reset and email verification behind a
// JSON REST API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/accounthub/migrations"

	"github.com/nerrad567/accounthub/internal/api"
	"github.com/nerrad567/accounthub/internal/audit"
	"github.com/nerrad567/accounthub/internal/auth"
	"github.com/nerrad567/accounthub/internal/infrastructure/config"
	"github.com/nerrad567/accounthub/internal/infrastructure/database"
	"github.com/nerrad567/accounthub/internal/infrastructure/influxdb"
	"github.com/nerrad567/accounthub/internal/infrastructure/logging"
	"github.com/nerrad567/accounthub/internal/mail"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting AccountHub",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	users := auth.NewUserRepository(db.DB)
	roles := auth.NewRoleRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	// Seed built-in roles, then the bootstrap admin on an empty database
	if seedErr := auth.SeedRoles(ctx, roles); seedErr != nil {
		return fmt.Errorf("seeding roles: %w", seedErr)
	}
	if seedErr := auth.SeedSuperAdmin(ctx, users, roles, log); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}

	// Outbound mail: real SMTP when enabled, log-only otherwise
	var mailer mail.Mailer
	if cfg.Mail.Enabled {
		smtp, mailErr := mail.NewSMTPMailer(cfg.Mail)
		if mailErr != nil {
			return fmt.Errorf("creating mailer: %w", mailErr)
		}
		mailer = smtp
		log.Info("SMTP mailer configured", "host", cfg.Mail.Host, "port", cfg.Mail.Port)
	} else {
		mailer = mail.NewLogMailer(log)
		log.Info("mail delivery disabled, logging outbound mail")
	}

	// Connect to InfluxDB (optional)
	metrics, err := influxdb.Connect(cfg.Metrics)
	switch {
	case err == nil:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := metrics.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		metrics.SetOnError(func(writeErr error) {
			log.Error("InfluxDB write error", "error", writeErr)
		})
		log.Info("InfluxDB connected",
			"url", cfg.Metrics.URL,
			"org", cfg.Metrics.Org,
			"bucket", cfg.Metrics.Bucket,
		)
	case errors.Is(err, influxdb.ErrDisabled):
		metrics = nil
		log.Info("metrics disabled")
	default:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	}

	// Start API server
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Security: cfg.Security,
		Service:  cfg.Service,
		Logger:   log,
		Users:    users,
		Roles:    roles,
		Tokens:   auth.NewOneTimeTokens(users),
		Mailer:   mailer,
		Audit:    auditRepo,
		Metrics:  metrics,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server listening", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, server, metrics); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. Database

	log.Info("AccountHub stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ACCOUNTHUB_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ACCOUNTHUB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, server *api.Server, metrics *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	// Metrics sink is optional
	if metrics != nil {
		if err := metrics.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
