// Package bootstrap wires configuration, storage, locking and the lifecycle
// engine for the API server and the admin CLI.
package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"docflow/internal/config"
	"docflow/internal/database"
	"docflow/internal/locker"
	"docflow/internal/models"
	"docflow/internal/repository"
	"docflow/internal/service"
	"docflow/internal/workflow"
	"docflow/migrations"
)

// App holds the wired application components
type App struct {
	Config          *config.Config
	DB              *database.Database
	Users           *repository.UserRepository
	Documents       *repository.DocumentRepository
	Locker          locker.Locker
	Authorizer      *workflow.Authorizer
	DocumentService *service.DocumentService

	redis *redis.Client
}

// New connects to the database and the lock backend and builds the services.
// Pending migrations are applied when cfg.Database.AutoMigrate is set.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, err
	}
	slog.Info("Database connection established")

	app := &App{
		Config:     cfg,
		DB:         db,
		Users:      repository.NewUserRepository(db.DB),
		Documents:  repository.NewDocumentRepository(db.DB),
		Authorizer: workflow.NewAuthorizer(),
	}

	if cfg.Database.AutoMigrate {
		applied, err := db.RunMigrations(ctx, MigrationsFS(&cfg.Database))
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		slog.Info("Database migrations completed", "applied", len(applied))
	}

	app.Locker, app.redis = NewLocker(cfg)
	if rl, ok := app.Locker.(*locker.RedisLocker); ok {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rl.Ping(pingCtx); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("Using redis document locks", "addr", cfg.Redis.Addr)
	}

	app.DocumentService = service.NewDocumentService(
		app.Documents,
		app.Users,
		app.Locker,
		service.NewReviewerService(app.Users, ReviewerCriteria(&cfg.Workflow)),
		service.NewAuditService(app.Documents),
		service.Options{
			StageDeadline:     cfg.Workflow.StageDeadline,
			RejectPlaceholder: cfg.Workflow.RejectPlaceholder,
		},
	)

	return app, nil
}

// Close releases the database and redis connections
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Error("Failed to close redis client", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}
}

// MigrationsFS returns the configured migrations directory, or the
// migrations compiled into the binary when none is configured
func MigrationsFS(cfg *config.DatabaseConfig) fs.FS {
	if cfg.MigrationsPath != "" {
		return os.DirFS(cfg.MigrationsPath)
	}
	return migrations.FS
}

// NewLocker builds the configured per-document locker. The redis client is
// nil for the local backend.
func NewLocker(cfg *config.Config) (locker.Locker, *redis.Client) {
	if cfg.Lock.Backend != config.LockBackendRedis {
		return locker.NewLocalLocker(cfg.Lock.WaitTimeout), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return locker.NewRedisLocker(client, locker.RedisOptions{
		Prefix: cfg.Lock.Prefix,
		TTL:    cfg.Lock.TTL,
		Wait:   cfg.Lock.WaitTimeout,
	}), client
}

// ReviewerCriteria converts the configured reviewer pool
func ReviewerCriteria(cfg *config.WorkflowConfig) service.ReviewerCriteria {
	criteria := service.ReviewerCriteria{Departments: cfg.ReviewerDepartments}
	for _, r := range cfg.ReviewerRoles {
		criteria.Roles = append(criteria.Roles, models.Role(r))
	}
	return criteria
}
