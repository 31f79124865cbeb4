// Package app wires configuration into stores, adapters and services. Every
// command builds the same object graph through it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/vncsmyrnk/gradgate/internal/adapters/dispatch/preview"
	"github.com/vncsmyrnk/gradgate/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/gradgate/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/gradgate/internal/adapters/source/jsonfile"
	"github.com/vncsmyrnk/gradgate/internal/adapters/source/mysql"
	"github.com/vncsmyrnk/gradgate/internal/adapters/whitelist"
	"github.com/vncsmyrnk/gradgate/internal/config"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/core/ports"
	"github.com/vncsmyrnk/gradgate/internal/core/services"
)

// Store bundles the repositories of one database.
type Store struct {
	DB         *sql.DB
	Graduates  ports.GraduateRepository
	Companions ports.CompanionRepository
	Lock       ports.SyncLock
	Health     ports.StoreHealth
}

// OpenStore connects to the configured database and applies pending
// migrations.
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Store{
			DB:         db,
			Graduates:  sqlite.NewGraduateRepository(db),
			Companions: sqlite.NewCompanionRepository(db),
			Lock:       sqlite.NewSyncLockRepository(db),
			Health:     sqlite.NewStoreHealth(db),
		}, nil

	case config.StorePostgres:
		db, err := postgres.Open(ctx, postgresConfig(cfg).ConnString())
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &Store{
			DB:         db,
			Graduates:  postgres.NewGraduateRepository(db),
			Companions: postgres.NewCompanionRepository(db),
			Lock:       postgres.NewSyncLockRepository(db),
			Health:     postgres.NewStoreHealth(db),
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func postgresConfig(cfg *config.Config) postgres.Config {
	return postgres.Config{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		DBName:   cfg.Postgres.DB,
		SSLMode:  cfg.Postgres.SSLMode,
	}
}

// NewSource builds the configured remote source. The returned closer is
// never nil.
func NewSource(cfg *config.Config, logger *slog.Logger) (ports.RemoteSource, io.Closer, error) {
	switch cfg.SourceDriver {
	case config.SourceJSONFile:
		return jsonfile.New(cfg.SourceFile), io.NopCloser(nil), nil
	case config.SourceMySQL:
		src, err := mysql.New(mysql.Config{
			Host:     cfg.RemoteMySQL.Host,
			Port:     cfg.RemoteMySQL.Port,
			User:     cfg.RemoteMySQL.User,
			Password: cfg.RemoteMySQL.Password,
			DBName:   cfg.RemoteMySQL.DB,
			Timeout:  cfg.RemoteMySQL.Timeout,
			FromDate: cfg.FromDate,
			Location: cfg.Location,
		}, logger.With("component", "source"))
		if err != nil {
			return nil, nil, err
		}
		return src, src, nil
	}
	return nil, nil, fmt.Errorf("unknown source driver %q", cfg.SourceDriver)
}

type App struct {
	Config *config.Config
	Logger *slog.Logger
	Store  *Store

	Sync         ports.SyncService
	Credentials  ports.CredentialService
	Verification ports.VerificationService
	Dispatch     ports.DispatchService
	Admin        ports.AdminService

	source io.Closer
}

// New opens the store and the remote source and builds every service.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	source, sourceCloser, err := NewSource(cfg, logger)
	if err != nil {
		store.DB.Close()
		return nil, err
	}

	sender, err := preview.NewSender(cfg.DispatchPreviewDir)
	if err != nil {
		sourceCloser.Close()
		store.DB.Close()
		return nil, err
	}

	now := time.Now
	a := &App{
		Config: cfg,
		Logger: logger,
		Store:  store,
		source: sourceCloser,
	}
	a.Sync = services.NewSyncService(services.SyncDeps{
		Source:     source,
		Whitelist:  whitelist.NewFileLoader(cfg.WhitelistPath, cfg.WhitelistColumn),
		Graduates:  store.Graduates,
		Companions: store.Companions,
		Lock:       store.Lock,
		Health:     store.Health,
		Logger:     logger.With("component", "sync"),
		Now:        now,
	}, services.SyncConfig{
		MatchField:     domain.MatchField(cfg.MatchField),
		LockLease:      cfg.SyncLockLease,
		AllowEmptyFeed: cfg.AllowEmptyFeed,
	})
	a.Credentials = services.NewCredentialService(store.Companions, services.NewTokenGenerator(), logger.With("component", "credentials"), now)
	a.Verification = services.NewVerificationService(store.Companions, cfg.Policy, logger.With("component", "verify"), now)
	a.Dispatch = services.NewDispatchService(store.Companions, sender, logger.With("component", "dispatch"), now)
	a.Admin = services.NewAdminService(store.Graduates, store.Companions, store.Health, logger.With("component", "admin"))

	return a, nil
}

func (a *App) Close() error {
	return errors.Join(a.source.Close(), a.Store.DB.Close())
}
