package dondetu

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dondetu/dondetu/pkg/directory"
	"github.com/dondetu/dondetu/pkg/store"
	"github.com/dondetu/dondetu/pkg/store/cache"
	"github.com/dondetu/dondetu/pkg/store/firestore"
	"github.com/dondetu/dondetu/pkg/store/postgres"
	"github.com/dondetu/dondetu/pkg/store/surrealdb"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
)

// App holds the application state.
type App struct {
	store    store.Store
	loader   *directory.Loader
	config   *Config
	auth     *Authenticator
	logger   zerolog.Logger
	readOnly atomic.Bool
}

// New opens the configured backend and creates an application around it.
func New(ctx context.Context, config *Config, logger zerolog.Logger) (*App, error) {
	backend, err := openStore(ctx, config, logger)
	if err != nil {
		return nil, err
	}

	app, err := NewWithStore(config, backend, logger)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return app, nil
}

// NewWithStore creates an application on an already opened store.
func NewWithStore(config *Config, backend store.Store, logger zerolog.Logger) (*App, error) {
	app := &App{
		config: config,
		auth:   NewAuthenticator(config.Auth),
		logger: logger,
	}
	app.readOnly.Store(config.ReadOnly)

	// Wrap the store with read-only protection
	app.store = store.NewReadOnlyStore(backend, app.IsReadOnly)

	loader, err := directory.NewLoader(app.store,
		directory.WithLogger(logger),
		directory.WithConcurrency(config.Loader.Concurrency),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create loader: %w", err)
	}
	app.loader = loader

	return app, nil
}

func openStore(ctx context.Context, config *Config, logger zerolog.Logger) (store.Store, error) {
	var backend store.Store

	switch config.Backend {
	case BackendPostgres:
		s, err := postgres.NewPostgresStore(config.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		backend = s
	case BackendSQLite:
		s, err := postgres.New(sqlite.Open(config.SQLite.Path))
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		backend = s
	case BackendSurrealDB:
		s, err := surrealdb.New(ctx, surrealdb.Options{
			URL:       config.SurrealDB.URL,
			Namespace: config.SurrealDB.Namespace,
			Database:  config.SurrealDB.Database,
			Username:  config.SurrealDB.Username,
			Password:  config.SurrealDB.Password,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
		}
		backend = s
	case BackendFirestore:
		s, err := firestore.NewFirestoreStore(ctx, config.Firestore.ProjectID, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Firestore: %w", err)
		}
		backend = s
	default:
		return nil, fmt.Errorf("unknown backend %q", config.Backend)
	}
	logger.Info().Str("backend", config.Backend).Msg("Connected to store")

	if config.Redis.URL == "" {
		return backend, nil
	}

	cached, err := cache.New(backend, cache.Options{URL: config.Redis.URL, TTL: config.Redis.TTL}, logger)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	logger.Info().Dur("ttl", config.Redis.TTL).Msg("Redis cache enabled")
	return cached, nil
}

// Close closes the application and its resources
func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// Store returns the read-only guarded store.
func (a *App) Store() store.Store {
	return a.store
}

// Migrate prepares the backend's schema.
func (a *App) Migrate(ctx context.Context) error {
	if err := a.store.Migrate(ctx); err != nil {
		return err
	}
	a.logger.Info().Str("backend", a.config.Backend).Msg("Migration complete")
	return nil
}

// SetReadOnly freezes or unfreezes the directory. While frozen every write is
// rejected with store.ErrReadOnly and reads keep working.
func (a *App) SetReadOnly(readOnly bool) {
	a.readOnly.Store(readOnly)
	a.logger.Info().Bool("read_only", readOnly).Msg("Application read-only mode changed")
}

// IsReadOnly returns whether the application is currently in read-only mode.
func (a *App) IsReadOnly() bool {
	return a.readOnly.Load()
}
