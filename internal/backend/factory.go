package backend

import (
	"context"
	"fmt"
	"log/slog"

	"savvy/internal/records/memory"
	"savvy/internal/records/postgrest"
	"savvy/internal/session"
	"savvy/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case PostgRESTBackend:
		return f.createPostgRESTBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Ping:    repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

// createPostgRESTBackend forwards each request's session token so the hosted
// store applies its row-level policy for that user.
func (f *DefaultFactory) createPostgRESTBackend(config Config) (*BackendResult, error) {
	opts := []postgrest.Option{
		postgrest.WithLogger(f.logger),
		postgrest.WithTokenFunc(session.TokenFromContext),
	}
	if config.RequestTimeout > 0 {
		opts = append(opts, postgrest.WithTimeout(config.RequestTimeout))
	}
	cli, err := postgrest.New(config.PostgRESTURL, config.PostgRESTAPIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgREST client: %w", err)
	}

	f.logger.Info("Initialized PostgREST backend", "url", config.PostgRESTURL)

	return &BackendResult{Store: cli}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.New()
	seeded := 0
	if config.DemoOwner != "" {
		store.Seed(config.DemoOwner, config.Reference.SampleTransactions, config.Reference.SampleGoals)
		seeded = len(config.Reference.SampleTransactions) + len(config.Reference.SampleGoals)
	}

	f.logger.Info("Initialized memory backend", "demo_owner", config.DemoOwner, "seeded_rows", seeded)

	return &BackendResult{Store: store}, nil
}
