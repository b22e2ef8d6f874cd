package backend

import (
	"context"
	"fmt"
	"log/slog"

	"expensetracker/internal/storage"
	"expensetracker/internal/store/csvfile"
	"expensetracker/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend. The returned store has
// already been ensured.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case CSVBackend:
		res = f.createCSVBackend(config)
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		res = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := res.Store.Ensure(ctx); err != nil {
		res.Close()
		return nil, fmt.Errorf("ensure %s store: %w", config.Type, err)
	}
	return res, nil
}

func (f *DefaultFactory) createCSVBackend(config Config) *BackendResult {
	f.logger.Info("Initialized CSV backend", "path", config.ExpenseStorePath)
	return &BackendResult{Store: csvfile.New(config.ExpenseStorePath)}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) *BackendResult {
	f.logger.Info("Initialized memory backend", "seeded_rows", config.Seed.Len())
	return &BackendResult{Store: memory.New(config.Seed)}
}
