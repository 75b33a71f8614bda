package backend

import (
	"context"
	"fmt"
	"log/slog"

	"carteira/internal/remote/memory"
	"carteira/internal/remote/sqlite"
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

// CreateCollaborator implements Factory.CreateCollaborator
func (f *DefaultFactory) CreateCollaborator(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case SQLite:
		return f.createSQLite(cfg)
	case Memory:
		return f.createMemory()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

func (f *DefaultFactory) createSQLite(cfg Config) (*Result, error) {
	store, err := sqlite.New(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite collaborator: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)

	return &Result{
		Collaborator: store,
		Cleanup:      store.Close,
	}, nil
}

func (f *DefaultFactory) createMemory() (*Result, error) {
	f.logger.Info("Initialized memory backend")

	return &Result{
		Collaborator: memory.New(),
		Cleanup:      nil,
	}, nil
}
