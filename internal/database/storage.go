package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"studytime-backend/internal/config"
	"studytime-backend/internal/repository"
	"studytime-backend/internal/repository/boltstore"
	"studytime-backend/internal/repository/memory"
)

// Stores bundles the repositories the services depend on.
type Stores struct {
	Sessions  repository.SessionStore
	Breaks    repository.BreakStore
	Subjects  repository.SubjectStore
	Semesters repository.SemesterStore
	// Tx groups session and break writes of one lifecycle operation.
	Tx repository.Transactor

	// Ping reports backend health for /health.
	Ping  func(ctx context.Context) error
	Close func()
}

// OpenStores builds the stores selected by cfg.StorageBackend.
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return NewMemoryStores(), nil

	case config.StorageBolt:
		client, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		logger.Info("using bolt storage", zap.String("path", cfg.BoltPath))
		return &Stores{
			Sessions:  client.Sessions(),
			Breaks:    client.Breaks(),
			Subjects:  client.Subjects(),
			Semesters: client.Semesters(),
			Tx:        client,
			Ping:      func(context.Context) error { return nil },
			Close:     func() { client.Close() },
		}, nil

	case config.StoragePostgres:
		pool, err := NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := RunMigrations(ctx, pool, cfg.MigrationsDir, logger); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("using postgres storage")
		return &Stores{
			Sessions:  repository.NewStudySessionRepo(pool),
			Breaks:    repository.NewBreakRepo(pool),
			Subjects:  repository.NewSubjectRepo(pool),
			Semesters: repository.NewSemesterRepo(pool),
			Tx:        repository.NewPgTransactor(pool),
			Ping:      pool.Ping,
			Close:     pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func NewMemoryStores() *Stores {
	store := memory.New()
	return &Stores{
		Sessions:  store.Sessions(),
		Breaks:    store.Breaks(),
		Subjects:  store.Subjects(),
		Semesters: store.Semesters(),
		Tx:        store,
		Ping:      func(context.Context) error { return nil },
		Close:     func() {},
	}
}
