package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chorely/chorely/internal/config"
	"github.com/chorely/chorely/internal/database"
	"github.com/chorely/chorely/internal/repositories"
	"github.com/chorely/chorely/internal/services"
)

// Users is a credential store: accounts plus their refresh-token sets
type Users interface {
	services.UserRepository
	services.RefreshTokenRepository
}

// Store bundles the repositories of one backend
type Store struct {
	Driver string
	Users  Users
	Tasks  services.TaskRepository

	healthCheck func(ctx context.Context) error
	close       func(ctx context.Context) error
}

// Open connects to the backend selected by STORE_DRIVER. Postgres
// migrations are applied before returning; Mongo indexes are ensured on
// connect.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	switch cfg.Server.StoreDriver {
	case config.DriverPostgres:
		db, err := database.NewConnection(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return &Store{
			Driver:      config.DriverPostgres,
			Users:       repositories.NewUserRepository(db),
			Tasks:       repositories.NewTaskRepository(db),
			healthCheck: db.HealthCheck,
			close: func(context.Context) error {
				db.Close()
				return nil
			},
		}, nil

	case config.DriverMongo:
		m, err := database.NewMongo(ctx, &cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		return &Store{
			Driver:      config.DriverMongo,
			Users:       repositories.NewMongoUserRepository(m),
			Tasks:       repositories.NewMongoTaskRepository(m),
			healthCheck: m.HealthCheck,
			close:       m.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Server.StoreDriver)
	}
}

// HealthCheck pings the backend
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.healthCheck(ctx)
}

// Close releases the backend connection
func (s *Store) Close(ctx context.Context) error {
	return s.close(ctx)
}
