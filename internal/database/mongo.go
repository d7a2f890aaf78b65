package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chorely/chorely/internal/config"
	"github.com/chorely/chorely/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection and index names
const (
	UsersCollection = "users"
	TasksCollection = "tasks"

	MongoUsernameIndex = "uniq_username"
	MongoEmailIndex    = "uniq_email"
)

// Mongo wraps a client bound to the application database
type Mongo struct {
	Client *mongodriver.Client
	DB     *mongodriver.Database
	logger *slog.Logger
}

// NewMongo connects, pings the primary and ensures indexes
func NewMongo(ctx context.Context, cfg *config.MongoConfig, logger *slog.Logger) (*Mongo, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo: empty MONGODB_URI")
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	m := &Mongo{
		Client: cli,
		DB:     cli.Database(cfg.Database),
		logger: logger,
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = m.Close(context.Background())
		return nil, err
	}

	logger.Info("mongo connection established", slog.String("database", cfg.Database))
	return m, nil
}

// ensureIndexes creates:
//   - unique username and unique email on users
//   - refresh_tokens multikey index for rotation lookups
//   - owner + created_at on tasks
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	users := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName(MongoUsernameIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(MongoEmailIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "refresh_tokens", Value: 1}},
			Options: options.Index().SetName("refresh_tokens"),
		},
	}
	if _, err := m.DB.Collection(UsersCollection).Indexes().CreateMany(ctx, users); err != nil {
		return fmt.Errorf("mongo ensure user indexes: %w", err)
	}

	tasks := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("owner_created_asc"),
		},
	}
	if _, err := m.DB.Collection(TasksCollection).Indexes().CreateMany(ctx, tasks); err != nil {
		return fmt.Errorf("mongo ensure task indexes: %w", err)
	}

	return nil
}

// Close disconnects the client
func (m *Mongo) Close(ctx context.Context) error {
	m.logger.Info("closing mongo connection")
	return m.Client.Disconnect(ctx)
}

// HealthCheck pings the primary
func (m *Mongo) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := m.Client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo health check failed: %w", err)
	}
	return nil
}

// MapMongoError translates driver errors into model sentinels
func MapMongoError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return models.ErrNotFound
	}

	if mongodriver.IsDuplicateKeyError(err) {
		msg := err.Error()
		switch {
		case strings.Contains(msg, MongoUsernameIndex):
			return models.ErrUsernameExists
		case strings.Contains(msg, MongoEmailIndex):
			return models.ErrEmailExists
		}
		return models.ErrConflict
	}

	return err
}
