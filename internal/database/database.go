package database

import (
	"context"
	"time"

	"jmkresearch-backend/internal/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// MongodbDB bundles the client (needed for sessions) and the selected database.
type MongodbDB struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// NewDatabase creates a new MongoDB database connection with lifecycle management
func NewDatabase(lc fx.Lifecycle, cfg *config.Config) (*MongodbDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(cfg.DBName)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})

	return &MongodbDB{Client: client, DB: db}, nil
}

// Ping checks that the primary is reachable.
func (m *MongodbDB) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

// IndexInitializer is implemented by repositories that own unique indexes.
type IndexInitializer interface {
	EnsureIndexes(ctx context.Context) error
}

// EnsureAllIndexes creates every repository's indexes. Uniqueness invariants
// depend on these, so the first failure aborts.
func EnsureAllIndexes(ctx context.Context, logger *zap.Logger, initializers ...IndexInitializer) error {
	for _, ini := range initializers {
		if err := ini.EnsureIndexes(ctx); err != nil {
			logger.Error("Failed to ensure indexes", zap.String("repository", typeName(ini)), zap.Error(err))
			return err
		}
	}
	logger.Info("Indexes ensured", zap.Int("repositories", len(initializers)))
	return nil
}
