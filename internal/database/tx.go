package database

import (
	"context"
	"errors"
	"fmt"

	"jmkresearch-backend/internal/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const duplicateKeyCode = 11000

// TxManager runs a unit of work atomically when the deployment supports it.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type MongoTxManager struct {
	client  *mongo.Client
	enabled bool
}

func NewTxManager(mongodb *MongodbDB, cfg *config.Config, logger *zap.Logger) TxManager {
	if !cfg.MongoTransactions {
		logger.Warn("Mongo transactions disabled; user plan cascades run as independent writes")
	}
	return &MongoTxManager{client: mongodb.Client, enabled: cfg.MongoTransactions}
}

func (m *MongoTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if !m.enabled {
		return fn(ctx)
	}

	session, err := m.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

// NoTx runs fn directly. Used by tools and tests that have no replica set.
type NoTx struct{}

func (NoTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// CountInsertedIgnoringDuplicates interprets the result of an unordered
// InsertMany of n documents: duplicate-key write errors are counted as skipped,
// any other write error is returned.
func CountInsertedIgnoringDuplicates(n int, err error) (inserted, skipped int64, _ error) {
	if err == nil {
		return int64(n), 0, nil
	}
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return 0, 0, err
	}
	if bwe.WriteConcernError != nil {
		return 0, 0, err
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != duplicateKeyCode {
			return 0, 0, err
		}
		skipped++
	}
	return int64(n) - skipped, skipped, nil
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
