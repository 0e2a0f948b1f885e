package audit

import (
	"context"

	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AuditRepository interface {
	Create(ctx context.Context, log common_models.AuditLog) error
	List(ctx context.Context, filter LogFilter, limit, offset int64) ([]common_models.AuditLog, int64, error)
	EnsureIndexes(ctx context.Context) error
}

type AuditRepositoryImpl struct {
	collection *mongo.Collection
}

func NewAuditRepository(mongodb *database.MongodbDB) AuditRepository {
	return &AuditRepositoryImpl{
		collection: mongodb.DB.Collection("audit_logs"),
	}
}

func (r *AuditRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "module", Value: 1}, {Key: "record_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	return err
}

func (r *AuditRepositoryImpl) Create(ctx context.Context, log common_models.AuditLog) error {
	_, err := r.collection.InsertOne(ctx, log)
	return err
}

func (r *AuditRepositoryImpl) List(ctx context.Context, filter LogFilter, limit, offset int64) ([]common_models.AuditLog, int64, error) {
	query := filterQuery(filter)

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetLimit(limit).SetSkip(offset).SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	logs := []common_models.AuditLog{}
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func filterQuery(f LogFilter) bson.M {
	query := bson.M{}
	if f.Module != "" {
		query["module"] = f.Module
	}
	if f.RecordID != "" {
		query["record_id"] = f.RecordID
	}
	if f.ActorID != "" {
		query["actor_id"] = f.ActorID
	}
	if f.Action != "" {
		query["action"] = f.Action
	}
	if f.Since != nil {
		query["timestamp"] = bson.M{"$gte": *f.Since}
	}
	return query
}
