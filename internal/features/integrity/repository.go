package integrity

import (
	"context"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const entity = "integrity report"

type ReportRepository interface {
	Create(ctx context.Context, report *Report) error
	Update(ctx context.Context, report *Report) error
	List(ctx context.Context, limit int64) ([]Report, error)
	EnsureIndexes(ctx context.Context) error
}

type ReportRepositoryImpl struct {
	collection *mongo.Collection
}

func NewReportRepository(db *database.MongodbDB) ReportRepository {
	return &ReportRepositoryImpl{
		collection: db.DB.Collection("integrity_reports"),
	}
}

func (r *ReportRepositoryImpl) Create(ctx context.Context, report *Report) error {
	if report.ID.IsZero() {
		report.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, report)
	return apperrors.FromMongo(err, entity, report.ID.Hex())
}

func (r *ReportRepositoryImpl) Update(ctx context.Context, report *Report) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": report.ID}, report)
	return apperrors.FromMongo(err, entity, report.ID.Hex())
}

func (r *ReportRepositoryImpl) List(ctx context.Context, limit int64) ([]Report, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, apperrors.FromMongo(err, entity, "")
	}
	defer cursor.Close(ctx)

	reports := []Report{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, apperrors.FromMongo(err, entity, "")
	}
	return reports, nil
}

func (r *ReportRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "start_time", Value: -1}},
	})
	return err
}
