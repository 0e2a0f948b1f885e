package permission

import (
	"context"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PermissionRepository interface {
	Create(ctx context.Context, permission *Permission) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Permission, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]Permission, error)
	List(ctx context.Context, filter ListFilter) ([]Permission, error)
	Update(ctx context.Context, permission *Permission) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	ListIDs(ctx context.Context) ([]primitive.ObjectID, error)
	CountByDomain(ctx context.Context, domainID primitive.ObjectID) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type PermissionRepositoryImpl struct {
	collection *mongo.Collection
}

func NewPermissionRepository(mongodb *database.MongodbDB) PermissionRepository {
	return &PermissionRepositoryImpl{
		collection: mongodb.DB.Collection("permissions"),
	}
}

func (r *PermissionRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "domain", Value: 1}}},
		{Keys: bson.D{{Key: "is_active", Value: 1}}},
	})
	return err
}

func (r *PermissionRepositoryImpl) Create(ctx context.Context, permission *Permission) error {
	_, err := r.collection.InsertOne(ctx, permission)
	return apperrors.FromMongo(err, "permission", permission.ID.Hex())
}

func (r *PermissionRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Permission, error) {
	var permission Permission
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&permission); err != nil {
		return nil, apperrors.FromMongo(err, "permission", id.Hex())
	}
	return &permission, nil
}

func (r *PermissionRepositoryImpl) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]Permission, error) {
	permissions := []Permission{}
	if len(ids) == 0 {
		return permissions, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &permissions); err != nil {
		return nil, err
	}
	return permissions, nil
}

func (r *PermissionRepositoryImpl) List(ctx context.Context, filter ListFilter) ([]Permission, error) {
	query := bson.M{}
	if filter.Domain != nil {
		query["domain"] = *filter.Domain
	}
	if filter.IsActive != nil {
		query["is_active"] = *filter.IsActive
	}
	if len(filter.Exclude) > 0 {
		query["_id"] = bson.M{"$nin": filter.Exclude}
	}

	opts := options.Find().SetSort(bson.D{{Key: "domain", Value: 1}, {Key: "instance", Value: 1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	permissions := []Permission{}
	if err := cursor.All(ctx, &permissions); err != nil {
		return nil, err
	}
	return permissions, nil
}

func (r *PermissionRepositoryImpl) Update(ctx context.Context, permission *Permission) error {
	update := bson.M{
		"$set": bson.M{
			"domain":      permission.Domain,
			"actions":     permission.Actions,
			"instance":    permission.Instance,
			"description": permission.Description,
			"is_active":   permission.IsActive,
			"updated_at":  permission.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": permission.ID}, update)
	if err != nil {
		return apperrors.FromMongo(err, "permission", permission.ID.Hex())
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("permission", permission.ID.Hex())
	}
	return nil
}

func (r *PermissionRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return apperrors.NotFound("permission", id.Hex())
	}
	return nil
}

func (r *PermissionRepositoryImpl) ListIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (r *PermissionRepositoryImpl) CountByDomain(ctx context.Context, domainID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"domain": domainID})
}
