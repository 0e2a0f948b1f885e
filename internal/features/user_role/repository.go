package user_role

import (
	"context"
	"time"

	"jmkresearch-backend/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRoleRepository interface {
	InsertMany(ctx context.Context, assignments []UserRole) (added, skipped int64, err error)
	DeleteByUserAndRoles(ctx context.Context, userID primitive.ObjectID, roleIDs []primitive.ObjectID) (int64, error)
	DeleteByUserID(ctx context.Context, userID primitive.ObjectID) (int64, error)
	DeleteByRoleID(ctx context.Context, roleID primitive.ObjectID) (int64, error)
	DeleteOrphans(ctx context.Context, userIDs, roleIDs []primitive.ObjectID, createdBefore time.Time) (int64, error)
	FindByUserID(ctx context.Context, userID primitive.ObjectID) ([]UserRole, error)
	EnsureIndexes(ctx context.Context) error
}

type UserRoleRepositoryImpl struct {
	collection *mongo.Collection
}

func NewUserRoleRepository(mongodb *database.MongodbDB) UserRoleRepository {
	return &UserRoleRepositoryImpl{
		collection: mongodb.DB.Collection("user_roles"),
	}
}

func (r *UserRoleRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "role_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "role_id", Value: 1}}},
	})
	return err
}

func (r *UserRoleRepositoryImpl) InsertMany(ctx context.Context, assignments []UserRole) (int64, int64, error) {
	if len(assignments) == 0 {
		return 0, 0, nil
	}
	docs := make([]interface{}, len(assignments))
	for i := range assignments {
		docs[i] = assignments[i]
	}
	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return database.CountInsertedIgnoringDuplicates(len(docs), err)
}

func (r *UserRoleRepositoryImpl) DeleteByUserAndRoles(ctx context.Context, userID primitive.ObjectID, roleIDs []primitive.ObjectID) (int64, error) {
	return r.deleteMany(ctx, bson.M{"user_id": userID, "role_id": bson.M{"$in": roleIDs}})
}

func (r *UserRoleRepositoryImpl) DeleteByUserID(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.deleteMany(ctx, bson.M{"user_id": userID})
}

func (r *UserRoleRepositoryImpl) DeleteByRoleID(ctx context.Context, roleID primitive.ObjectID) (int64, error) {
	return r.deleteMany(ctx, bson.M{"role_id": roleID})
}

// DeleteOrphans removes assignments created before createdBefore whose user
// or role is not among the given existing ids.
func (r *UserRoleRepositoryImpl) DeleteOrphans(ctx context.Context, userIDs, roleIDs []primitive.ObjectID, createdBefore time.Time) (int64, error) {
	if userIDs == nil {
		userIDs = []primitive.ObjectID{}
	}
	if roleIDs == nil {
		roleIDs = []primitive.ObjectID{}
	}
	return r.deleteMany(ctx, bson.M{
		"created_at": bson.M{"$lt": createdBefore},
		"$or": bson.A{
			bson.M{"user_id": bson.M{"$nin": userIDs}},
			bson.M{"role_id": bson.M{"$nin": roleIDs}},
		},
	})
}

func (r *UserRoleRepositoryImpl) FindByUserID(ctx context.Context, userID primitive.ObjectID) ([]UserRole, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	assignments := []UserRole{}
	if err := cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *UserRoleRepositoryImpl) deleteMany(ctx context.Context, query bson.M) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
