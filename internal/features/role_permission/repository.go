package role_permission

import (
	"context"
	"time"

	"jmkresearch-backend/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RolePermissionRepository interface {
	// InsertMany inserts every mapping it can; pairs that already exist are
	// counted as skipped.
	InsertMany(ctx context.Context, mappings []RolePermission) (added, skipped int64, err error)
	DeleteByRoleAndPermissions(ctx context.Context, roleID primitive.ObjectID, permissionIDs []primitive.ObjectID) (int64, error)
	DeleteByRoleID(ctx context.Context, roleID primitive.ObjectID) (int64, error)
	DeleteByPermissionID(ctx context.Context, permissionID primitive.ObjectID) (int64, error)
	DeleteOrphans(ctx context.Context, roleIDs, permissionIDs []primitive.ObjectID, createdBefore time.Time) (int64, error)
	FindByRoleID(ctx context.Context, roleID primitive.ObjectID) ([]RolePermission, error)
	FindByRoleIDs(ctx context.Context, roleIDs []primitive.ObjectID) ([]RolePermission, error)
	EnsureIndexes(ctx context.Context) error
}

type RolePermissionRepositoryImpl struct {
	collection *mongo.Collection
}

func NewRolePermissionRepository(mongodb *database.MongodbDB) RolePermissionRepository {
	return &RolePermissionRepositoryImpl{
		collection: mongodb.DB.Collection("role_permissions"),
	}
}

func (r *RolePermissionRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "role_id", Value: 1}, {Key: "permission_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "permission_id", Value: 1}}},
	})
	return err
}

func (r *RolePermissionRepositoryImpl) InsertMany(ctx context.Context, mappings []RolePermission) (int64, int64, error) {
	if len(mappings) == 0 {
		return 0, 0, nil
	}
	docs := make([]interface{}, len(mappings))
	for i := range mappings {
		docs[i] = mappings[i]
	}
	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	return database.CountInsertedIgnoringDuplicates(len(docs), err)
}

func (r *RolePermissionRepositoryImpl) DeleteByRoleAndPermissions(ctx context.Context, roleID primitive.ObjectID, permissionIDs []primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{
		"role_id":       roleID,
		"permission_id": bson.M{"$in": permissionIDs},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *RolePermissionRepositoryImpl) DeleteByRoleID(ctx context.Context, roleID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"role_id": roleID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *RolePermissionRepositoryImpl) DeleteByPermissionID(ctx context.Context, permissionID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"permission_id": permissionID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// DeleteOrphans removes mappings created before createdBefore whose role or
// permission is not among the given existing ids. Rows newer than the cutoff
// may reference ids the caller's snapshot does not contain yet.
func (r *RolePermissionRepositoryImpl) DeleteOrphans(ctx context.Context, roleIDs, permissionIDs []primitive.ObjectID, createdBefore time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{
		"created_at": bson.M{"$lt": createdBefore},
		"$or": bson.A{
			bson.M{"role_id": bson.M{"$nin": nonNil(roleIDs)}},
			bson.M{"permission_id": bson.M{"$nin": nonNil(permissionIDs)}},
		},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *RolePermissionRepositoryImpl) FindByRoleID(ctx context.Context, roleID primitive.ObjectID) ([]RolePermission, error) {
	return r.find(ctx, bson.M{"role_id": roleID})
}

func (r *RolePermissionRepositoryImpl) FindByRoleIDs(ctx context.Context, roleIDs []primitive.ObjectID) ([]RolePermission, error) {
	if len(roleIDs) == 0 {
		return []RolePermission{}, nil
	}
	return r.find(ctx, bson.M{"role_id": bson.M{"$in": roleIDs}})
}

func (r *RolePermissionRepositoryImpl) find(ctx context.Context, query bson.M) ([]RolePermission, error) {
	cursor, err := r.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	mappings := []RolePermission{}
	if err := cursor.All(ctx, &mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}

// $nin with a null array is rejected by the server.
func nonNil(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}
