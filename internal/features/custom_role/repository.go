package custom_role

import (
	"context"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CustomRoleRepository interface {
	Create(ctx context.Context, role *CustomRole) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*CustomRole, error)
	List(ctx context.Context) ([]CustomRole, error)
	Update(ctx context.Context, role *CustomRole) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	PullPermission(ctx context.Context, permissionID primitive.ObjectID) (int64, error)
	CountSoleHolders(ctx context.Context, permissionID primitive.ObjectID) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type CustomRoleRepositoryImpl struct {
	collection *mongo.Collection
}

func NewCustomRoleRepository(mongodb *database.MongodbDB) CustomRoleRepository {
	return &CustomRoleRepositoryImpl{
		collection: mongodb.DB.Collection("custom_roles"),
	}
}

func (r *CustomRoleRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "permissions", Value: 1}},
	})
	return err
}

func (r *CustomRoleRepositoryImpl) Create(ctx context.Context, role *CustomRole) error {
	_, err := r.collection.InsertOne(ctx, role)
	return apperrors.FromMongo(err, "custom role", role.Name)
}

func (r *CustomRoleRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*CustomRole, error) {
	var role CustomRole
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&role); err != nil {
		return nil, apperrors.FromMongo(err, "custom role", id.Hex())
	}
	return &role, nil
}

func (r *CustomRoleRepositoryImpl) List(ctx context.Context) ([]CustomRole, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	roles := []CustomRole{}
	if err := cursor.All(ctx, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *CustomRoleRepositoryImpl) Update(ctx context.Context, role *CustomRole) error {
	update := bson.M{
		"$set": bson.M{
			"name":        role.Name,
			"description": role.Description,
			"permissions": role.Permissions,
			"updated_at":  role.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": role.ID}, update)
	if err != nil {
		return apperrors.FromMongo(err, "custom role", role.ID.Hex())
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("custom role", role.ID.Hex())
	}
	return nil
}

func (r *CustomRoleRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return apperrors.NotFound("custom role", id.Hex())
	}
	return nil
}

// PullPermission removes permissionID from every custom role that lists it.
func (r *CustomRoleRepositoryImpl) PullPermission(ctx context.Context, permissionID primitive.ObjectID) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"permissions": permissionID},
		bson.M{"$pull": bson.M{"permissions": permissionID}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// CountSoleHolders counts custom roles whose only permission is permissionID.
func (r *CustomRoleRepositoryImpl) CountSoleHolders(ctx context.Context, permissionID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{
		"permissions": bson.M{"$all": bson.A{permissionID}, "$size": 1},
	})
}
