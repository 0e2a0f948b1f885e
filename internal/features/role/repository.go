package role

import (
	"context"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RoleRepository interface {
	Create(ctx context.Context, role *Role) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Role, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]Role, error)
	FindByTitle(ctx context.Context, title string) (*Role, error)
	List(ctx context.Context, filter ListFilter) ([]Role, error)
	ListIDs(ctx context.Context) ([]primitive.ObjectID, error)
	Update(ctx context.Context, role *Role) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}

type RoleRepositoryImpl struct {
	collection *mongo.Collection
}

func NewRoleRepository(mongodb *database.MongodbDB) RoleRepository {
	return &RoleRepositoryImpl{
		collection: mongodb.DB.Collection("roles"),
	}
}

func (r *RoleRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "title", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *RoleRepositoryImpl) Create(ctx context.Context, role *Role) error {
	_, err := r.collection.InsertOne(ctx, role)
	return apperrors.FromMongo(err, "role", role.Title)
}

func (r *RoleRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Role, error) {
	var role Role
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&role); err != nil {
		return nil, apperrors.FromMongo(err, "role", id.Hex())
	}
	return &role, nil
}

func (r *RoleRepositoryImpl) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]Role, error) {
	roles := []Role{}
	if len(ids) == 0 {
		return roles, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetSort(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// FindByTitle returns nil, nil when no role has the title. Matching is exact.
func (r *RoleRepositoryImpl) FindByTitle(ctx context.Context, title string) (*Role, error) {
	var role Role
	err := r.collection.FindOne(ctx, bson.M{"title": title}).Decode(&role)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *RoleRepositoryImpl) List(ctx context.Context, filter ListFilter) ([]Role, error) {
	query := bson.M{}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}

	cursor, err := r.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	roles := []Role{}
	if err := cursor.All(ctx, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *RoleRepositoryImpl) ListIDs(ctx context.Context) ([]primitive.ObjectID, error) {
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

func (r *RoleRepositoryImpl) Update(ctx context.Context, role *Role) error {
	update := bson.M{
		"$set": bson.M{
			"title":       role.Title,
			"description": role.Description,
			"status":      role.Status,
			"updated_at":  role.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": role.ID}, update)
	if err != nil {
		return apperrors.FromMongo(err, "role", role.Title)
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("role", role.ID.Hex())
	}
	return nil
}

func (r *RoleRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return apperrors.NotFound("role", id.Hex())
	}
	return nil
}
