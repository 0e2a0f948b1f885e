package plan

import (
	"context"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PlanRepository interface {
	Create(ctx context.Context, plan *Plan) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Plan, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]Plan, error)
	FindByCode(ctx context.Context, code string) (*Plan, error)
	List(ctx context.Context, filter ListFilter) ([]Plan, error)
	Update(ctx context.Context, plan *Plan) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}

type PlanRepositoryImpl struct {
	collection *mongo.Collection
}

func NewPlanRepository(mongodb *database.MongodbDB) PlanRepository {
	return &PlanRepositoryImpl{
		collection: mongodb.DB.Collection("plans"),
	}
}

func (r *PlanRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *PlanRepositoryImpl) Create(ctx context.Context, plan *Plan) error {
	_, err := r.collection.InsertOne(ctx, plan)
	return apperrors.FromMongo(err, "plan", plan.Code)
}

func (r *PlanRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Plan, error) {
	var plan Plan
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&plan); err != nil {
		return nil, apperrors.FromMongo(err, "plan", id.Hex())
	}
	return &plan, nil
}

func (r *PlanRepositoryImpl) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]Plan, error) {
	plans := []Plan{}
	if len(ids) == 0 {
		return plans, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// FindByCode returns nil, nil when no plan has the code.
func (r *PlanRepositoryImpl) FindByCode(ctx context.Context, code string) (*Plan, error) {
	var plan Plan
	err := r.collection.FindOne(ctx, bson.M{"code": code}).Decode(&plan)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepositoryImpl) List(ctx context.Context, filter ListFilter) ([]Plan, error) {
	query := bson.M{}
	if filter.IsActive != nil {
		query["is_active"] = *filter.IsActive
	}

	cursor, err := r.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	plans := []Plan{}
	if err := cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *PlanRepositoryImpl) Update(ctx context.Context, plan *Plan) error {
	update := bson.M{
		"$set": bson.M{
			"name":          plan.Name,
			"code":          plan.Code,
			"description":   plan.Description,
			"features":      plan.Features,
			"plan_features": plan.PlanFeatures,
			"is_active":     plan.IsActive,
			"updated_at":    plan.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": plan.ID}, update)
	if err != nil {
		return apperrors.FromMongo(err, "plan", plan.Code)
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("plan", plan.ID.Hex())
	}
	return nil
}

func (r *PlanRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return apperrors.NotFound("plan", id.Hex())
	}
	return nil
}
