package user_plan

import (
	"context"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserPlanRepository interface {
	Create(ctx context.Context, userPlan *UserPlan) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*UserPlan, error)
	FindActiveByUserAndPlan(ctx context.Context, userID, planID primitive.ObjectID) (*UserPlan, error)
	List(ctx context.Context, filter bson.M) ([]UserPlan, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) error
	UpdateAssignedBy(ctx context.Context, assignedBy, planID, exclude primitive.ObjectID, set bson.M) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	CountByPlan(ctx context.Context, planID primitive.ObjectID) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type UserPlanRepositoryImpl struct {
	collection *mongo.Collection
}

func NewUserPlanRepository(mongodb *database.MongodbDB) UserPlanRepository {
	return &UserPlanRepositoryImpl{
		collection: mongodb.DB.Collection("user_plans"),
	}
}

func (r *UserPlanRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "plan_ref", Value: 1}, {Key: "user_ref", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "assigned_by", Value: 1}, {Key: "plan_ref", Value: 1}}},
		{Keys: bson.D{{Key: "user_ref", Value: 1}}},
	})
	return err
}

func (r *UserPlanRepositoryImpl) Create(ctx context.Context, userPlan *UserPlan) error {
	_, err := r.collection.InsertOne(ctx, userPlan)
	return apperrors.FromMongo(err, "user plan", userPlan.UserRef.Hex()+"/"+userPlan.PlanRef.Hex())
}

func (r *UserPlanRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*UserPlan, error) {
	var userPlan UserPlan
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&userPlan); err != nil {
		return nil, apperrors.FromMongo(err, "user plan", id.Hex())
	}
	return &userPlan, nil
}

// FindActiveByUserAndPlan returns nil, nil when the user holds no active
// assignment of the plan.
func (r *UserPlanRepositoryImpl) FindActiveByUserAndPlan(ctx context.Context, userID, planID primitive.ObjectID) (*UserPlan, error) {
	var userPlan UserPlan
	err := r.collection.FindOne(ctx, bson.M{
		"user_ref":  userID,
		"plan_ref":  planID,
		"is_active": true,
	}).Decode(&userPlan)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &userPlan, nil
}

func (r *UserPlanRepositoryImpl) List(ctx context.Context, filter bson.M) ([]UserPlan, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	userPlans := []UserPlan{}
	if err := cursor.All(ctx, &userPlans); err != nil {
		return nil, err
	}
	return userPlans, nil
}

func (r *UserPlanRepositoryImpl) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return apperrors.FromMongo(err, "user plan", id.Hex())
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("user plan", id.Hex())
	}
	return nil
}

// UpdateAssignedBy applies set to every assignment of planID made by
// assignedBy, except exclude.
func (r *UserPlanRepositoryImpl) UpdateAssignedBy(ctx context.Context, assignedBy, planID, exclude primitive.ObjectID, set bson.M) (int64, error) {
	result, err := r.collection.UpdateMany(ctx, bson.M{
		"assigned_by": assignedBy,
		"plan_ref":    planID,
		"_id":         bson.M{"$ne": exclude},
	}, bson.M{"$set": set})
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *UserPlanRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return apperrors.NotFound("user plan", id.Hex())
	}
	return nil
}

func (r *UserPlanRepositoryImpl) CountByPlan(ctx context.Context, planID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"plan_ref": planID})
}
