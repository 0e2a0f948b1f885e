package user

import (
	"context"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	FindIDs(ctx context.Context, filter bson.M) ([]primitive.ObjectID, error)
	List(ctx context.Context, filter bson.M, limit, offset int64) ([]models.User, int64, error)
	ListAll(ctx context.Context) ([]models.User, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	PullPermission(ctx context.Context, permissionID primitive.ObjectID) (int64, error)
	CountByCustomRole(ctx context.Context, customRoleID primitive.ObjectID) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type UserRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewUserRepository(mongodb *database.MongodbDB) UserRepository {
	return &UserRepositoryImpl{
		Collection: mongodb.DB.Collection("users"),
	}
}

func (r *UserRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_type", Value: 1}, {Key: "main_dealer_ref", Value: 1}}},
		{Keys: bson.D{{Key: "dealer_ref", Value: 1}}},
		{Keys: bson.D{{Key: "custom_role_ref", Value: 1}}},
	})
	return err
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *models.User) error {
	_, err := r.Collection.InsertOne(ctx, user)
	return apperrors.FromMongo(err, "user", user.Email)
}

func (r *UserRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, apperrors.FromMongo(err, "user", id.Hex())
	}
	return &user, nil
}

// FindByEmail returns nil, nil when no user has the email.
func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.Collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	cursor, err := r.Collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepositoryImpl) FindIDs(ctx context.Context, filter bson.M) ([]primitive.ObjectID, error) {
	cursor, err := r.Collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
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

func (r *UserRepositoryImpl) List(ctx context.Context, filter bson.M, limit, offset int64) ([]models.User, int64, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	if offset > 0 {
		opts.SetSkip(offset)
	}
	opts.SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err = cursor.All(ctx, &users); err != nil {
		return nil, 0, err
	}

	total, err := r.Collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *UserRepositoryImpl) ListAll(ctx context.Context) ([]models.User, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepositoryImpl) Count(ctx context.Context, filter bson.M) (int64, error) {
	return r.Collection.CountDocuments(ctx, filter)
}

func (r *UserRepositoryImpl) Update(ctx context.Context, user *models.User) error {
	set := bson.M{
		"name":        user.Name,
		"email":       user.Email,
		"phone":       user.Phone,
		"user_type":   user.UserType,
		"permissions": user.Permissions,
		"is_active":   user.IsActive,
		"updated_at":  user.UpdatedAt,
	}
	unset := bson.M{}
	refs := map[string]*primitive.ObjectID{
		"main_dealer_ref": user.MainDealerRef,
		"dealer_ref":      user.DealerRef,
		"custom_role_ref": user.CustomRoleRef,
		"location_ref":    user.LocationRef,
		"oem_ref":         user.OEMRef,
	}
	for field, ref := range refs {
		if ref != nil {
			set[field] = *ref
		} else {
			unset[field] = ""
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.Collection.UpdateOne(ctx, bson.M{"_id": user.ID}, update)
	if err != nil {
		return apperrors.FromMongo(err, "user", user.Email)
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("user", user.ID.Hex())
	}
	return nil
}

func (r *UserRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return apperrors.NotFound("user", id.Hex())
	}
	return nil
}

// PullPermission removes permissionID from every user's direct grants.
func (r *UserRepositoryImpl) PullPermission(ctx context.Context, permissionID primitive.ObjectID) (int64, error) {
	result, err := r.Collection.UpdateMany(ctx,
		bson.M{"permissions": permissionID},
		bson.M{"$pull": bson.M{"permissions": permissionID}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *UserRepositoryImpl) CountByCustomRole(ctx context.Context, customRoleID primitive.ObjectID) (int64, error) {
	return r.Collection.CountDocuments(ctx, bson.M{"custom_role_ref": customRoleID})
}
