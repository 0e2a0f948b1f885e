package domain

import (
	"context"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DomainRepository interface {
	Create(ctx context.Context, domain *Domain) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Domain, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]Domain, error)
	FindByTitle(ctx context.Context, title string) (*Domain, error)
	List(ctx context.Context, filter ListFilter) ([]Domain, error)
	Update(ctx context.Context, domain *Domain) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}

type DomainRepositoryImpl struct {
	collection *mongo.Collection
}

func NewDomainRepository(mongodb *database.MongodbDB) DomainRepository {
	return &DomainRepositoryImpl{
		collection: mongodb.DB.Collection("domains"),
	}
}

func (r *DomainRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "title", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return err
}

func (r *DomainRepositoryImpl) Create(ctx context.Context, domain *Domain) error {
	_, err := r.collection.InsertOne(ctx, domain)
	return apperrors.FromMongo(err, "domain", domain.Title)
}

func (r *DomainRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Domain, error) {
	var domain Domain
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&domain); err != nil {
		return nil, apperrors.FromMongo(err, "domain", id.Hex())
	}
	return &domain, nil
}

func (r *DomainRepositoryImpl) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]Domain, error) {
	domains := []Domain{}
	if len(ids) == 0 {
		return domains, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &domains); err != nil {
		return nil, err
	}
	return domains, nil
}

// FindByTitle returns nil, nil when no domain has the title.
func (r *DomainRepositoryImpl) FindByTitle(ctx context.Context, title string) (*Domain, error) {
	var domain Domain
	err := r.collection.FindOne(ctx, bson.M{"title": title}).Decode(&domain)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain, nil
}

func (r *DomainRepositoryImpl) List(ctx context.Context, filter ListFilter) ([]Domain, error) {
	query := bson.M{}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}

	cursor, err := r.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	domains := []Domain{}
	if err := cursor.All(ctx, &domains); err != nil {
		return nil, err
	}
	return domains, nil
}

func (r *DomainRepositoryImpl) Update(ctx context.Context, domain *Domain) error {
	update := bson.M{
		"$set": bson.M{
			"title":       domain.Title,
			"key":         domain.Key,
			"description": domain.Description,
			"status":      domain.Status,
			"updated_at":  domain.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": domain.ID}, update)
	if err != nil {
		return apperrors.FromMongo(err, "domain", domain.Title)
	}
	if result.MatchedCount == 0 {
		return apperrors.NotFound("domain", domain.ID.Hex())
	}
	return nil
}

func (r *DomainRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return apperrors.NotFound("domain", id.Hex())
	}
	return nil
}
