package permission

import (
	"context"

	"jmkresearch-backend/internal/features/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DomainFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Domain, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Domain, error)
}

// PopulateDomains resolves every permission's domain with a single lookup.
func PopulateDomains(ctx context.Context, domains DomainFinder, perms []Permission) ([]View, error) {
	ids := make([]primitive.ObjectID, 0, len(perms))
	seen := make(map[primitive.ObjectID]bool)
	for _, p := range perms {
		if !seen[p.Domain] {
			seen[p.Domain] = true
			ids = append(ids, p.Domain)
		}
	}

	found, err := domains.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*domain.Summary, len(found))
	for i := range found {
		byID[found[i].ID] = found[i].Summary()
	}

	views := make([]View, 0, len(perms))
	for _, p := range perms {
		views = append(views, NewView(p, byID[p.Domain]))
	}
	return views, nil
}
