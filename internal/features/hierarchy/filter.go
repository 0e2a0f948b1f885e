package hierarchy

import (
	"context"

	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserIDLookup returns the ids of users matching a filter.
type UserIDLookup interface {
	FindIDs(ctx context.Context, filter bson.M) ([]primitive.ObjectID, error)
}

// Query holds the explicit user filters a caller may pass. Only these fields
// ever reach the store.
type Query struct {
	UserType      common_models.UserType
	MainDealerRef *primitive.ObjectID
	DealerRef     *primitive.ObjectID
	LocationRef   *primitive.ObjectID
	OEMRef        *primitive.ObjectID
	IsActive      *bool
}

func (q Query) bson() bson.M {
	filter := bson.M{}
	if q.UserType != "" {
		filter["user_type"] = q.UserType
	}
	if q.MainDealerRef != nil {
		filter["main_dealer_ref"] = *q.MainDealerRef
	}
	if q.DealerRef != nil {
		filter["dealer_ref"] = *q.DealerRef
	}
	if q.LocationRef != nil {
		filter["location_ref"] = *q.LocationRef
	}
	if q.OEMRef != nil {
		filter["oem_ref"] = *q.OEMRef
	}
	if q.IsActive != nil {
		filter["is_active"] = *q.IsActive
	}
	return filter
}

type Resolver struct {
	Users UserIDLookup
	// CustomIsAdmin gives "custom" callers the unrestricted admin view.
	CustomIsAdmin bool
}

func NewResolver(users UserIDLookup, cfg *config.Config) *Resolver {
	return &Resolver{Users: users, CustomIsAdmin: cfg.CustomIsAdmin}
}

// NarrowFilter turns the caller's query into a user filter that can only
// match records the caller is entitled to see.
//
//   - super_admin (and custom when admin-equivalent): the query as given
//   - main_dealer: dealers under them plus users under those dealers or
//     directly under them, never the main dealer itself
//   - dealer: users whose dealerRef is the caller
//   - anyone else: only their own record
func (r *Resolver) NarrowFilter(ctx context.Context, caller *common_models.Caller, query Query) (bson.M, error) {
	base := query.bson()

	var scope bson.M
	switch {
	case caller.IsAdmin(r.CustomIsAdmin):
		return base, nil
	case caller.UserType == common_models.UserTypeMainDealer:
		ids, err := r.mainDealerScope(ctx, caller.ID)
		if err != nil {
			return nil, err
		}
		scope = bson.M{"_id": bson.M{"$in": ids, "$ne": caller.ID}}
	case caller.UserType == common_models.UserTypeDealer:
		scope = bson.M{"dealer_ref": caller.ID}
	default:
		scope = bson.M{"_id": caller.ID}
	}

	if len(base) == 0 {
		return scope, nil
	}
	return bson.M{"$and": bson.A{base, scope}}, nil
}

// mainDealerScope expands a main dealer to its dealers and their users with
// two sequential lookups.
func (r *Resolver) mainDealerScope(ctx context.Context, mainDealerID primitive.ObjectID) ([]primitive.ObjectID, error) {
	dealerIDs, err := r.Users.FindIDs(ctx, bson.M{
		"user_type":       common_models.UserTypeDealer,
		"main_dealer_ref": mainDealerID,
	})
	if err != nil {
		return nil, err
	}

	userIDs, err := r.Users.FindIDs(ctx, bson.M{
		"user_type": common_models.UserTypeUser,
		"$or": bson.A{
			bson.M{"dealer_ref": bson.M{"$in": nonNil(dealerIDs)}},
			bson.M{"main_dealer_ref": mainDealerID},
		},
	})
	if err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(dealerIDs)+len(userIDs))
	seen := make(map[primitive.ObjectID]bool, cap(ids))
	for _, id := range append(dealerIDs, userIDs...) {
		if id == mainDealerID || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func nonNil(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}
