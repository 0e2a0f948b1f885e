package hierarchy_test

import (
	"context"
	"testing"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/features/hierarchy"
	"jmkresearch-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// tree is two main dealers with their dealers and users.
//
//	M1 ── D1 ── U1
//	   ├─ D2
//	   └─ U2
//	M2 ── D3 ── U3
type tree struct {
	repo                       *testutil.UserRepo
	admin, custom              models.User
	m1, d1, d2, u1, u2, m2, d3 models.User
	u3                         models.User
}

func ref(u models.User) *primitive.ObjectID {
	id := u.ID
	return &id
}

func newUser(t models.UserType, mainDealer, dealer *primitive.ObjectID) models.User {
	return models.User{ID: primitive.NewObjectID(), UserType: t, MainDealerRef: mainDealer, DealerRef: dealer, IsActive: true}
}

func newTree() *tree {
	tr := &tree{repo: testutil.NewUserRepo()}
	tr.admin = newUser(models.UserTypeSuperAdmin, nil, nil)
	tr.custom = newUser(models.UserTypeCustom, nil, nil)
	tr.m1 = newUser(models.UserTypeMainDealer, nil, nil)
	tr.m2 = newUser(models.UserTypeMainDealer, nil, nil)
	tr.d1 = newUser(models.UserTypeDealer, ref(tr.m1), nil)
	tr.d2 = newUser(models.UserTypeDealer, ref(tr.m1), nil)
	tr.d3 = newUser(models.UserTypeDealer, ref(tr.m2), nil)
	tr.u1 = newUser(models.UserTypeUser, ref(tr.m1), ref(tr.d1))
	tr.u2 = newUser(models.UserTypeUser, ref(tr.m1), nil)
	tr.u3 = newUser(models.UserTypeUser, ref(tr.m2), ref(tr.d3))
	tr.repo.Add(tr.admin, tr.custom, tr.m1, tr.m2, tr.d1, tr.d2, tr.d3, tr.u1, tr.u2, tr.u3)
	return tr
}

func caller(u models.User) *models.Caller {
	return &models.Caller{ID: u.ID, UserType: u.UserType}
}

func ids(users ...models.User) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

func TestNarrowFilter(t *testing.T) {
	ctx := context.Background()
	tr := newTree()
	resolver := hierarchy.NewResolver(tr.repo, &config.Config{CustomIsAdmin: true})
	everyone := ids(tr.admin, tr.custom, tr.m1, tr.m2, tr.d1, tr.d2, tr.d3, tr.u1, tr.u2, tr.u3)

	tests := []struct {
		name   string
		caller models.User
		want   []primitive.ObjectID
	}{
		{"super admin sees everyone", tr.admin, everyone},
		{"custom is admin-equivalent", tr.custom, everyone},
		{"main dealer sees dealers and users below", tr.m1, ids(tr.d1, tr.d2, tr.u1, tr.u2)},
		{"dealer sees own users", tr.d1, ids(tr.u1)},
		{"dealer without users sees nothing", tr.d2, ids()},
		{"user sees only self", tr.u2, ids(tr.u2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := resolver.NarrowFilter(ctx, caller(tt.caller), hierarchy.Query{})
			require.NoError(t, err)
			got, err := tr.repo.FindIDs(ctx, filter)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestNarrowFilterCannotWidenScope(t *testing.T) {
	ctx := context.Background()
	tr := newTree()
	resolver := hierarchy.NewResolver(tr.repo, &config.Config{CustomIsAdmin: true})

	// M1 asks for M2's tree explicitly.
	filter, err := resolver.NarrowFilter(ctx, caller(tr.m1), hierarchy.Query{MainDealerRef: ref(tr.m2)})
	require.NoError(t, err)
	got, err := tr.repo.FindIDs(ctx, filter)
	require.NoError(t, err)
	assert.Empty(t, got)

	filter, err = resolver.NarrowFilter(ctx, caller(tr.m1), hierarchy.Query{UserType: models.UserTypeDealer})
	require.NoError(t, err)
	got, err = tr.repo.FindIDs(ctx, filter)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids(tr.d1, tr.d2), got)
}

func TestNarrowFilterCustomRestrictedWhenNotAdmin(t *testing.T) {
	ctx := context.Background()
	tr := newTree()
	resolver := hierarchy.NewResolver(tr.repo, &config.Config{CustomIsAdmin: false})

	filter, err := resolver.NarrowFilter(ctx, caller(tr.custom), hierarchy.Query{})
	require.NoError(t, err)
	got, err := tr.repo.FindIDs(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, ids(tr.custom), got)
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	tr := newTree()
	v := hierarchy.NewValidator(tr.repo)
	roleRef := primitive.NewObjectID()

	tests := []struct {
		name  string
		user  models.User
		check func(error) bool
	}{
		{"main dealer with dealer ref", newUser(models.UserTypeMainDealer, nil, ref(tr.d1)), apperrors.IsValidation},
		{"dealer without main dealer", newUser(models.UserTypeDealer, nil, nil), apperrors.IsValidation},
		{"dealer under a dealer", newUser(models.UserTypeDealer, ref(tr.d1), nil), apperrors.IsValidation},
		{"dealer under missing main dealer", newUser(models.UserTypeDealer, ref(newUser(models.UserTypeMainDealer, nil, nil)), nil), apperrors.IsNotFound},
		{"user with mismatched main dealer", newUser(models.UserTypeUser, ref(tr.m2), ref(tr.d1)), apperrors.IsValidation},
		{"custom without custom role", newUser(models.UserTypeCustom, nil, nil), apperrors.IsValidation},
		{"user with custom role", models.User{ID: primitive.NewObjectID(), UserType: models.UserTypeUser, CustomRoleRef: &roleRef}, apperrors.IsValidation},
		{"unknown type", newUser("reseller", nil, nil), apperrors.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			err := v.Validate(ctx, &u)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}

	t.Run("user inherits main dealer from dealer", func(t *testing.T) {
		u := newUser(models.UserTypeUser, nil, ref(tr.d1))
		require.NoError(t, v.Validate(ctx, &u))
		require.NotNil(t, u.MainDealerRef)
		assert.Equal(t, tr.m1.ID, *u.MainDealerRef)
	})

	t.Run("user directly under main dealer", func(t *testing.T) {
		u := newUser(models.UserTypeUser, ref(tr.m1), nil)
		assert.NoError(t, v.Validate(ctx, &u))
	})
}
