package user_test

import (
	"context"
	"testing"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/database"
	"jmkresearch-backend/internal/features/custom_role"
	"jmkresearch-backend/internal/features/hierarchy"
	"jmkresearch-backend/internal/features/user"
	"jmkresearch-backend/internal/features/user_role"
	"jmkresearch-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fixture struct {
	svc         user.UserService
	users       *testutil.UserRepo
	userRoles   *testutil.UserRoleRepo
	customRoles *testutil.CustomRoleRepo
	cache       *testutil.CacheSpy

	admin, m1, d1, u1, m2 models.User
}

func ref(u models.User) *primitive.ObjectID {
	id := u.ID
	return &id
}

func newFixture(customIsAdmin bool) *fixture {
	cfg := &config.Config{CustomIsAdmin: customIsAdmin}
	f := &fixture{
		users:       testutil.NewUserRepo(),
		userRoles:   testutil.NewUserRoleRepo(),
		customRoles: testutil.NewCustomRoleRepo(),
		cache:       &testutil.CacheSpy{},
	}
	mk := func(email string, t models.UserType, mainDealer, dealer *primitive.ObjectID) models.User {
		return models.User{ID: primitive.NewObjectID(), Name: email, Email: email, UserType: t, MainDealerRef: mainDealer, DealerRef: dealer, IsActive: true}
	}
	f.admin = mk("admin@example.com", models.UserTypeSuperAdmin, nil, nil)
	f.m1 = mk("m1@example.com", models.UserTypeMainDealer, nil, nil)
	f.m2 = mk("m2@example.com", models.UserTypeMainDealer, nil, nil)
	f.d1 = mk("d1@example.com", models.UserTypeDealer, ref(f.m1), nil)
	f.u1 = mk("u1@example.com", models.UserTypeUser, ref(f.m1), ref(f.d1))
	f.users.Add(f.admin, f.m1, f.m2, f.d1, f.u1)

	f.svc = user.NewUserService(
		f.users,
		hierarchy.NewResolver(f.users, cfg),
		hierarchy.NewValidator(f.users),
		f.customRoles,
		testutil.NewPermissionRepo(),
		f.userRoles,
		f.cache,
		database.NoTx{},
		&testutil.AuditRecorder{},
		zap.NewNop(),
		cfg,
	)
	return f
}

func caller(u models.User) *models.Caller {
	return &models.Caller{ID: u.ID, UserType: u.UserType}
}

func TestCreateUserPlacesUnderCaller(t *testing.T) {
	ctx := context.Background()
	f := newFixture(true)

	t.Run("main dealer creates a dealer under itself", func(t *testing.T) {
		u, err := f.svc.CreateUser(ctx, caller(f.m1), user.CreateUserRequest{
			Name: "D2", Email: "D2@Example.com", UserType: models.UserTypeDealer, MainDealerRef: f.m2.ID.Hex(),
		})
		require.NoError(t, err)
		assert.Equal(t, "d2@example.com", u.Email)
		require.NotNil(t, u.MainDealerRef)
		assert.Equal(t, f.m1.ID, *u.MainDealerRef)
	})

	t.Run("dealer creates a user that inherits the main dealer", func(t *testing.T) {
		u, err := f.svc.CreateUser(ctx, caller(f.d1), user.CreateUserRequest{
			Name: "U2", Email: "u2@example.com", UserType: models.UserTypeUser,
		})
		require.NoError(t, err)
		require.NotNil(t, u.DealerRef)
		assert.Equal(t, f.d1.ID, *u.DealerRef)
		require.NotNil(t, u.MainDealerRef)
		assert.Equal(t, f.m1.ID, *u.MainDealerRef)
	})

	t.Run("dealer may not create a dealer", func(t *testing.T) {
		_, err := f.svc.CreateUser(ctx, caller(f.d1), user.CreateUserRequest{
			Name: "X", Email: "x@example.com", UserType: models.UserTypeDealer,
		})
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("plain user may not create users", func(t *testing.T) {
		_, err := f.svc.CreateUser(ctx, caller(f.u1), user.CreateUserRequest{
			Name: "X", Email: "x@example.com", UserType: models.UserTypeUser,
		})
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.svc.CreateUser(ctx, caller(f.admin), user.CreateUserRequest{
			Name: "Again", Email: "M1@example.com", UserType: models.UserTypeMainDealer,
		})
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("custom user needs an existing custom role", func(t *testing.T) {
		_, err := f.svc.CreateUser(ctx, caller(f.admin), user.CreateUserRequest{
			Name: "C", Email: "c@example.com", UserType: models.UserTypeCustom, CustomRoleRef: primitive.NewObjectID().Hex(),
		})
		assert.True(t, apperrors.IsNotFound(err))

		cr := &custom_role.CustomRole{ID: primitive.NewObjectID(), Name: "Ops"}
		require.NoError(t, f.customRoles.Create(ctx, cr))
		u, err := f.svc.CreateUser(ctx, caller(f.admin), user.CreateUserRequest{
			Name: "C", Email: "c@example.com", UserType: models.UserTypeCustom, CustomRoleRef: cr.ID.Hex(),
		})
		require.NoError(t, err)
		assert.Equal(t, cr.ID, *u.CustomRoleRef)
	})
}

func TestGetUserVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(true)

	got, err := f.svc.GetUser(ctx, caller(f.m1), f.u1.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, f.u1.ID, got.ID)

	_, err = f.svc.GetUser(ctx, caller(f.m2), f.u1.ID.Hex())
	assert.True(t, apperrors.IsForbidden(err))

	got, err = f.svc.GetUser(ctx, caller(f.u1), f.u1.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, f.u1.ID, got.ID)

	_, err = f.svc.GetUser(ctx, caller(f.admin), primitive.NewObjectID().Hex())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListUsersIsNarrowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(true)

	res, err := f.svc.ListUsers(ctx, caller(f.m1), hierarchy.Query{}, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)

	res, err = f.svc.ListUsers(ctx, caller(f.admin), hierarchy.Query{}, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, res.Total)
	assert.Len(t, res.Users, 2)

	_, err = f.svc.ListUsers(ctx, caller(f.admin), hierarchy.Query{UserType: "reseller"}, 1, 10)
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(true)

	name := "Renamed"
	u, err := f.svc.UpdateUser(ctx, caller(f.m1), f.u1.ID.Hex(), user.UpdateUserRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", u.Name)
	assert.Equal(t, []primitive.ObjectID{f.u1.ID}, f.cache.Invalidated)

	dealer := f.d1.ID.Hex()
	_, err = f.svc.UpdateUser(ctx, caller(f.m1), f.u1.ID.Hex(), user.UpdateUserRequest{DealerRef: &dealer})
	assert.True(t, apperrors.IsForbidden(err))

	_, err = f.svc.UpdateUser(ctx, caller(f.m2), f.u1.ID.Hex(), user.UpdateUserRequest{Name: &name})
	assert.True(t, apperrors.IsForbidden(err))

	t.Run("admin clears the dealer and keeps the main dealer", func(t *testing.T) {
		empty := ""
		u, err := f.svc.UpdateUser(ctx, caller(f.admin), f.u1.ID.Hex(), user.UpdateUserRequest{DealerRef: &empty})
		require.NoError(t, err)
		assert.Nil(t, u.DealerRef)
		require.NotNil(t, u.MainDealerRef)
		assert.Equal(t, f.m1.ID, *u.MainDealerRef)
	})
}

func TestUpdateUserRefusesToReparentUsersWithSubordinates(t *testing.T) {
	ctx := context.Background()

	t.Run("dealer with users cannot move to another main dealer", func(t *testing.T) {
		f := newFixture(true)
		other := f.m2.ID.Hex()
		_, err := f.svc.UpdateUser(ctx, caller(f.admin), f.d1.ID.Hex(), user.UpdateUserRequest{MainDealerRef: &other})
		assert.True(t, apperrors.IsConflict(err), "%v", err)

		stored, err := f.users.FindByID(ctx, f.d1.ID)
		require.NoError(t, err)
		assert.Equal(t, f.m1.ID, *stored.MainDealerRef)

		page, err := f.svc.ListUsers(ctx, caller(f.m2), hierarchy.Query{}, 1, 50)
		require.NoError(t, err)
		assert.Empty(t, page.Users)
	})

	t.Run("main dealer with dealers cannot change type", func(t *testing.T) {
		f := newFixture(true)
		plain := models.UserTypeUser
		_, err := f.svc.UpdateUser(ctx, caller(f.admin), f.m1.ID.Hex(), user.UpdateUserRequest{UserType: &plain})
		assert.True(t, apperrors.IsConflict(err), "%v", err)

		stored, err := f.users.FindByID(ctx, f.m1.ID)
		require.NoError(t, err)
		assert.Equal(t, models.UserTypeMainDealer, stored.UserType)
	})

	t.Run("dealer with users cannot change type", func(t *testing.T) {
		f := newFixture(true)
		plain := models.UserTypeUser
		_, err := f.svc.UpdateUser(ctx, caller(f.admin), f.d1.ID.Hex(), user.UpdateUserRequest{UserType: &plain})
		assert.True(t, apperrors.IsConflict(err), "%v", err)
	})

	t.Run("dealer moves once its users are gone", func(t *testing.T) {
		f := newFixture(true)
		require.NoError(t, f.svc.DeleteUser(ctx, caller(f.admin), f.u1.ID.Hex()))

		other := f.m2.ID.Hex()
		moved, err := f.svc.UpdateUser(ctx, caller(f.admin), f.d1.ID.Hex(), user.UpdateUserRequest{MainDealerRef: &other})
		require.NoError(t, err)
		assert.Equal(t, f.m2.ID, *moved.MainDealerRef)
	})

	t.Run("unchanged placement fields are not treated as a move", func(t *testing.T) {
		f := newFixture(true)
		same := f.m1.ID.Hex()
		name := "Dealer One"
		_, err := f.svc.UpdateUser(ctx, caller(f.admin), f.d1.ID.Hex(), user.UpdateUserRequest{MainDealerRef: &same, Name: &name})
		require.NoError(t, err)
	})
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(true)

	err := f.svc.DeleteUser(ctx, caller(f.admin), f.d1.ID.Hex())
	assert.True(t, apperrors.IsConflict(err), "dealer still has users")

	err = f.svc.DeleteUser(ctx, caller(f.admin), f.admin.ID.Hex())
	assert.True(t, apperrors.IsConflict(err))

	_, _, err = f.userRoles.InsertMany(ctx, []user_role.UserRole{{ID: primitive.NewObjectID(), UserID: f.u1.ID, RoleID: primitive.NewObjectID()}})
	require.NoError(t, err)

	err = f.svc.DeleteUser(ctx, caller(f.m2), f.u1.ID.Hex())
	assert.True(t, apperrors.IsForbidden(err))

	require.NoError(t, f.svc.DeleteUser(ctx, caller(f.d1), f.u1.ID.Hex()))
	_, err = f.users.FindByID(ctx, f.u1.ID)
	assert.True(t, apperrors.IsNotFound(err))
	left, err := f.userRoles.FindByUserID(ctx, f.u1.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
}
