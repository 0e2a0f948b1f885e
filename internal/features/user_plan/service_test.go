package user_plan_test

import (
	"context"
	"testing"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/database"
	"jmkresearch-backend/internal/features/plan"
	"jmkresearch-backend/internal/features/user_plan"
	"jmkresearch-backend/internal/metrics"
	"jmkresearch-backend/internal/testutil"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fixture struct {
	svc     user_plan.UserPlanService
	repo    *testutil.UserPlanRepo
	metrics *metrics.Metrics

	plan                          *plan.Plan
	admin, m1, m2, d1, u1, u2, u3 models.User
}

func ref(u models.User) *primitive.ObjectID {
	id := u.ID
	return &id
}

func caller(u models.User) *models.Caller {
	return &models.Caller{ID: u.ID, UserType: u.UserType}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	users := testutil.NewUserRepo()
	plans := testutil.NewPlanRepo()
	f := &fixture{
		repo:    testutil.NewUserPlanRepo(),
		metrics: metrics.NewMetrics(prometheus.NewRegistry()),
		plan:    &plan.Plan{ID: primitive.NewObjectID(), Name: "Gold", Code: "GOLD", IsActive: true},
	}
	require.NoError(t, plans.Create(ctx, f.plan))

	mk := func(t models.UserType, mainDealer, dealer *primitive.ObjectID) models.User {
		id := primitive.NewObjectID()
		return models.User{ID: id, Name: id.Hex(), Email: id.Hex() + "@example.com", UserType: t, MainDealerRef: mainDealer, DealerRef: dealer, IsActive: true}
	}
	f.admin = mk(models.UserTypeSuperAdmin, nil, nil)
	f.m1 = mk(models.UserTypeMainDealer, nil, nil)
	f.m2 = mk(models.UserTypeMainDealer, nil, nil)
	f.d1 = mk(models.UserTypeDealer, ref(f.m1), nil)
	f.u1 = mk(models.UserTypeUser, ref(f.m1), ref(f.d1))
	f.u2 = mk(models.UserTypeUser, ref(f.m1), nil)
	f.u3 = mk(models.UserTypeUser, ref(f.m2), nil)
	users.Add(f.admin, f.m1, f.m2, f.d1, f.u1, f.u2, f.u3)

	f.svc = user_plan.NewUserPlanService(f.repo, users, plans, database.NoTx{}, f.metrics, &testutil.AuditRecorder{}, zap.NewNop(), &config.Config{CustomIsAdmin: true})
	return f
}

func (f *fixture) assign(u models.User, mrp, dlp float64) user_plan.AssignPlanRequest {
	return user_plan.AssignPlanRequest{UserRef: u.ID.Hex(), PlanRef: f.plan.ID.Hex(), MRP: mrp, DLP: dlp}
}

// seed gives M1 the plan and sub-assigns it to U1.
func (f *fixture) seed(t *testing.T) (held, sub *user_plan.UserPlan) {
	t.Helper()
	ctx := context.Background()
	held, err := f.svc.Assign(ctx, caller(f.admin), f.assign(f.m1, 100, 80))
	require.NoError(t, err)
	sub, err = f.svc.Assign(ctx, caller(f.m1), f.assign(f.u1, 100, 90))
	require.NoError(t, err)
	return held, sub
}

func TestAssignPlan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	held, sub := f.seed(t)

	assert.Equal(t, f.admin.ID, held.AssignedBy)
	assert.True(t, held.IsActive)
	assert.Equal(t, f.m1.ID, sub.AssignedBy)
	assert.Equal(t, f.u1.ID, sub.UserRef)

	t.Run("duplicate assignment conflicts", func(t *testing.T) {
		_, err := f.svc.Assign(ctx, caller(f.admin), f.assign(f.m1, 1, 1))
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("admin assigning to a missing plan", func(t *testing.T) {
		req := f.assign(f.m2, 1, 1)
		req.PlanRef = primitive.NewObjectID().Hex()
		_, err := f.svc.Assign(ctx, caller(f.admin), req)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("non admin cannot use the direct path", func(t *testing.T) {
		_, err := f.svc.AssignPlan(ctx, caller(f.m1), f.assign(f.u2, 1, 1))
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("non positive prices are rejected", func(t *testing.T) {
		_, err := f.svc.Assign(ctx, caller(f.admin), f.assign(f.m2, 0, 1))
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestAssignPlanToUserByMainDealer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	tests := []struct {
		name   string
		caller models.User
		target primitive.ObjectID
	}{
		{"user of another main dealer", f.m1, f.u3.ID},
		{"unknown user", f.m1, primitive.NewObjectID()},
		{"main dealer without the plan", f.m2, f.u3.ID},
		{"dealer caller", f.d1, f.u1.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := user_plan.AssignPlanRequest{UserRef: tt.target.Hex(), PlanRef: f.plan.ID.Hex(), MRP: 1, DLP: 1}
			_, err := f.svc.AssignPlanToUserByMainDealer(ctx, tt.caller.ID, req)
			require.Error(t, err)
			assert.True(t, apperrors.IsForbidden(err), "unexpected error: %v", err)
		})
	}

	t.Run("inactive holding is not enough", func(t *testing.T) {
		held, err := f.repo.FindActiveByUserAndPlan(ctx, f.m1.ID, f.plan.ID)
		require.NoError(t, err)
		inactive := false
		_, err = f.svc.UpdateUserPlanByID(ctx, caller(f.admin), held.ID.Hex(), user_plan.UpdateUserPlanRequest{IsActive: &inactive})
		require.NoError(t, err)

		_, err = f.svc.Assign(ctx, caller(f.m1), f.assign(f.u2, 1, 1))
		assert.True(t, apperrors.IsForbidden(err))
	})
}

func TestUpdateUserPlanCascadesOneHop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	held, sub := f.seed(t)

	// A record assigned by U1 sits two hops below the edited record.
	deep := user_plan.UserPlan{ID: primitive.NewObjectID(), PlanRef: f.plan.ID, UserRef: f.u2.ID, AssignedBy: f.u1.ID, MRP: 100, DLP: 95, IsActive: true}
	f.repo.Add(deep)
	// Same holder, different plan.
	otherPlan := user_plan.UserPlan{ID: primitive.NewObjectID(), PlanRef: primitive.NewObjectID(), UserRef: f.u2.ID, AssignedBy: f.m1.ID, MRP: 100, DLP: 95, IsActive: true}
	f.repo.Add(otherPlan)

	mrp, inactive := 150.0, false
	updated, err := f.svc.UpdateUserPlanByID(ctx, caller(f.admin), held.ID.Hex(), user_plan.UpdateUserPlanRequest{MRP: &mrp, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, 150.0, updated.MRP)
	assert.False(t, updated.IsActive)

	got, err := f.repo.FindByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 150.0, got.MRP)
	assert.False(t, got.IsActive)
	assert.Equal(t, 90.0, got.DLP, "fields not in the patch are not cascaded")

	got, err = f.repo.FindByID(ctx, deep.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.MRP)
	assert.True(t, got.IsActive)

	got, err = f.repo.FindByID(ctx, otherPlan.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.MRP)

	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.UserPlanCascadeUpdates))
}

func TestUpdateUserPlanByIDRequiresAssigner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	held, sub := f.seed(t)
	mrp := 120.0

	_, err := f.svc.UpdateUserPlanByID(ctx, caller(f.m1), held.ID.Hex(), user_plan.UpdateUserPlanRequest{MRP: &mrp})
	assert.True(t, apperrors.IsForbidden(err), "holders cannot edit their own record")

	updated, err := f.svc.UpdateUserPlanByID(ctx, caller(f.m1), sub.ID.Hex(), user_plan.UpdateUserPlanRequest{MRP: &mrp})
	require.NoError(t, err)
	assert.Equal(t, 120.0, updated.MRP)
	assert.Zero(t, promtest.ToFloat64(f.metrics.UserPlanCascadeUpdates))
}

func TestUpdateUserPlanStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	held, sub := f.seed(t)
	off := false

	t.Run("dealer is forbidden", func(t *testing.T) {
		_, err := f.svc.UpdateUserPlanStatus(ctx, caller(f.d1), sub.ID.Hex(), user_plan.UpdateStatusRequest{IsActive: &off})
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("main dealer outside its tree is forbidden", func(t *testing.T) {
		_, err := f.svc.UpdateUserPlanStatus(ctx, caller(f.m2), sub.ID.Hex(), user_plan.UpdateStatusRequest{IsActive: &off})
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("main dealer flips a record held below it", func(t *testing.T) {
		updated, err := f.svc.UpdateUserPlanStatus(ctx, caller(f.m1), sub.ID.Hex(), user_plan.UpdateStatusRequest{IsActive: &off})
		require.NoError(t, err)
		assert.False(t, updated.IsActive)
	})

	t.Run("status change never cascades", func(t *testing.T) {
		on := true
		_, err := f.svc.UpdateUserPlanStatus(ctx, caller(f.m1), sub.ID.Hex(), user_plan.UpdateStatusRequest{IsActive: &on})
		require.NoError(t, err)
		_, err = f.svc.UpdateUserPlanStatus(ctx, caller(f.admin), held.ID.Hex(), user_plan.UpdateStatusRequest{IsActive: &off})
		require.NoError(t, err)

		got, err := f.repo.FindByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.True(t, got.IsActive)
		got, err = f.repo.FindByID(ctx, held.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
	})

	t.Run("ownership follows the holder not the assigner", func(t *testing.T) {
		byAdmin, err := f.svc.Assign(ctx, caller(f.admin), f.assign(f.u2, 100, 90))
		require.NoError(t, err)
		updated, err := f.svc.UpdateUserPlanStatus(ctx, caller(f.m1), byAdmin.ID.Hex(), user_plan.UpdateStatusRequest{IsActive: &off})
		require.NoError(t, err)
		assert.False(t, updated.IsActive)

		stray := user_plan.UserPlan{ID: primitive.NewObjectID(), PlanRef: f.plan.ID, UserRef: f.u3.ID, AssignedBy: f.m1.ID, MRP: 100, DLP: 90, IsActive: true}
		f.repo.Add(stray)
		_, err = f.svc.UpdateUserPlanStatus(ctx, caller(f.m1), stray.ID.Hex(), user_plan.UpdateStatusRequest{IsActive: &off})
		assert.True(t, apperrors.IsForbidden(err))
	})

	t.Run("missing status fails validation", func(t *testing.T) {
		_, err := f.svc.UpdateUserPlanStatus(ctx, caller(f.admin), held.ID.Hex(), user_plan.UpdateStatusRequest{})
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestListAndGetUserPlans(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	held, sub := f.seed(t)

	all, err := f.svc.ListUserPlans(ctx, caller(f.admin), user_plan.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := f.svc.ListUserPlans(ctx, caller(f.u1), user_plan.ListFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, sub.ID, mine[0].ID)
	require.NotNil(t, mine[0].Plan)
	assert.Equal(t, "GOLD", mine[0].Plan.Code)
	require.NotNil(t, mine[0].AssignedUser)
	assert.Equal(t, f.m1.ID, mine[0].AssignedUser.ID)

	m1, err := f.svc.ListUserPlans(ctx, caller(f.m1), user_plan.ListFilter{UserRef: &f.u1.ID})
	require.NoError(t, err)
	assert.Len(t, m1, 1)

	_, err = f.svc.GetUserPlan(ctx, caller(f.u1), held.ID.Hex())
	assert.True(t, apperrors.IsForbidden(err))

	view, err := f.svc.GetUserPlan(ctx, caller(f.m1), held.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, f.m1.ID, view.User.ID)
}

func TestDeleteUserPlan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	held, sub := f.seed(t)

	err := f.svc.DeleteUserPlan(ctx, caller(f.u1), sub.ID.Hex())
	assert.True(t, apperrors.IsForbidden(err))

	require.NoError(t, f.svc.DeleteUserPlan(ctx, caller(f.admin), held.ID.Hex()))

	_, err = f.repo.FindByID(ctx, sub.ID)
	assert.NoError(t, err, "downstream assignments survive")
}
