package plan_test

import (
	"context"
	"testing"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/features/plan"
	"jmkresearch-backend/internal/features/user_plan"
	"jmkresearch-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newService() (plan.PlanService, *testutil.UserPlanRepo) {
	userPlans := testutil.NewUserPlanRepo()
	return plan.NewPlanService(testutil.NewPlanRepo(), userPlans, &testutil.AuditRecorder{}, zap.NewNop()), userPlans
}

func TestCreatePlan(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	p, err := svc.CreatePlan(ctx, plan.CreatePlanRequest{Name: " Gold ", Code: "GOLD"})
	require.NoError(t, err)
	assert.Equal(t, "Gold", p.Name)
	assert.True(t, p.IsActive)
	assert.NotNil(t, p.Features)

	_, err = svc.CreatePlan(ctx, plan.CreatePlanRequest{Name: "Gold again", Code: " GOLD "})
	assert.True(t, apperrors.IsConflict(err), "%v", err)

	_, err = svc.CreatePlan(ctx, plan.CreatePlanRequest{Name: "No code"})
	assert.True(t, apperrors.IsValidation(err), "%v", err)

	_, err = svc.CreatePlan(ctx, plan.CreatePlanRequest{Name: "Bad", Code: "BAD", PlanFeatures: []string{"zzz"}})
	assert.True(t, apperrors.IsValidation(err), "%v", err)

	inactive := false
	silver, err := svc.CreatePlan(ctx, plan.CreatePlanRequest{Name: "Silver", Code: "SILVER", IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, silver.IsActive)

	active := true
	listed, err := svc.ListPlans(ctx, plan.ListFilter{IsActive: &active})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "GOLD", listed[0].Code)
}

func TestUpdatePlanCode(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	gold, err := svc.CreatePlan(ctx, plan.CreatePlanRequest{Name: "Gold", Code: "GOLD"})
	require.NoError(t, err)
	_, err = svc.CreatePlan(ctx, plan.CreatePlanRequest{Name: "Silver", Code: "SILVER"})
	require.NoError(t, err)

	taken := "SILVER"
	_, err = svc.UpdatePlan(ctx, gold.ID.Hex(), plan.UpdatePlanRequest{Code: &taken})
	assert.True(t, apperrors.IsConflict(err), "%v", err)

	same, renamed := "GOLD", "GOLD-2026"
	_, err = svc.UpdatePlan(ctx, gold.ID.Hex(), plan.UpdatePlanRequest{Code: &same})
	require.NoError(t, err)
	updated, err := svc.UpdatePlan(ctx, gold.ID.Hex(), plan.UpdatePlanRequest{Code: &renamed, Features: []string{"charts"}})
	require.NoError(t, err)
	assert.Equal(t, "GOLD-2026", updated.Code)
	assert.Equal(t, []string{"charts"}, updated.Features)

	_, err = svc.UpdatePlan(ctx, primitive.NewObjectID().Hex(), plan.UpdatePlanRequest{Code: &renamed})
	assert.True(t, apperrors.IsNotFound(err), "%v", err)
}

func TestDeletePlanRefusedWhileAssigned(t *testing.T) {
	ctx := context.Background()
	svc, userPlans := newService()
	gold, err := svc.CreatePlan(ctx, plan.CreatePlanRequest{Name: "Gold", Code: "GOLD"})
	require.NoError(t, err)

	held := user_plan.UserPlan{ID: primitive.NewObjectID(), PlanRef: gold.ID, UserRef: primitive.NewObjectID(), AssignedBy: primitive.NewObjectID(), MRP: 100, DLP: 80, IsActive: true}
	userPlans.Add(held)

	err = svc.DeletePlan(ctx, gold.ID.Hex())
	assert.True(t, apperrors.IsConflict(err), "%v", err)

	require.NoError(t, userPlans.Delete(ctx, held.ID))
	require.NoError(t, svc.DeletePlan(ctx, gold.ID.Hex()))
	_, err = svc.GetPlan(ctx, gold.ID.Hex())
	assert.True(t, apperrors.IsNotFound(err), "%v", err)
}
