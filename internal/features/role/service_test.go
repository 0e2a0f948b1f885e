package role_test

import (
	"context"
	"testing"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/database"
	"jmkresearch-backend/internal/features/role"
	"jmkresearch-backend/internal/features/role_permission"
	"jmkresearch-backend/internal/features/user_role"
	"jmkresearch-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fixture struct {
	svc             role.RoleService
	roles           *testutil.RoleRepo
	rolePermissions *testutil.RolePermissionRepo
	userRoles       *testutil.UserRoleRepo
	cache           *testutil.CacheSpy
	audit           *testutil.AuditRecorder
}

func newFixture() *fixture {
	f := &fixture{
		roles:           testutil.NewRoleRepo(),
		rolePermissions: testutil.NewRolePermissionRepo(),
		userRoles:       testutil.NewUserRoleRepo(),
		cache:           &testutil.CacheSpy{},
		audit:           &testutil.AuditRecorder{},
	}
	f.svc = role.NewRoleService(f.roles, f.rolePermissions, f.userRoles, f.cache, database.NoTx{}, f.audit, zap.NewNop())
	return f
}

func TestCreateRole(t *testing.T) {
	ctx := context.Background()

	t.Run("trims title and defaults to active", func(t *testing.T) {
		f := newFixture()
		r, err := f.svc.CreateRole(ctx, role.CreateRoleRequest{Title: "  Auditor "})
		require.NoError(t, err)
		assert.Equal(t, "Auditor", r.Title)
		assert.True(t, r.Status)
		assert.Len(t, f.audit.Entries, 1)
	})

	t.Run("duplicate title is a conflict", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.CreateRole(ctx, role.CreateRoleRequest{Title: "Auditor"})
		require.NoError(t, err)

		_, err = f.svc.CreateRole(ctx, role.CreateRoleRequest{Title: "Auditor"})
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))

		all, err := f.svc.ListRoles(ctx, role.ListFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("missing title fails validation", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.CreateRole(ctx, role.CreateRoleRequest{})
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestUpdateRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	auditor, err := f.svc.CreateRole(ctx, role.CreateRoleRequest{Title: "Auditor"})
	require.NoError(t, err)
	_, err = f.svc.CreateRole(ctx, role.CreateRoleRequest{Title: "Analyst"})
	require.NoError(t, err)

	taken := "Analyst"
	_, err = f.svc.UpdateRole(ctx, auditor.ID.Hex(), role.UpdateRoleRequest{Title: &taken})
	assert.True(t, apperrors.IsConflict(err))

	inactive := false
	updated, err := f.svc.UpdateRole(ctx, auditor.ID.Hex(), role.UpdateRoleRequest{Status: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.Status)
	assert.Equal(t, 1, f.cache.Purges)

	_, err = f.svc.UpdateRole(ctx, "not-an-id", role.UpdateRoleRequest{Status: &inactive})
	assert.True(t, apperrors.IsValidation(err))
}

func TestDeleteRoleCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	auditor, err := f.svc.CreateRole(ctx, role.CreateRoleRequest{Title: "Auditor"})
	require.NoError(t, err)

	other := primitive.NewObjectID()
	_, _, err = f.rolePermissions.InsertMany(ctx, []role_permission.RolePermission{
		{ID: primitive.NewObjectID(), RoleID: auditor.ID, PermissionID: primitive.NewObjectID()},
		{ID: primitive.NewObjectID(), RoleID: other, PermissionID: primitive.NewObjectID()},
	})
	require.NoError(t, err)
	userID := primitive.NewObjectID()
	_, _, err = f.userRoles.InsertMany(ctx, []user_role.UserRole{
		{ID: primitive.NewObjectID(), UserID: userID, RoleID: auditor.ID},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteRole(ctx, auditor.ID.Hex()))

	_, err = f.svc.GetRole(ctx, auditor.ID.Hex())
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, 1, f.rolePermissions.Count())
	left, err := f.userRoles.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Equal(t, 1, f.cache.Purges)
}

func TestDeleteSystemRoleRefused(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	sys := &role.Role{ID: primitive.NewObjectID(), Title: "Root", Status: true, IsSystem: true}
	require.NoError(t, f.roles.Create(ctx, sys))

	err := f.svc.DeleteRole(ctx, sys.ID.Hex())
	assert.True(t, apperrors.IsConflict(err))
}
