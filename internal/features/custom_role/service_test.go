package custom_role_test

import (
	"context"
	"testing"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/features/custom_role"
	"jmkresearch-backend/internal/features/domain"
	"jmkresearch-backend/internal/features/permission"
	"jmkresearch-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fixture struct {
	svc         custom_role.CustomRoleService
	repo        *testutil.CustomRoleRepo
	users       *testutil.UserRepo
	cache       *testutil.CacheSpy
	audit       *testutil.AuditRecorder
	admin       *models.Caller
	read, write *permission.Permission
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	domains := testutil.NewDomainRepo()
	permissions := testutil.NewPermissionRepo()

	chart := &domain.Domain{ID: primitive.NewObjectID(), Title: "Chart", Key: "chart", Status: true}
	require.NoError(t, domains.Create(ctx, chart))

	f := &fixture{
		repo:  testutil.NewCustomRoleRepo(),
		users: testutil.NewUserRepo(),
		cache: &testutil.CacheSpy{},
		audit: &testutil.AuditRecorder{},
		admin: &models.Caller{ID: primitive.NewObjectID(), UserType: models.UserTypeSuperAdmin},
		read:  &permission.Permission{ID: primitive.NewObjectID(), Domain: chart.ID, Actions: "read", Instance: "*", IsActive: true},
		write: &permission.Permission{ID: primitive.NewObjectID(), Domain: chart.ID, Actions: "write,export", Instance: "*", IsActive: true},
	}
	require.NoError(t, permissions.Create(ctx, f.read))
	require.NoError(t, permissions.Create(ctx, f.write))

	f.svc = custom_role.NewCustomRoleService(f.repo, permissions, domains, f.users, f.cache, f.audit, zap.NewNop())
	return f
}

func TestCreateCustomRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	view, err := f.svc.CreateCustomRole(ctx, f.admin, custom_role.CreateCustomRoleRequest{
		Name:        "  Chart Analyst ",
		Permissions: []string{f.read.ID.Hex(), f.write.ID.Hex(), f.read.ID.Hex()},
	})
	require.NoError(t, err)
	assert.Equal(t, "Chart Analyst", view.Name)
	assert.Equal(t, f.admin.ID, view.CreatedBy)
	require.Len(t, view.Permissions, 2)
	require.NotNil(t, view.Permissions[0].Domain)
	assert.Equal(t, "Chart", view.Permissions[0].Domain.Title)

	stored, err := f.repo.FindByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Permissions, 2)
	require.Len(t, f.audit.Entries, 1)
	assert.Equal(t, models.AuditActionCreate, f.audit.Entries[0].Action)
}

func TestCreateCustomRoleErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	missing := primitive.NewObjectID().Hex()

	tests := []struct {
		name   string
		caller *models.Caller
		req    custom_role.CreateCustomRoleRequest
		check  func(error) bool
	}{
		{"empty permissions", f.admin, custom_role.CreateCustomRoleRequest{Name: "x"}, apperrors.IsValidation},
		{"malformed id", f.admin, custom_role.CreateCustomRoleRequest{Name: "x", Permissions: []string{"nope"}}, apperrors.IsValidation},
		{"missing name", f.admin, custom_role.CreateCustomRoleRequest{Permissions: []string{f.read.ID.Hex()}}, apperrors.IsValidation},
		{"unknown permission", f.admin, custom_role.CreateCustomRoleRequest{Name: "x", Permissions: []string{f.read.ID.Hex(), missing}}, apperrors.IsNotFound},
		{"no caller", nil, custom_role.CreateCustomRoleRequest{Name: "x", Permissions: []string{f.read.ID.Hex()}}, apperrors.IsUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateCustomRole(ctx, tt.caller, tt.req)
			require.Error(t, err)
			assert.True(t, tt.check(err), "%v", err)
		})
	}

	roles, err := f.svc.ListCustomRoles(ctx)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestUpdateCustomRolePurgesOnPermissionChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	view, err := f.svc.CreateCustomRole(ctx, f.admin, custom_role.CreateCustomRoleRequest{
		Name: "Viewer", Permissions: []string{f.read.ID.Hex()},
	})
	require.NoError(t, err)

	desc := "read only"
	_, err = f.svc.UpdateCustomRole(ctx, view.ID.Hex(), custom_role.UpdateCustomRoleRequest{Description: &desc})
	require.NoError(t, err)
	assert.Zero(t, f.cache.Purges)

	updated, err := f.svc.UpdateCustomRole(ctx, view.ID.Hex(), custom_role.UpdateCustomRoleRequest{
		Permissions: []string{f.read.ID.Hex(), f.write.ID.Hex()},
	})
	require.NoError(t, err)
	assert.Len(t, updated.Permissions, 2)
	assert.Equal(t, "read only", updated.Description)
	assert.Equal(t, 1, f.cache.Purges)

	_, err = f.svc.UpdateCustomRole(ctx, view.ID.Hex(), custom_role.UpdateCustomRoleRequest{
		Permissions: []string{primitive.NewObjectID().Hex()},
	})
	assert.True(t, apperrors.IsNotFound(err), "%v", err)
}

func TestDeleteCustomRoleRefusedWhileAssigned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	view, err := f.svc.CreateCustomRole(ctx, f.admin, custom_role.CreateCustomRoleRequest{
		Name: "Ops", Permissions: []string{f.read.ID.Hex()},
	})
	require.NoError(t, err)

	ref := view.ID
	holder := models.User{ID: primitive.NewObjectID(), Email: "ops@example.com", UserType: models.UserTypeCustom, CustomRoleRef: &ref, IsActive: true}
	f.users.Add(holder)

	err = f.svc.DeleteCustomRole(ctx, view.ID.Hex())
	assert.True(t, apperrors.IsConflict(err), "%v", err)

	require.NoError(t, f.users.Delete(ctx, holder.ID))
	require.NoError(t, f.svc.DeleteCustomRole(ctx, view.ID.Hex()))

	_, err = f.svc.GetCustomRole(ctx, view.ID.Hex())
	assert.True(t, apperrors.IsNotFound(err), "%v", err)
	assert.True(t, apperrors.IsValidation(f.svc.DeleteCustomRole(ctx, "bad")))
}
