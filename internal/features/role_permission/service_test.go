package role_permission_test

import (
	"context"
	"testing"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/features/domain"
	"jmkresearch-backend/internal/features/permission"
	"jmkresearch-backend/internal/features/role"
	"jmkresearch-backend/internal/features/role_permission"
	"jmkresearch-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fixture struct {
	svc         role_permission.RolePermissionService
	repo        *testutil.RolePermissionRepo
	cache       *testutil.CacheSpy
	role        *role.Role
	read, write *permission.Permission
	inactive    *permission.Permission
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	domains := testutil.NewDomainRepo()
	permissions := testutil.NewPermissionRepo()
	roles := testutil.NewRoleRepo()

	tender := &domain.Domain{ID: primitive.NewObjectID(), Title: "Tender", Key: "tender", Status: true}
	require.NoError(t, domains.Create(ctx, tender))

	f := &fixture{
		repo:     testutil.NewRolePermissionRepo(),
		cache:    &testutil.CacheSpy{},
		role:     &role.Role{ID: primitive.NewObjectID(), Title: "Auditor", Status: true},
		read:     &permission.Permission{ID: primitive.NewObjectID(), Domain: tender.ID, Actions: "read", Instance: "*", IsActive: true},
		write:    &permission.Permission{ID: primitive.NewObjectID(), Domain: tender.ID, Actions: "write", Instance: "*", IsActive: true},
		inactive: &permission.Permission{ID: primitive.NewObjectID(), Domain: tender.ID, Actions: "export", Instance: "*", IsActive: false},
	}
	require.NoError(t, roles.Create(ctx, f.role))
	for _, p := range []*permission.Permission{f.read, f.write, f.inactive} {
		require.NoError(t, permissions.Create(ctx, p))
	}
	f.svc = role_permission.NewRolePermissionService(f.repo, roles, permissions, domains, f.cache, &testutil.AuditRecorder{}, zap.NewNop())
	return f
}

func ids(ps ...*permission.Permission) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID.Hex())
	}
	return out
}

func TestAddPermissionsToRoleSkipsExistingPairs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.AddPermissionsToRole(ctx, f.role.ID.Hex(), role_permission.PermissionIDsRequest{PermissionIDs: ids(f.read)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Added)

	res, err = f.svc.AddPermissionsToRole(ctx, f.role.ID.Hex(), role_permission.PermissionIDsRequest{PermissionIDs: ids(f.read, f.write)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Added)
	assert.EqualValues(t, 1, res.Skipped)
	assert.Equal(t, 2, f.repo.Count())
	assert.Equal(t, 2, f.cache.Purges)

	res, err = f.svc.AddPermissionsToRole(ctx, f.role.ID.Hex(), role_permission.PermissionIDsRequest{PermissionIDs: ids(f.read)})
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.Added)
	assert.Equal(t, 2, f.repo.Count())
	assert.Equal(t, 2, f.cache.Purges)
}

func TestAddPermissionsToRoleErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name   string
		roleID string
		perms  []string
		check  func(error) bool
	}{
		{"unknown role", primitive.NewObjectID().Hex(), ids(f.read), apperrors.IsNotFound},
		{"unknown permission", f.role.ID.Hex(), []string{primitive.NewObjectID().Hex()}, apperrors.IsNotFound},
		{"malformed role id", "xyz", ids(f.read), apperrors.IsValidation},
		{"malformed permission id", f.role.ID.Hex(), []string{"xyz"}, apperrors.IsValidation},
		{"empty list", f.role.ID.Hex(), []string{}, apperrors.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddPermissionsToRole(ctx, tt.roleID, role_permission.PermissionIDsRequest{PermissionIDs: tt.perms})
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
	assert.Zero(t, f.repo.Count())
}

func TestRemoveAndListRolePermissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.AddPermissionsToRole(ctx, f.role.ID.Hex(), role_permission.PermissionIDsRequest{PermissionIDs: ids(f.read, f.write)})
	require.NoError(t, err)

	views, err := f.svc.GetRolePermissions(ctx, f.role.ID.Hex())
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.NotNil(t, views[0].Permission.Domain)
	assert.Equal(t, "tender", views[0].Permission.Domain.Key)

	available, err := f.svc.GetAvailablePermissions(ctx, f.role.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, available, "inactive permissions are not offered")

	res, err := f.svc.RemovePermissionsFromRole(ctx, f.role.ID.Hex(), role_permission.PermissionIDsRequest{PermissionIDs: ids(f.write, f.inactive)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Removed)

	available, err = f.svc.GetAvailablePermissions(ctx, f.role.ID.Hex())
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, f.write.ID, available[0].ID)
}
