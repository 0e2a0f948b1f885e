package integrity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/config"
	"jmkresearch-backend/internal/features/hierarchy"
	"jmkresearch-backend/internal/features/integrity"
	"jmkresearch-backend/internal/features/permission"
	"jmkresearch-backend/internal/features/role"
	"jmkresearch-backend/internal/features/role_permission"
	"jmkresearch-backend/internal/features/user_role"
	"jmkresearch-backend/internal/metrics"
	"jmkresearch-backend/internal/testutil"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type MockReportRepo struct {
	mu      sync.Mutex
	reports []integrity.Report
}

func (m *MockReportRepo) Create(ctx context.Context, report *integrity.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	report.ID = primitive.NewObjectID()
	m.reports = append(m.reports, *report)
	return nil
}

func (m *MockReportRepo) Update(ctx context.Context, report *integrity.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.reports {
		if m.reports[i].ID == report.ID {
			m.reports[i] = *report
		}
	}
	return nil
}

func (m *MockReportRepo) List(ctx context.Context, limit int64) ([]integrity.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []integrity.Report{}
	for i := len(m.reports) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		out = append(out, m.reports[i])
	}
	return out, nil
}

func (m *MockReportRepo) EnsureIndexes(ctx context.Context) error { return nil }

func TestSweep(t *testing.T) {
	ctx := context.Background()
	users := testutil.NewUserRepo()
	roles := testutil.NewRoleRepo()
	permissions := testutil.NewPermissionRepo()
	rolePermissions := testutil.NewRolePermissionRepo()
	userRoles := testutil.NewUserRoleRepo()
	cache := &testutil.CacheSpy{}
	audit := &testutil.AuditRecorder{}
	reports := &MockReportRepo{}
	m := metrics.NewMetrics(prometheus.NewRegistry())

	auditor := &role.Role{ID: primitive.NewObjectID(), Title: "Auditor", Status: true}
	require.NoError(t, roles.Create(ctx, auditor))
	read := &permission.Permission{ID: primitive.NewObjectID(), Domain: primitive.NewObjectID(), Actions: "read", Instance: "*", IsActive: true}
	require.NoError(t, permissions.Create(ctx, read))

	mainDealer := models.User{ID: primitive.NewObjectID(), UserType: models.UserTypeMainDealer}
	dealer := models.User{ID: primitive.NewObjectID(), UserType: models.UserTypeDealer, MainDealerRef: &mainDealer.ID}
	// Stored without the main dealer its dealer belongs to.
	drifted := models.User{ID: primitive.NewObjectID(), UserType: models.UserTypeUser, DealerRef: &dealer.ID}
	// Dealer pointing at a user that no longer exists.
	dangling := primitive.NewObjectID()
	broken := models.User{ID: primitive.NewObjectID(), UserType: models.UserTypeDealer, MainDealerRef: &dangling}
	users.Add(mainDealer, dealer, drifted, broken)

	_, _, err := rolePermissions.InsertMany(ctx, []role_permission.RolePermission{
		{ID: primitive.NewObjectID(), RoleID: auditor.ID, PermissionID: read.ID},
		{ID: primitive.NewObjectID(), RoleID: primitive.NewObjectID(), PermissionID: read.ID},
		{ID: primitive.NewObjectID(), RoleID: auditor.ID, PermissionID: primitive.NewObjectID()},
	})
	require.NoError(t, err)
	_, _, err = userRoles.InsertMany(ctx, []user_role.UserRole{
		{ID: primitive.NewObjectID(), UserID: dealer.ID, RoleID: auditor.ID},
		{ID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), RoleID: auditor.ID},
		{ID: primitive.NewObjectID(), UserID: dealer.ID, RoleID: primitive.NewObjectID()},
	})
	require.NoError(t, err)

	svc := integrity.NewIntegrityService(
		reports, roles, permissions, users, rolePermissions, userRoles,
		hierarchy.NewValidator(users), cache, audit, m, zap.NewNop(),
		&config.Config{IntegritySchedule: ""},
	)

	report, err := svc.Sweep(ctx, integrity.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, integrity.StatusSuccess, report.Status)
	assert.NotNil(t, report.EndTime)
	assert.EqualValues(t, 2, report.RolePermissionsRemoved)
	assert.EqualValues(t, 2, report.UserRolesRemoved)
	assert.Equal(t, 4, report.UsersChecked)
	assert.Equal(t, 1, rolePermissions.Count())

	flagged := map[primitive.ObjectID]bool{}
	for _, v := range report.Violations {
		flagged[v.UserID] = true
	}
	assert.Equal(t, map[primitive.ObjectID]bool{drifted.ID: true, broken.ID: true}, flagged)

	assert.Equal(t, 1, cache.Purges)
	require.Len(t, audit.Entries, 1)
	assert.Equal(t, models.AuditActionSweep, audit.Entries[0].Action)
	assert.Equal(t, 2.0, promtest.ToFloat64(m.IntegrityOrphansRemoved.WithLabelValues("user_roles")))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.IntegrityViolations))

	t.Run("second sweep finds nothing to remove", func(t *testing.T) {
		report, err := svc.Sweep(ctx, integrity.TriggerManual)
		require.NoError(t, err)
		assert.Zero(t, report.RolePermissionsRemoved+report.UserRolesRemoved)
		assert.Equal(t, 1, cache.Purges)

		listed, err := svc.ListReports(ctx, 0)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, report.ID, listed[0].ID)
		assert.Equal(t, integrity.StatusSuccess, listed[1].Status)
	})
}

func TestSchedulerDisabledAndInvalid(t *testing.T) {
	newSvc := func(schedule string) integrity.IntegrityService {
		return integrity.NewIntegrityService(
			&MockReportRepo{}, nil, nil, nil, nil, nil, nil, nil, nil,
			metrics.NewMetrics(prometheus.NewRegistry()), zap.NewNop(),
			&config.Config{IntegritySchedule: schedule},
		)
	}

	svc := newSvc("")
	require.NoError(t, svc.InitializeScheduler())
	svc.StopScheduler()

	assert.Error(t, newSvc("every tuesday").InitializeScheduler())

	svc = newSvc("@every 1h")
	require.NoError(t, svc.InitializeScheduler())
	svc.StopScheduler()
}

// staleIDs returns the ids captured when it was built, like a listing taken
// just before concurrent writes land.
type staleIDs []primitive.ObjectID

func (s staleIDs) ListIDs(ctx context.Context) ([]primitive.ObjectID, error) { return s, nil }

func TestSweepKeepsMappingsNewerThanSnapshot(t *testing.T) {
	ctx := context.Background()
	users := testutil.NewUserRepo()
	rolePermissions := testutil.NewRolePermissionRepo()
	userRoles := testutil.NewUserRoleRepo()

	oldRole, newRole := primitive.NewObjectID(), primitive.NewObjectID()
	perm := primitive.NewObjectID()
	holder := models.User{ID: primitive.NewObjectID(), UserType: models.UserTypeSuperAdmin}
	users.Add(holder)

	deletedRole := primitive.NewObjectID()
	longAgo := time.Now().Add(-24 * time.Hour)
	_, _, err := rolePermissions.InsertMany(ctx, []role_permission.RolePermission{
		{ID: primitive.NewObjectID(), RoleID: oldRole, PermissionID: perm, CreatedAt: longAgo},
		{ID: primitive.NewObjectID(), RoleID: deletedRole, PermissionID: perm, CreatedAt: longAgo},
		// written while the sweep runs, for a role the snapshot predates
		{ID: primitive.NewObjectID(), RoleID: newRole, PermissionID: perm, CreatedAt: time.Now()},
	})
	require.NoError(t, err)
	_, _, err = userRoles.InsertMany(ctx, []user_role.UserRole{
		{ID: primitive.NewObjectID(), UserID: holder.ID, RoleID: newRole, CreatedAt: time.Now()},
		{ID: primitive.NewObjectID(), UserID: holder.ID, RoleID: deletedRole, CreatedAt: longAgo},
	})
	require.NoError(t, err)

	svc := integrity.NewIntegrityService(
		&MockReportRepo{}, staleIDs{oldRole}, staleIDs{perm}, users, rolePermissions, userRoles,
		hierarchy.NewValidator(users), &testutil.CacheSpy{}, &testutil.AuditRecorder{},
		metrics.NewMetrics(prometheus.NewRegistry()), zap.NewNop(),
		&config.Config{},
	)

	report, err := svc.Sweep(ctx, integrity.TriggerManual)
	require.NoError(t, err)
	assert.EqualValues(t, 1, report.RolePermissionsRemoved)
	assert.EqualValues(t, 1, report.UserRolesRemoved)

	kept, err := rolePermissions.FindByRoleID(ctx, newRole)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
	gone, err := rolePermissions.FindByRoleID(ctx, deletedRole)
	require.NoError(t, err)
	assert.Empty(t, gone)

	assignments, err := userRoles.FindByUserID(ctx, holder.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, newRole, assignments[0].RoleID)
}
