package audit_test

import (
	"context"
	"errors"
	"testing"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/features/audit"
	"jmkresearch-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memoryAuditRepo struct {
	logs      []models.AuditLog
	createErr error
	lastLimit int64
	lastSkip  int64
}

func (r *memoryAuditRepo) Create(ctx context.Context, log models.AuditLog) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.logs = append(r.logs, log)
	return nil
}

func (r *memoryAuditRepo) List(ctx context.Context, filter audit.LogFilter, limit, offset int64) ([]models.AuditLog, int64, error) {
	r.lastLimit, r.lastSkip = limit, offset
	out := []models.AuditLog{}
	for _, l := range r.logs {
		if filter.Module != "" && l.Module != filter.Module {
			continue
		}
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

func (r *memoryAuditRepo) EnsureIndexes(ctx context.Context) error { return nil }

func TestLogChangeAttributesCaller(t *testing.T) {
	repo := &memoryAuditRepo{}
	svc := audit.NewAuditService(repo, testutil.NewUserRepo(), zap.NewNop())

	caller := &models.Caller{ID: primitive.NewObjectID(), UserType: models.UserTypeMainDealer}
	ctx := models.WithCaller(context.Background(), caller)
	require.NoError(t, svc.LogChange(ctx, models.AuditActionAssign, "user_plan", "abc", nil))
	require.NoError(t, svc.LogChange(context.Background(), models.AuditActionSweep, "integrity", "def", nil))

	require.Len(t, repo.logs, 2)
	assert.Equal(t, caller.ID.Hex(), repo.logs[0].ActorID)
	assert.Equal(t, "system", repo.logs[1].ActorID)
	assert.False(t, repo.logs[0].Timestamp.IsZero())
}

func TestLogChangeReturnsStoreError(t *testing.T) {
	boom := errors.New("write failed")
	svc := audit.NewAuditService(&memoryAuditRepo{createErr: boom}, testutil.NewUserRepo(), zap.NewNop())

	err := svc.LogChange(context.Background(), models.AuditActionDelete, "role", "x", nil)
	assert.ErrorIs(t, err, boom)
}

func TestListLogsResolvesActorNames(t *testing.T) {
	users := testutil.NewUserRepo()
	alice := models.User{ID: primitive.NewObjectID(), Name: "Alice", UserType: models.UserTypeSuperAdmin, IsActive: true}
	users.Add(alice)

	repo := &memoryAuditRepo{logs: []models.AuditLog{
		{Module: "role", ActorID: alice.ID.Hex()},
		{Module: "role", ActorID: "system"},
		{Module: "role", ActorID: primitive.NewObjectID().Hex()},
		{Module: "plan", ActorID: alice.ID.Hex()},
	}}
	svc := audit.NewAuditService(repo, users, zap.NewNop())

	page, err := svc.ListLogs(context.Background(), audit.LogFilter{Module: "role"}, 2, 10)
	require.NoError(t, err)
	require.Len(t, page.Logs, 3)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, "Alice", page.Logs[0].ActorName)
	assert.Equal(t, "System", page.Logs[1].ActorName)
	assert.Equal(t, "Unknown User", page.Logs[2].ActorName)
	assert.EqualValues(t, 10, repo.lastLimit)
	assert.EqualValues(t, 10, repo.lastSkip)
}

func TestListLogsPaging(t *testing.T) {
	repo := &memoryAuditRepo{}
	svc := audit.NewAuditService(repo, testutil.NewUserRepo(), zap.NewNop())

	page, err := svc.ListLogs(context.Background(), audit.LogFilter{}, 0, 5000)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Page)
	assert.EqualValues(t, 20, page.Limit)
	assert.Zero(t, repo.lastSkip)
	assert.NotNil(t, page.Logs)
}

func TestListLogsRejectsBadFilter(t *testing.T) {
	svc := audit.NewAuditService(&memoryAuditRepo{}, testutil.NewUserRepo(), zap.NewNop())

	for name, f := range map[string]audit.LogFilter{
		"record id": {RecordID: "nope"},
		"actor id":  {ActorID: "someone"},
		"action":    {Action: "PURGE"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ListLogs(context.Background(), f, 1, 20)
			assert.True(t, apperrors.IsValidation(err), "%v", err)
		})
	}

	_, err := svc.ListLogs(context.Background(), audit.LogFilter{ActorID: "system", Action: "SWEEP"}, 1, 20)
	assert.NoError(t, err)
}
