package domain_test

import (
	"context"
	"testing"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/features/domain"
	"jmkresearch-backend/internal/features/permission"
	"jmkresearch-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestDomainLifecycle(t *testing.T) {
	ctx := context.Background()
	domains := testutil.NewDomainRepo()
	permissions := testutil.NewPermissionRepo()
	svc := domain.NewDomainService(domains, permissions, &testutil.AuditRecorder{}, zap.NewNop())

	d, err := svc.CreateDomain(ctx, domain.CreateDomainRequest{Title: "Market Share"})
	require.NoError(t, err)
	assert.Equal(t, "market-share", d.Key)
	assert.True(t, d.Status)

	_, err = svc.CreateDomain(ctx, domain.CreateDomainRequest{Title: "Market Share"})
	assert.True(t, apperrors.IsConflict(err))

	require.NoError(t, permissions.Create(ctx, &permission.Permission{ID: primitive.NewObjectID(), Domain: d.ID, Actions: "read", Instance: "*"}))
	err = svc.DeleteDomain(ctx, d.ID.Hex())
	assert.True(t, apperrors.IsConflict(err), "domains referenced by permissions cannot be deleted")

	other, err := svc.CreateDomain(ctx, domain.CreateDomainRequest{Title: "Ticket"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteDomain(ctx, other.ID.Hex()))
	_, err = svc.GetDomain(ctx, other.ID.Hex())
	assert.True(t, apperrors.IsNotFound(err))
}
