package role_permission

import (
	"context"
	"strings"
	"time"

	"jmkresearch-backend/internal/apperrors"
	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/features/audit"
	"jmkresearch-backend/internal/features/permission"
	"jmkresearch-backend/internal/features/role"
	"jmkresearch-backend/internal/validation"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type RoleFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*role.Role, error)
}

type PermissionFinder interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]permission.Permission, error)
	List(ctx context.Context, filter permission.ListFilter) ([]permission.Permission, error)
}

type CachePurger interface {
	Purge()
}

type RolePermissionService interface {
	AddPermissionsToRole(ctx context.Context, roleID string, req PermissionIDsRequest) (*common_models.CountResult, error)
	RemovePermissionsFromRole(ctx context.Context, roleID string, req PermissionIDsRequest) (*common_models.CountResult, error)
	GetRolePermissions(ctx context.Context, roleID string) ([]View, error)
	GetAvailablePermissions(ctx context.Context, roleID string) ([]permission.View, error)
}

type RolePermissionServiceImpl struct {
	Repo         RolePermissionRepository
	Roles        RoleFinder
	Permissions  PermissionFinder
	Domains      permission.DomainFinder
	Cache        CachePurger
	AuditService audit.AuditService
	Logger       *zap.Logger
}

func NewRolePermissionService(
	repo RolePermissionRepository,
	roles RoleFinder,
	permissions PermissionFinder,
	domains permission.DomainFinder,
	cache CachePurger,
	auditService audit.AuditService,
	logger *zap.Logger,
) RolePermissionService {
	return &RolePermissionServiceImpl{
		Repo:         repo,
		Roles:        roles,
		Permissions:  permissions,
		Domains:      domains,
		Cache:        cache,
		AuditService: auditService,
		Logger:       logger,
	}
}

// AddPermissionsToRole maps every permission to the role. Pairs that are
// already mapped are skipped rather than reported as conflicts.
func (s *RolePermissionServiceImpl) AddPermissionsToRole(ctx context.Context, roleID string, req PermissionIDsRequest) (*common_models.CountResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	rid, err := validation.ObjectID("role id", roleID)
	if err != nil {
		return nil, err
	}
	permissionIDs, err := validation.ObjectIDs("permission_ids", req.PermissionIDs)
	if err != nil {
		return nil, err
	}
	if _, err := s.Roles.FindByID(ctx, rid); err != nil {
		return nil, err
	}
	if err := s.requireAll(ctx, permissionIDs); err != nil {
		return nil, err
	}

	now := time.Now()
	mappings := make([]RolePermission, 0, len(permissionIDs))
	for _, pid := range permissionIDs {
		mappings = append(mappings, RolePermission{
			ID:           primitive.NewObjectID(),
			RoleID:       rid,
			PermissionID: pid,
			CreatedAt:    now,
		})
	}

	added, skipped, err := s.Repo.InsertMany(ctx, mappings)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to map permissions to role")
	}
	if added > 0 {
		s.Cache.Purge()
		_ = s.AuditService.LogChange(ctx, common_models.AuditActionAssign, "role_permission", roleID, map[string]common_models.Change{
			"permissions": {New: added},
		})
	}

	s.Logger.Debug("Permissions mapped to role",
		zap.String("role_id", roleID),
		zap.Int64("added", added),
		zap.Int64("skipped", skipped),
	)
	return &common_models.CountResult{Added: added, Skipped: skipped}, nil
}

// RemovePermissionsFromRole deletes matching mappings. Absent pairs are not an error.
func (s *RolePermissionServiceImpl) RemovePermissionsFromRole(ctx context.Context, roleID string, req PermissionIDsRequest) (*common_models.CountResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	rid, err := validation.ObjectID("role id", roleID)
	if err != nil {
		return nil, err
	}
	permissionIDs, err := validation.ObjectIDs("permission_ids", req.PermissionIDs)
	if err != nil {
		return nil, err
	}

	removed, err := s.Repo.DeleteByRoleAndPermissions(ctx, rid, permissionIDs)
	if err != nil {
		return nil, err
	}
	if removed > 0 {
		s.Cache.Purge()
		_ = s.AuditService.LogChange(ctx, common_models.AuditActionRevoke, "role_permission", roleID, map[string]common_models.Change{
			"permissions": {Old: removed},
		})
	}
	return &common_models.CountResult{Removed: removed}, nil
}

func (s *RolePermissionServiceImpl) GetRolePermissions(ctx context.Context, roleID string) ([]View, error) {
	rid, err := validation.ObjectID("role id", roleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Roles.FindByID(ctx, rid); err != nil {
		return nil, err
	}

	mappings, err := s.Repo.FindByRoleID(ctx, rid)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(mappings))
	for _, m := range mappings {
		ids = append(ids, m.PermissionID)
	}
	perms, err := s.Permissions.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	populated, err := permission.PopulateDomains(ctx, s.Domains, perms)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]permission.View, len(populated))
	for _, p := range populated {
		byID[p.ID] = p
	}

	views := make([]View, 0, len(mappings))
	for _, m := range mappings {
		p, ok := byID[m.PermissionID]
		if !ok {
			// dangling mapping, left for the integrity sweep
			continue
		}
		views = append(views, View{ID: m.ID, RoleID: m.RoleID, Permission: p})
	}
	return views, nil
}

// GetAvailablePermissions lists active permissions not yet mapped to the role.
func (s *RolePermissionServiceImpl) GetAvailablePermissions(ctx context.Context, roleID string) ([]permission.View, error) {
	rid, err := validation.ObjectID("role id", roleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Roles.FindByID(ctx, rid); err != nil {
		return nil, err
	}

	mappings, err := s.Repo.FindByRoleID(ctx, rid)
	if err != nil {
		return nil, err
	}
	mapped := make([]primitive.ObjectID, 0, len(mappings))
	for _, m := range mappings {
		mapped = append(mapped, m.PermissionID)
	}

	active := true
	perms, err := s.Permissions.List(ctx, permission.ListFilter{IsActive: &active, Exclude: mapped})
	if err != nil {
		return nil, err
	}
	return permission.PopulateDomains(ctx, s.Domains, perms)
}

func (s *RolePermissionServiceImpl) requireAll(ctx context.Context, ids []primitive.ObjectID) error {
	found, err := s.Permissions.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	exists := make(map[primitive.ObjectID]bool, len(found))
	for _, p := range found {
		exists[p.ID] = true
	}
	var missing []string
	for _, id := range ids {
		if !exists[id] {
			missing = append(missing, id.Hex())
		}
	}
	if len(missing) > 0 {
		return apperrors.NotFound("permission", strings.Join(missing, ", "))
	}
	return nil
}
