package user_role

import (
	"context"
	"strings"
	"time"

	"jmkresearch-backend/internal/apperrors"
	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/database"
	"jmkresearch-backend/internal/features/audit"
	"jmkresearch-backend/internal/features/permission"
	"jmkresearch-backend/internal/features/role"
	"jmkresearch-backend/internal/features/role_permission"
	"jmkresearch-backend/internal/validation"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type UserFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*common_models.User, error)
}

type RoleFinder interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]role.Role, error)
}

type RolePermissionFinder interface {
	FindByRoleIDs(ctx context.Context, roleIDs []primitive.ObjectID) ([]role_permission.RolePermission, error)
}

type PermissionFinder interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]permission.Permission, error)
}

// CacheInvalidator drops one user's cached effective permission set.
type CacheInvalidator interface {
	Invalidate(userID primitive.ObjectID)
}

type UserRoleService interface {
	AssignRolesToUser(ctx context.Context, userID string, req RoleIDsRequest) (*common_models.CountResult, error)
	RemoveRolesFromUser(ctx context.Context, userID string, req RoleIDsRequest) (*common_models.CountResult, error)
	ToggleUserRoles(ctx context.Context, userID string, req ReplaceRolesRequest) (*common_models.CountResult, error)
	GetUserRolesAndPermissions(ctx context.Context, userID string) (*RolesAndPermissions, error)
}

type UserRoleServiceImpl struct {
	Repo            UserRoleRepository
	Users           UserFinder
	Roles           RoleFinder
	RolePermissions RolePermissionFinder
	Permissions     PermissionFinder
	Domains         permission.DomainFinder
	Cache           CacheInvalidator
	Tx              database.TxManager
	AuditService    audit.AuditService
	Logger          *zap.Logger
}

func NewUserRoleService(
	repo UserRoleRepository,
	users UserFinder,
	roles RoleFinder,
	rolePermissions RolePermissionFinder,
	permissions PermissionFinder,
	domains permission.DomainFinder,
	cache CacheInvalidator,
	tx database.TxManager,
	auditService audit.AuditService,
	logger *zap.Logger,
) UserRoleService {
	return &UserRoleServiceImpl{
		Repo:            repo,
		Users:           users,
		Roles:           roles,
		RolePermissions: rolePermissions,
		Permissions:     permissions,
		Domains:         domains,
		Cache:           cache,
		Tx:              tx,
		AuditService:    auditService,
		Logger:          logger,
	}
}

// AssignRolesToUser adds the roles; roles the user already holds are skipped.
func (s *UserRoleServiceImpl) AssignRolesToUser(ctx context.Context, userID string, req RoleIDsRequest) (*common_models.CountResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	uid, roleIDs, err := s.resolve(ctx, userID, req.RoleIDs)
	if err != nil {
		return nil, err
	}

	added, skipped, err := s.Repo.InsertMany(ctx, newAssignments(uid, roleIDs))
	if err != nil {
		return nil, apperrors.Internal(err, "failed to assign roles")
	}
	if added > 0 {
		s.Cache.Invalidate(uid)
		_ = s.AuditService.LogChange(ctx, common_models.AuditActionAssign, "user_role", userID, map[string]common_models.Change{
			"roles": {New: added},
		})
	}
	return &common_models.CountResult{Added: added, Skipped: skipped}, nil
}

func (s *UserRoleServiceImpl) RemoveRolesFromUser(ctx context.Context, userID string, req RoleIDsRequest) (*common_models.CountResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	uid, err := validation.ObjectID("user id", userID)
	if err != nil {
		return nil, err
	}
	roleIDs, err := validation.ObjectIDs("role_ids", req.RoleIDs)
	if err != nil {
		return nil, err
	}

	removed, err := s.Repo.DeleteByUserAndRoles(ctx, uid, roleIDs)
	if err != nil {
		return nil, err
	}
	if removed > 0 {
		s.Cache.Invalidate(uid)
		_ = s.AuditService.LogChange(ctx, common_models.AuditActionRevoke, "user_role", userID, map[string]common_models.Change{
			"roles": {Old: removed},
		})
	}
	return &common_models.CountResult{Removed: removed}, nil
}

// ToggleUserRoles replaces the user's complete role set: every existing
// assignment is removed and the given roles are inserted. Removed reports the
// prior count and Added the new one.
func (s *UserRoleServiceImpl) ToggleUserRoles(ctx context.Context, userID string, req ReplaceRolesRequest) (*common_models.CountResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	uid, roleIDs, err := s.resolve(ctx, userID, req.RoleIDs)
	if err != nil {
		return nil, err
	}

	result := &common_models.CountResult{}
	err = s.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		removed, err := s.Repo.DeleteByUserID(txCtx, uid)
		if err != nil {
			return err
		}
		added, skipped, err := s.Repo.InsertMany(txCtx, newAssignments(uid, roleIDs))
		if err != nil {
			return apperrors.Internal(err, "failed to assign roles")
		}
		result.Removed, result.Added, result.Skipped = removed, added, skipped
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Cache.Invalidate(uid)
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionUpdate, "user_role", userID, map[string]common_models.Change{
		"roles": {Old: result.Removed, New: result.Added},
	})
	return result, nil
}

// GetUserRolesAndPermissions returns the user's roles and the union of their
// permissions, de-duplicated by permission id.
func (s *UserRoleServiceImpl) GetUserRolesAndPermissions(ctx context.Context, userID string) (*RolesAndPermissions, error) {
	uid, err := validation.ObjectID("user id", userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Users.FindByID(ctx, uid); err != nil {
		return nil, err
	}

	assignments, err := s.Repo.FindByUserID(ctx, uid)
	if err != nil {
		return nil, err
	}
	roleIDs := make([]primitive.ObjectID, 0, len(assignments))
	for _, a := range assignments {
		roleIDs = append(roleIDs, a.RoleID)
	}
	roles, err := s.Roles.FindByIDs(ctx, roleIDs)
	if err != nil {
		return nil, err
	}

	mappings, err := s.RolePermissions.FindByRoleIDs(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	seen := make(map[primitive.ObjectID]bool, len(mappings))
	permissionIDs := make([]primitive.ObjectID, 0, len(mappings))
	for _, m := range mappings {
		if seen[m.PermissionID] {
			continue
		}
		seen[m.PermissionID] = true
		permissionIDs = append(permissionIDs, m.PermissionID)
	}

	perms, err := s.Permissions.FindByIDs(ctx, permissionIDs)
	if err != nil {
		return nil, err
	}
	views, err := permission.PopulateDomains(ctx, s.Domains, perms)
	if err != nil {
		return nil, err
	}

	return &RolesAndPermissions{UserID: uid, Roles: roles, Permissions: views}, nil
}

// resolve checks that the user and every role exist.
func (s *UserRoleServiceImpl) resolve(ctx context.Context, userID string, rawRoleIDs []string) (primitive.ObjectID, []primitive.ObjectID, error) {
	uid, err := validation.ObjectID("user id", userID)
	if err != nil {
		return primitive.NilObjectID, nil, err
	}
	roleIDs, err := validation.ObjectIDs("role_ids", rawRoleIDs)
	if err != nil {
		return primitive.NilObjectID, nil, err
	}
	if _, err := s.Users.FindByID(ctx, uid); err != nil {
		return primitive.NilObjectID, nil, err
	}

	if len(roleIDs) > 0 {
		found, err := s.Roles.FindByIDs(ctx, roleIDs)
		if err != nil {
			return primitive.NilObjectID, nil, err
		}
		exists := make(map[primitive.ObjectID]bool, len(found))
		for _, r := range found {
			exists[r.ID] = true
		}
		var missing []string
		for _, id := range roleIDs {
			if !exists[id] {
				missing = append(missing, id.Hex())
			}
		}
		if len(missing) > 0 {
			return primitive.NilObjectID, nil, apperrors.NotFound("role", strings.Join(missing, ", "))
		}
	}
	return uid, roleIDs, nil
}

func newAssignments(userID primitive.ObjectID, roleIDs []primitive.ObjectID) []UserRole {
	now := time.Now()
	assignments := make([]UserRole, 0, len(roleIDs))
	for _, rid := range roleIDs {
		assignments = append(assignments, UserRole{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			RoleID:    rid,
			CreatedAt: now,
		})
	}
	return assignments
}
