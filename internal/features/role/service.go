package role

import (
	"context"
	"strings"
	"time"

	"jmkresearch-backend/internal/apperrors"
	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/database"
	"jmkresearch-backend/internal/features/audit"
	"jmkresearch-backend/internal/validation"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RolePermissionCleaner drops the permission mappings of a deleted role.
type RolePermissionCleaner interface {
	DeleteByRoleID(ctx context.Context, roleID primitive.ObjectID) (int64, error)
}

// UserRoleCleaner drops the user assignments of a deleted role.
type UserRoleCleaner interface {
	DeleteByRoleID(ctx context.Context, roleID primitive.ObjectID) (int64, error)
}

type CachePurger interface {
	Purge()
}

type RoleService interface {
	CreateRole(ctx context.Context, req CreateRoleRequest) (*Role, error)
	GetRole(ctx context.Context, id string) (*Role, error)
	ListRoles(ctx context.Context, filter ListFilter) ([]Role, error)
	UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*Role, error)
	DeleteRole(ctx context.Context, id string) error
}

type RoleServiceImpl struct {
	RoleRepo        RoleRepository
	RolePermissions RolePermissionCleaner
	UserRoles       UserRoleCleaner
	Cache           CachePurger
	Tx              database.TxManager
	AuditService    audit.AuditService
	Logger          *zap.Logger
}

func NewRoleService(
	roleRepo RoleRepository,
	rolePermissions RolePermissionCleaner,
	userRoles UserRoleCleaner,
	cache CachePurger,
	tx database.TxManager,
	auditService audit.AuditService,
	logger *zap.Logger,
) RoleService {
	return &RoleServiceImpl{
		RoleRepo:        roleRepo,
		RolePermissions: rolePermissions,
		UserRoles:       userRoles,
		Cache:           cache,
		Tx:              tx,
		AuditService:    auditService,
		Logger:          logger,
	}
}

func (s *RoleServiceImpl) CreateRole(ctx context.Context, req CreateRoleRequest) (*Role, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)

	existing, err := s.RoleRepo.FindByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict("role %q already exists", title)
	}

	now := time.Now()
	role := &Role{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Description: req.Description,
		Status:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Status != nil {
		role.Status = *req.Status
	}

	// The unique index still catches a concurrent create with the same title.
	if err := s.RoleRepo.Create(ctx, role); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionCreate, "role", role.ID.Hex(), map[string]common_models.Change{
		"title": {New: role.Title},
	})

	return role, nil
}

func (s *RoleServiceImpl) GetRole(ctx context.Context, id string) (*Role, error) {
	oid, err := validation.ObjectID("role id", id)
	if err != nil {
		return nil, err
	}
	return s.RoleRepo.FindByID(ctx, oid)
}

func (s *RoleServiceImpl) ListRoles(ctx context.Context, filter ListFilter) ([]Role, error) {
	return s.RoleRepo.List(ctx, filter)
}

func (s *RoleServiceImpl) UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*Role, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	oid, err := validation.ObjectID("role id", id)
	if err != nil {
		return nil, err
	}
	role, err := s.RoleRepo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]common_models.Change)
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title != role.Title {
			existing, err := s.RoleRepo.FindByTitle(ctx, title)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != role.ID {
				return nil, apperrors.Conflict("role %q already exists", title)
			}
			changes["title"] = common_models.Change{Old: role.Title, New: title}
			role.Title = title
		}
	}
	if req.Description != nil && *req.Description != role.Description {
		changes["description"] = common_models.Change{Old: role.Description, New: *req.Description}
		role.Description = *req.Description
	}
	statusChanged := req.Status != nil && *req.Status != role.Status
	if statusChanged {
		changes["status"] = common_models.Change{Old: role.Status, New: *req.Status}
		role.Status = *req.Status
	}
	role.UpdatedAt = time.Now()

	if err := s.RoleRepo.Update(ctx, role); err != nil {
		return nil, err
	}

	if statusChanged {
		s.Cache.Purge()
	}
	if len(changes) > 0 {
		_ = s.AuditService.LogChange(ctx, common_models.AuditActionUpdate, "role", role.ID.Hex(), changes)
	}
	return role, nil
}

// DeleteRole removes the role and cascades to its permission mappings and
// user assignments.
func (s *RoleServiceImpl) DeleteRole(ctx context.Context, id string) error {
	oid, err := validation.ObjectID("role id", id)
	if err != nil {
		return err
	}
	role, err := s.RoleRepo.FindByID(ctx, oid)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return apperrors.Conflict("cannot delete system role %q", role.Title)
	}

	var permissions, users int64
	err = s.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.RoleRepo.Delete(txCtx, oid); err != nil {
			return err
		}
		var err error
		if permissions, err = s.RolePermissions.DeleteByRoleID(txCtx, oid); err != nil {
			return err
		}
		users, err = s.UserRoles.DeleteByRoleID(txCtx, oid)
		return err
	})
	if err != nil {
		return err
	}

	s.Cache.Purge()
	s.Logger.Info("Role deleted",
		zap.String("role_id", id),
		zap.String("title", role.Title),
		zap.Int64("permission_mappings_removed", permissions),
		zap.Int64("user_assignments_removed", users),
	)
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionDelete, "role", id, map[string]common_models.Change{
		"title": {Old: role.Title},
	})
	return nil
}
