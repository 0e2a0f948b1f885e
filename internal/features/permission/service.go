package permission

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

// RolePermissionCleaner drops role mappings of a deleted permission.
type RolePermissionCleaner interface {
	DeleteByPermissionID(ctx context.Context, permissionID primitive.ObjectID) (int64, error)
}

// CustomRolePermissionPuller removes a permission from every custom role.
type CustomRolePermissionPuller interface {
	PullPermission(ctx context.Context, permissionID primitive.ObjectID) (int64, error)
	CountSoleHolders(ctx context.Context, permissionID primitive.ObjectID) (int64, error)
}

// UserPermissionPuller removes a permission from every user's direct grants.
type UserPermissionPuller interface {
	PullPermission(ctx context.Context, permissionID primitive.ObjectID) (int64, error)
}

// CachePurger drops every cached effective permission set.
type CachePurger interface {
	Purge()
}

type PermissionService interface {
	CreatePermission(ctx context.Context, req CreatePermissionRequest) (*View, error)
	GetPermission(ctx context.Context, id string) (*View, error)
	ListPermissions(ctx context.Context, filter ListFilter) ([]View, error)
	UpdatePermission(ctx context.Context, id string, req UpdatePermissionRequest) (*View, error)
	DeletePermission(ctx context.Context, id string) error
}

type PermissionServiceImpl struct {
	PermissionRepo PermissionRepository
	Domains        DomainFinder
	RoleMappings   RolePermissionCleaner
	CustomRoles    CustomRolePermissionPuller
	Users          UserPermissionPuller
	Cache          CachePurger
	Tx             database.TxManager
	AuditService   audit.AuditService
	Logger         *zap.Logger
}

func NewPermissionService(
	permissionRepo PermissionRepository,
	domains DomainFinder,
	roleMappings RolePermissionCleaner,
	customRoles CustomRolePermissionPuller,
	users UserPermissionPuller,
	cache CachePurger,
	tx database.TxManager,
	auditService audit.AuditService,
	logger *zap.Logger,
) PermissionService {
	return &PermissionServiceImpl{
		PermissionRepo: permissionRepo,
		Domains:        domains,
		RoleMappings:   roleMappings,
		CustomRoles:    customRoles,
		Users:          users,
		Cache:          cache,
		Tx:             tx,
		AuditService:   auditService,
		Logger:         logger,
	}
}

func (s *PermissionServiceImpl) CreatePermission(ctx context.Context, req CreatePermissionRequest) (*View, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	domainID, err := validation.ObjectID("domain", req.Domain)
	if err != nil {
		return nil, err
	}
	domain, err := s.Domains.FindByID(ctx, domainID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	permission := &Permission{
		ID:          primitive.NewObjectID(),
		Domain:      domainID,
		Actions:     normalizeActions(req.Actions),
		Instance:    strings.TrimSpace(req.Instance),
		Description: req.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.IsActive != nil {
		permission.IsActive = *req.IsActive
	}

	if err := s.PermissionRepo.Create(ctx, permission); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionCreate, "permission", permission.ID.Hex(), map[string]common_models.Change{
		"domain":   {New: domain.Title},
		"actions":  {New: permission.Actions},
		"instance": {New: permission.Instance},
	})

	view := NewView(*permission, domain.Summary())
	return &view, nil
}

func (s *PermissionServiceImpl) GetPermission(ctx context.Context, id string) (*View, error) {
	oid, err := validation.ObjectID("permission id", id)
	if err != nil {
		return nil, err
	}
	permission, err := s.PermissionRepo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	views, err := PopulateDomains(ctx, s.Domains, []Permission{*permission})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *PermissionServiceImpl) ListPermissions(ctx context.Context, filter ListFilter) ([]View, error) {
	permissions, err := s.PermissionRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return PopulateDomains(ctx, s.Domains, permissions)
}

func (s *PermissionServiceImpl) UpdatePermission(ctx context.Context, id string, req UpdatePermissionRequest) (*View, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	oid, err := validation.ObjectID("permission id", id)
	if err != nil {
		return nil, err
	}
	permission, err := s.PermissionRepo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]common_models.Change)
	if req.Domain != nil {
		domainID, err := validation.ObjectID("domain", *req.Domain)
		if err != nil {
			return nil, err
		}
		if domainID != permission.Domain {
			if _, err := s.Domains.FindByID(ctx, domainID); err != nil {
				return nil, err
			}
			changes["domain"] = common_models.Change{Old: permission.Domain.Hex(), New: domainID.Hex()}
			permission.Domain = domainID
		}
	}
	if req.Actions != nil {
		actions := normalizeActions(*req.Actions)
		if actions != permission.Actions {
			changes["actions"] = common_models.Change{Old: permission.Actions, New: actions}
			permission.Actions = actions
		}
	}
	if req.Instance != nil {
		instance := strings.TrimSpace(*req.Instance)
		if instance != permission.Instance {
			changes["instance"] = common_models.Change{Old: permission.Instance, New: instance}
			permission.Instance = instance
		}
	}
	if req.Description != nil && *req.Description != permission.Description {
		changes["description"] = common_models.Change{Old: permission.Description, New: *req.Description}
		permission.Description = *req.Description
	}
	if req.IsActive != nil && *req.IsActive != permission.IsActive {
		changes["is_active"] = common_models.Change{Old: permission.IsActive, New: *req.IsActive}
		permission.IsActive = *req.IsActive
	}
	permission.UpdatedAt = time.Now()

	if err := s.PermissionRepo.Update(ctx, permission); err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		s.Cache.Purge()
		_ = s.AuditService.LogChange(ctx, common_models.AuditActionUpdate, "permission", permission.ID.Hex(), changes)
	}

	views, err := PopulateDomains(ctx, s.Domains, []Permission{*permission})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// DeletePermission removes the permission together with every reference to
// it: role mappings, custom role lists and direct user grants. A permission
// that is the last one held by a custom role cannot be deleted.
func (s *PermissionServiceImpl) DeletePermission(ctx context.Context, id string) error {
	oid, err := validation.ObjectID("permission id", id)
	if err != nil {
		return err
	}
	perm, err := s.PermissionRepo.FindByID(ctx, oid)
	if err != nil {
		return err
	}
	sole, err := s.CustomRoles.CountSoleHolders(ctx, oid)
	if err != nil {
		return err
	}
	if sole > 0 {
		return apperrors.Conflict("permission %s is the only permission of %d custom role(s); update or delete them first", perm.Instance, sole)
	}

	var mappings, customRoles, users int64
	err = s.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.PermissionRepo.Delete(txCtx, oid); err != nil {
			return err
		}
		var err error
		if mappings, err = s.RoleMappings.DeleteByPermissionID(txCtx, oid); err != nil {
			return err
		}
		if customRoles, err = s.CustomRoles.PullPermission(txCtx, oid); err != nil {
			return err
		}
		users, err = s.Users.PullPermission(txCtx, oid)
		return err
	})
	if err != nil {
		return err
	}

	s.Cache.Purge()
	s.Logger.Info("Permission deleted",
		zap.String("permission_id", id),
		zap.Int64("role_mappings_removed", mappings),
		zap.Int64("custom_roles_updated", customRoles),
		zap.Int64("users_updated", users),
	)
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionDelete, "permission", id, map[string]common_models.Change{
		"role_mappings": {Old: mappings, New: 0},
	})
	return nil
}

// normalizeActions trims every action and drops empty entries.
func normalizeActions(raw string) string {
	p := Permission{Actions: raw}
	return strings.Join(p.ActionList(), ",")
}
