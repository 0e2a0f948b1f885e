package custom_role

import (
	"context"
	"strings"
	"time"

	"jmkresearch-backend/internal/apperrors"
	common_models "jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/features/audit"
	"jmkresearch-backend/internal/features/permission"
	"jmkresearch-backend/internal/validation"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type PermissionFinder interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]permission.Permission, error)
}

// UserCounter reports how many users link to a custom role.
type UserCounter interface {
	CountByCustomRole(ctx context.Context, customRoleID primitive.ObjectID) (int64, error)
}

type CachePurger interface {
	Purge()
}

type CustomRoleService interface {
	CreateCustomRole(ctx context.Context, caller *common_models.Caller, req CreateCustomRoleRequest) (*View, error)
	GetCustomRole(ctx context.Context, id string) (*View, error)
	ListCustomRoles(ctx context.Context) ([]View, error)
	UpdateCustomRole(ctx context.Context, id string, req UpdateCustomRoleRequest) (*View, error)
	DeleteCustomRole(ctx context.Context, id string) error
}

type CustomRoleServiceImpl struct {
	Repo         CustomRoleRepository
	Permissions  PermissionFinder
	Domains      permission.DomainFinder
	Users        UserCounter
	Cache        CachePurger
	AuditService audit.AuditService
	Logger       *zap.Logger
}

func NewCustomRoleService(
	repo CustomRoleRepository,
	permissions PermissionFinder,
	domains permission.DomainFinder,
	users UserCounter,
	cache CachePurger,
	auditService audit.AuditService,
	logger *zap.Logger,
) CustomRoleService {
	return &CustomRoleServiceImpl{
		Repo:         repo,
		Permissions:  permissions,
		Domains:      domains,
		Users:        users,
		Cache:        cache,
		AuditService: auditService,
		Logger:       logger,
	}
}

func (s *CustomRoleServiceImpl) CreateCustomRole(ctx context.Context, caller *common_models.Caller, req CreateCustomRoleRequest) (*View, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if caller == nil {
		return nil, apperrors.Unauthorized("caller identity missing")
	}
	permissionIDs, err := s.resolvePermissions(ctx, req.Permissions)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	role := &CustomRole{
		ID:          primitive.NewObjectID(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Permissions: permissionIDs,
		CreatedBy:   caller.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, role); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionCreate, "custom_role", role.ID.Hex(), map[string]common_models.Change{
		"name":        {New: role.Name},
		"permissions": {New: len(role.Permissions)},
	})

	return s.populate(ctx, role)
}

func (s *CustomRoleServiceImpl) GetCustomRole(ctx context.Context, id string) (*View, error) {
	oid, err := validation.ObjectID("custom role id", id)
	if err != nil {
		return nil, err
	}
	role, err := s.Repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, role)
}

func (s *CustomRoleServiceImpl) ListCustomRoles(ctx context.Context) ([]View, error) {
	roles, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(roles))
	for i := range roles {
		view, err := s.populate(ctx, &roles[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

func (s *CustomRoleServiceImpl) UpdateCustomRole(ctx context.Context, id string, req UpdateCustomRoleRequest) (*View, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	oid, err := validation.ObjectID("custom role id", id)
	if err != nil {
		return nil, err
	}
	role, err := s.Repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]common_models.Change)
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name != role.Name {
			changes["name"] = common_models.Change{Old: role.Name, New: name}
			role.Name = name
		}
	}
	if req.Description != nil && *req.Description != role.Description {
		changes["description"] = common_models.Change{Old: role.Description, New: *req.Description}
		role.Description = *req.Description
	}
	if req.Permissions != nil {
		permissionIDs, err := s.resolvePermissions(ctx, req.Permissions)
		if err != nil {
			return nil, err
		}
		changes["permissions"] = common_models.Change{Old: len(role.Permissions), New: len(permissionIDs)}
		role.Permissions = permissionIDs
	}
	role.UpdatedAt = time.Now()

	if err := s.Repo.Update(ctx, role); err != nil {
		return nil, err
	}

	if _, ok := changes["permissions"]; ok {
		s.Cache.Purge()
	}
	if len(changes) > 0 {
		_ = s.AuditService.LogChange(ctx, common_models.AuditActionUpdate, "custom_role", role.ID.Hex(), changes)
	}
	return s.populate(ctx, role)
}

// DeleteCustomRole refuses while any user still links to the role.
func (s *CustomRoleServiceImpl) DeleteCustomRole(ctx context.Context, id string) error {
	oid, err := validation.ObjectID("custom role id", id)
	if err != nil {
		return err
	}
	role, err := s.Repo.FindByID(ctx, oid)
	if err != nil {
		return err
	}

	refs, err := s.Users.CountByCustomRole(ctx, oid)
	if err != nil {
		return err
	}
	if refs > 0 {
		return apperrors.Conflict("custom role %q is assigned to %d user(s)", role.Name, refs)
	}

	if err := s.Repo.Delete(ctx, oid); err != nil {
		return err
	}

	s.Logger.Info("Custom role deleted", zap.String("custom_role_id", id), zap.String("name", role.Name))
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionDelete, "custom_role", id, map[string]common_models.Change{
		"name": {Old: role.Name},
	})
	return nil
}

// resolvePermissions parses and de-duplicates ids and checks that each one
// exists, reporting all missing ids at once.
func (s *CustomRoleServiceImpl) resolvePermissions(ctx context.Context, raw []string) ([]primitive.ObjectID, error) {
	ids, err := validation.ObjectIDs("permissions", raw)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, apperrors.Validation("permissions must not be empty")
	}

	found, err := s.Permissions.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
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
		return nil, apperrors.NotFound("permission", strings.Join(missing, ", "))
	}
	return ids, nil
}

func (s *CustomRoleServiceImpl) populate(ctx context.Context, role *CustomRole) (*View, error) {
	perms, err := s.Permissions.FindByIDs(ctx, role.Permissions)
	if err != nil {
		return nil, err
	}
	views, err := permission.PopulateDomains(ctx, s.Domains, perms)
	if err != nil {
		return nil, err
	}
	return &View{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Permissions: views,
		CreatedBy:   role.CreatedBy,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}, nil
}
