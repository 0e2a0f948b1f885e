package authz

import (
	"context"
	"sort"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/features/custom_role"
	"jmkresearch-backend/internal/features/permission"
	"jmkresearch-backend/internal/features/role"
	"jmkresearch-backend/internal/features/role_permission"
	"jmkresearch-backend/internal/features/user_role"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type UserRoleFinder interface {
	FindByUserID(ctx context.Context, userID primitive.ObjectID) ([]user_role.UserRole, error)
}

type RoleFinder interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]role.Role, error)
}

type RolePermissionFinder interface {
	FindByRoleIDs(ctx context.Context, roleIDs []primitive.ObjectID) ([]role_permission.RolePermission, error)
}

type CustomRoleFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*custom_role.CustomRole, error)
}

type PermissionFinder interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]permission.Permission, error)
}

// Resolver walks the permission graph of a single user.
type Resolver struct {
	Users           UserFinder
	UserRoles       UserRoleFinder
	Roles           RoleFinder
	RolePermissions RolePermissionFinder
	CustomRoles     CustomRoleFinder
	Permissions     PermissionFinder
	Domains         permission.DomainFinder
}

func NewResolver(
	users UserFinder,
	userRoles UserRoleFinder,
	roles RoleFinder,
	rolePermissions RolePermissionFinder,
	customRoles CustomRoleFinder,
	permissions PermissionFinder,
	domains permission.DomainFinder,
) *Resolver {
	return &Resolver{
		Users:           users,
		UserRoles:       userRoles,
		Roles:           roles,
		RolePermissions: rolePermissions,
		CustomRoles:     customRoles,
		Permissions:     permissions,
		Domains:         domains,
	}
}

// Resolve builds the effective permission set of userID. Inactive roles and
// inactive permissions contribute nothing; dangling references are skipped.
// A missing user yields an empty set.
func (r *Resolver) Resolve(ctx context.Context, userID primitive.ObjectID, customIsAdmin bool) (*EffectivePermissionSet, error) {
	user, err := r.Users.FindByID(ctx, userID)
	if apperrors.IsNotFound(err) {
		return &EffectivePermissionSet{UserID: userID, index: map[string]bool{}}, nil
	}
	if err != nil {
		return nil, err
	}

	set := &EffectivePermissionSet{
		UserID:   user.ID,
		UserType: user.UserType,
		Admin:    (&models.Caller{ID: user.ID, UserType: user.UserType}).IsAdmin(customIsAdmin),
		index:    map[string]bool{},
	}

	sources := make(map[primitive.ObjectID][]PermissionSource)
	var order []primitive.ObjectID
	add := func(id primitive.ObjectID, src PermissionSource) {
		if _, ok := sources[id]; !ok {
			order = append(order, id)
		}
		sources[id] = append(sources[id], src)
	}

	if err := r.collectRoleGrants(ctx, user.ID, add); err != nil {
		return nil, err
	}

	if user.CustomRoleRef != nil {
		cr, err := r.CustomRoles.FindByID(ctx, *user.CustomRoleRef)
		switch {
		case apperrors.IsNotFound(err):
		case err != nil:
			return nil, err
		default:
			for _, id := range cr.Permissions {
				add(id, ViaCustomRole(cr.ID))
			}
		}
	}

	for _, id := range user.Permissions {
		add(id, Direct())
	}

	if err := r.fill(ctx, set, order, sources); err != nil {
		return nil, err
	}
	return set, nil
}

func (r *Resolver) collectRoleGrants(ctx context.Context, userID primitive.ObjectID, add func(primitive.ObjectID, PermissionSource)) error {
	assignments, err := r.UserRoles.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		return nil
	}
	roleIDs := make([]primitive.ObjectID, 0, len(assignments))
	for _, a := range assignments {
		roleIDs = append(roleIDs, a.RoleID)
	}

	roles, err := r.Roles.FindByIDs(ctx, roleIDs)
	if err != nil {
		return err
	}
	active := make([]primitive.ObjectID, 0, len(roles))
	for _, ro := range roles {
		if ro.Status {
			active = append(active, ro.ID)
		}
	}
	if len(active) == 0 {
		return nil
	}

	mappings, err := r.RolePermissions.FindByRoleIDs(ctx, active)
	if err != nil {
		return err
	}
	for _, m := range mappings {
		add(m.PermissionID, ViaRole(m.RoleID))
	}
	return nil
}

func (r *Resolver) fill(ctx context.Context, set *EffectivePermissionSet, order []primitive.ObjectID, sources map[primitive.ObjectID][]PermissionSource) error {
	for _, c := range models.DefaultTypeGrants[set.UserType] {
		set.index[string(c)] = true
	}

	if len(order) > 0 {
		perms, err := r.Permissions.FindByIDs(ctx, order)
		if err != nil {
			return err
		}
		active := perms[:0]
		for _, p := range perms {
			if p.IsActive {
				active = append(active, p)
			}
		}
		views, err := permission.PopulateDomains(ctx, r.Domains, active)
		if err != nil {
			return err
		}
		byID := make(map[primitive.ObjectID]int, len(active))
		for i := range active {
			byID[active[i].ID] = i
		}

		for _, id := range order {
			i, ok := byID[id]
			if !ok {
				continue
			}
			set.Grants = append(set.Grants, Grant{Permission: views[i], Sources: sources[id]})
			for _, action := range active[i].ActionList() {
				set.index[action] = true
				if d := views[i].Domain; d != nil && d.Key != "" {
					set.index[d.Key+":"+action] = true
				}
			}
		}
	}

	set.Capabilities = make([]string, 0, len(set.index))
	for c := range set.index {
		set.Capabilities = append(set.Capabilities, c)
	}
	sort.Strings(set.Capabilities)
	return nil
}
