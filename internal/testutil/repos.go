package testutil

import (
	"context"
	"strings"
	"time"

	"jmkresearch-backend/internal/apperrors"
	"jmkresearch-backend/internal/common/models"
	"jmkresearch-backend/internal/features/custom_role"
	"jmkresearch-backend/internal/features/domain"
	"jmkresearch-backend/internal/features/permission"
	"jmkresearch-backend/internal/features/plan"
	"jmkresearch-backend/internal/features/role"
	"jmkresearch-backend/internal/features/role_permission"
	"jmkresearch-backend/internal/features/user"
	"jmkresearch-backend/internal/features/user_plan"
	"jmkresearch-backend/internal/features/user_role"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Domains

type DomainRepo struct{ t *table[domain.Domain] }

func NewDomainRepo() *DomainRepo {
	return &DomainRepo{t: newTable(func(d *domain.Domain) primitive.ObjectID { return d.ID })}
}

var _ domain.DomainRepository = (*DomainRepo)(nil)

func (r *DomainRepo) Create(ctx context.Context, d *domain.Domain) error {
	if found := r.t.filter(func(x *domain.Domain) bool { return x.Title == d.Title }); len(found) > 0 {
		return apperrors.Conflict("domain already exists")
	}
	r.t.insert(*d)
	return nil
}

func (r *DomainRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Domain, error) {
	d, ok := r.t.get(id)
	if !ok {
		return nil, apperrors.NotFound("domain", id.Hex())
	}
	return &d, nil
}

func (r *DomainRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Domain, error) {
	set := idSet(ids)
	return r.t.filter(func(d *domain.Domain) bool { return set[d.ID] }), nil
}

func (r *DomainRepo) FindByTitle(ctx context.Context, title string) (*domain.Domain, error) {
	found := r.t.filter(func(d *domain.Domain) bool { return d.Title == title })
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (r *DomainRepo) List(ctx context.Context, filter domain.ListFilter) ([]domain.Domain, error) {
	return r.t.filter(func(d *domain.Domain) bool { return filter.Status == nil || d.Status == *filter.Status }), nil
}

func (r *DomainRepo) Update(ctx context.Context, d *domain.Domain) error {
	if r.t.update(r.t.byID(d.ID), func(x *domain.Domain) { *x = *d }) == 0 {
		return apperrors.NotFound("domain", d.ID.Hex())
	}
	return nil
}

func (r *DomainRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if r.t.remove(r.t.byID(id)) == 0 {
		return apperrors.NotFound("domain", id.Hex())
	}
	return nil
}

func (r *DomainRepo) EnsureIndexes(ctx context.Context) error { return nil }

// Permissions

type PermissionRepo struct{ t *table[permission.Permission] }

func NewPermissionRepo() *PermissionRepo {
	return &PermissionRepo{t: newTable(func(p *permission.Permission) primitive.ObjectID { return p.ID })}
}

var _ permission.PermissionRepository = (*PermissionRepo)(nil)

func (r *PermissionRepo) Create(ctx context.Context, p *permission.Permission) error {
	r.t.insert(*p)
	return nil
}

func (r *PermissionRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*permission.Permission, error) {
	p, ok := r.t.get(id)
	if !ok {
		return nil, apperrors.NotFound("permission", id.Hex())
	}
	return &p, nil
}

func (r *PermissionRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]permission.Permission, error) {
	set := idSet(ids)
	return r.t.filter(func(p *permission.Permission) bool { return set[p.ID] }), nil
}

func (r *PermissionRepo) List(ctx context.Context, filter permission.ListFilter) ([]permission.Permission, error) {
	excluded := idSet(filter.Exclude)
	return r.t.filter(func(p *permission.Permission) bool {
		return (filter.Domain == nil || p.Domain == *filter.Domain) &&
			(filter.IsActive == nil || p.IsActive == *filter.IsActive) &&
			!excluded[p.ID]
	}), nil
}

func (r *PermissionRepo) Update(ctx context.Context, p *permission.Permission) error {
	if r.t.update(r.t.byID(p.ID), func(x *permission.Permission) { *x = *p }) == 0 {
		return apperrors.NotFound("permission", p.ID.Hex())
	}
	return nil
}

func (r *PermissionRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if r.t.remove(r.t.byID(id)) == 0 {
		return apperrors.NotFound("permission", id.Hex())
	}
	return nil
}

func (r *PermissionRepo) ListIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	ids := []primitive.ObjectID{}
	for _, p := range r.t.filter(all[permission.Permission]) {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (r *PermissionRepo) CountByDomain(ctx context.Context, domainID primitive.ObjectID) (int64, error) {
	return int64(len(r.t.filter(func(p *permission.Permission) bool { return p.Domain == domainID }))), nil
}

func (r *PermissionRepo) EnsureIndexes(ctx context.Context) error { return nil }

// Roles

type RoleRepo struct{ t *table[role.Role] }

func NewRoleRepo() *RoleRepo {
	return &RoleRepo{t: newTable(func(ro *role.Role) primitive.ObjectID { return ro.ID })}
}

var _ role.RoleRepository = (*RoleRepo)(nil)

func (r *RoleRepo) Create(ctx context.Context, ro *role.Role) error {
	if found, _ := r.FindByTitle(ctx, ro.Title); found != nil {
		return apperrors.Conflict("role already exists")
	}
	r.t.insert(*ro)
	return nil
}

func (r *RoleRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*role.Role, error) {
	ro, ok := r.t.get(id)
	if !ok {
		return nil, apperrors.NotFound("role", id.Hex())
	}
	return &ro, nil
}

func (r *RoleRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]role.Role, error) {
	set := idSet(ids)
	return r.t.filter(func(ro *role.Role) bool { return set[ro.ID] }), nil
}

func (r *RoleRepo) FindByTitle(ctx context.Context, title string) (*role.Role, error) {
	found := r.t.filter(func(ro *role.Role) bool { return ro.Title == title })
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (r *RoleRepo) List(ctx context.Context, filter role.ListFilter) ([]role.Role, error) {
	return r.t.filter(func(ro *role.Role) bool { return filter.Status == nil || ro.Status == *filter.Status }), nil
}

func (r *RoleRepo) ListIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	ids := []primitive.ObjectID{}
	for _, ro := range r.t.filter(all[role.Role]) {
		ids = append(ids, ro.ID)
	}
	return ids, nil
}

func (r *RoleRepo) Update(ctx context.Context, ro *role.Role) error {
	if r.t.update(r.t.byID(ro.ID), func(x *role.Role) { *x = *ro }) == 0 {
		return apperrors.NotFound("role", ro.ID.Hex())
	}
	return nil
}

func (r *RoleRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if r.t.remove(r.t.byID(id)) == 0 {
		return apperrors.NotFound("role", id.Hex())
	}
	return nil
}

func (r *RoleRepo) EnsureIndexes(ctx context.Context) error { return nil }

// Custom roles

type CustomRoleRepo struct{ t *table[custom_role.CustomRole] }

func NewCustomRoleRepo() *CustomRoleRepo {
	return &CustomRoleRepo{t: newTable(func(c *custom_role.CustomRole) primitive.ObjectID { return c.ID })}
}

var _ custom_role.CustomRoleRepository = (*CustomRoleRepo)(nil)

func (r *CustomRoleRepo) Create(ctx context.Context, c *custom_role.CustomRole) error {
	r.t.insert(*c)
	return nil
}

func (r *CustomRoleRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*custom_role.CustomRole, error) {
	c, ok := r.t.get(id)
	if !ok {
		return nil, apperrors.NotFound("custom role", id.Hex())
	}
	return &c, nil
}

func (r *CustomRoleRepo) List(ctx context.Context) ([]custom_role.CustomRole, error) {
	return r.t.filter(all[custom_role.CustomRole]), nil
}

func (r *CustomRoleRepo) Update(ctx context.Context, c *custom_role.CustomRole) error {
	if r.t.update(r.t.byID(c.ID), func(x *custom_role.CustomRole) { *x = *c }) == 0 {
		return apperrors.NotFound("custom role", c.ID.Hex())
	}
	return nil
}

func (r *CustomRoleRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if r.t.remove(r.t.byID(id)) == 0 {
		return apperrors.NotFound("custom role", id.Hex())
	}
	return nil
}

func (r *CustomRoleRepo) PullPermission(ctx context.Context, permissionID primitive.ObjectID) (int64, error) {
	return r.t.update(
		func(c *custom_role.CustomRole) bool { return containsID(c.Permissions, permissionID) },
		func(c *custom_role.CustomRole) { c.Permissions = withoutID(c.Permissions, permissionID) },
	), nil
}

func (r *CustomRoleRepo) CountSoleHolders(ctx context.Context, permissionID primitive.ObjectID) (int64, error) {
	held := r.t.filter(func(c *custom_role.CustomRole) bool {
		return len(c.Permissions) == 1 && c.Permissions[0] == permissionID
	})
	return int64(len(held)), nil
}

func (r *CustomRoleRepo) EnsureIndexes(ctx context.Context) error { return nil }

// Role-permission mappings. The unique (role_id, permission_id) index is
// emulated by InsertMany.

type RolePermissionRepo struct{ t *table[role_permission.RolePermission] }

func NewRolePermissionRepo() *RolePermissionRepo {
	return &RolePermissionRepo{t: newTable(func(m *role_permission.RolePermission) primitive.ObjectID { return m.ID })}
}

var _ role_permission.RolePermissionRepository = (*RolePermissionRepo)(nil)

func (r *RolePermissionRepo) InsertMany(ctx context.Context, mappings []role_permission.RolePermission) (added, skipped int64, err error) {
	for _, m := range mappings {
		dup := r.t.filter(func(x *role_permission.RolePermission) bool {
			return x.RoleID == m.RoleID && x.PermissionID == m.PermissionID
		})
		if len(dup) > 0 {
			skipped++
			continue
		}
		r.t.insert(m)
		added++
	}
	return added, skipped, nil
}

func (r *RolePermissionRepo) DeleteByRoleAndPermissions(ctx context.Context, roleID primitive.ObjectID, permissionIDs []primitive.ObjectID) (int64, error) {
	set := idSet(permissionIDs)
	return r.t.remove(func(x *role_permission.RolePermission) bool { return x.RoleID == roleID && set[x.PermissionID] }), nil
}

func (r *RolePermissionRepo) DeleteByRoleID(ctx context.Context, roleID primitive.ObjectID) (int64, error) {
	return r.t.remove(func(x *role_permission.RolePermission) bool { return x.RoleID == roleID }), nil
}

func (r *RolePermissionRepo) DeleteByPermissionID(ctx context.Context, permissionID primitive.ObjectID) (int64, error) {
	return r.t.remove(func(x *role_permission.RolePermission) bool { return x.PermissionID == permissionID }), nil
}

func (r *RolePermissionRepo) DeleteOrphans(ctx context.Context, roleIDs, permissionIDs []primitive.ObjectID, createdBefore time.Time) (int64, error) {
	roles, perms := idSet(roleIDs), idSet(permissionIDs)
	return r.t.remove(func(x *role_permission.RolePermission) bool {
		return x.CreatedAt.Before(createdBefore) && (!roles[x.RoleID] || !perms[x.PermissionID])
	}), nil
}

func (r *RolePermissionRepo) FindByRoleID(ctx context.Context, roleID primitive.ObjectID) ([]role_permission.RolePermission, error) {
	return r.t.filter(func(x *role_permission.RolePermission) bool { return x.RoleID == roleID }), nil
}

func (r *RolePermissionRepo) FindByRoleIDs(ctx context.Context, roleIDs []primitive.ObjectID) ([]role_permission.RolePermission, error) {
	set := idSet(roleIDs)
	return r.t.filter(func(x *role_permission.RolePermission) bool { return set[x.RoleID] }), nil
}

func (r *RolePermissionRepo) EnsureIndexes(ctx context.Context) error { return nil }

// Count returns the number of stored mappings.
func (r *RolePermissionRepo) Count() int {
	return len(r.t.filter(all[role_permission.RolePermission]))
}

// User-role mappings

type UserRoleRepo struct{ t *table[user_role.UserRole] }

func NewUserRoleRepo() *UserRoleRepo {
	return &UserRoleRepo{t: newTable(func(m *user_role.UserRole) primitive.ObjectID { return m.ID })}
}

var _ user_role.UserRoleRepository = (*UserRoleRepo)(nil)

func (r *UserRoleRepo) InsertMany(ctx context.Context, assignments []user_role.UserRole) (added, skipped int64, err error) {
	for _, a := range assignments {
		dup := r.t.filter(func(x *user_role.UserRole) bool { return x.UserID == a.UserID && x.RoleID == a.RoleID })
		if len(dup) > 0 {
			skipped++
			continue
		}
		r.t.insert(a)
		added++
	}
	return added, skipped, nil
}

func (r *UserRoleRepo) DeleteByUserAndRoles(ctx context.Context, userID primitive.ObjectID, roleIDs []primitive.ObjectID) (int64, error) {
	set := idSet(roleIDs)
	return r.t.remove(func(x *user_role.UserRole) bool { return x.UserID == userID && set[x.RoleID] }), nil
}

func (r *UserRoleRepo) DeleteByUserID(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.t.remove(func(x *user_role.UserRole) bool { return x.UserID == userID }), nil
}

func (r *UserRoleRepo) DeleteByRoleID(ctx context.Context, roleID primitive.ObjectID) (int64, error) {
	return r.t.remove(func(x *user_role.UserRole) bool { return x.RoleID == roleID }), nil
}

func (r *UserRoleRepo) DeleteOrphans(ctx context.Context, userIDs, roleIDs []primitive.ObjectID, createdBefore time.Time) (int64, error) {
	users, roles := idSet(userIDs), idSet(roleIDs)
	return r.t.remove(func(x *user_role.UserRole) bool {
		return x.CreatedAt.Before(createdBefore) && (!users[x.UserID] || !roles[x.RoleID])
	}), nil
}

func (r *UserRoleRepo) FindByUserID(ctx context.Context, userID primitive.ObjectID) ([]user_role.UserRole, error) {
	return r.t.filter(func(x *user_role.UserRole) bool { return x.UserID == userID }), nil
}

func (r *UserRoleRepo) EnsureIndexes(ctx context.Context) error { return nil }

// Users

type UserRepo struct{ t *table[models.User] }

func NewUserRepo() *UserRepo {
	return &UserRepo{t: newTable(func(u *models.User) primitive.ObjectID { return u.ID })}
}

var _ user.UserRepository = (*UserRepo)(nil)

// Add stores users as given; fixtures use it to build hierarchies.
func (r *UserRepo) Add(users ...models.User) {
	for _, u := range users {
		r.t.insert(u)
	}
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	if found, _ := r.FindByEmail(ctx, u.Email); found != nil {
		return apperrors.Conflict("user already exists")
	}
	r.t.insert(*u)
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := r.t.get(id)
	if !ok {
		return nil, apperrors.NotFound("user", id.Hex())
	}
	return &u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	found := r.t.filter(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (r *UserRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	set := idSet(ids)
	return r.t.filter(func(u *models.User) bool { return set[u.ID] }), nil
}

func (r *UserRepo) FindIDs(ctx context.Context, filter bson.M) ([]primitive.ObjectID, error) {
	ids := []primitive.ObjectID{}
	for _, u := range r.t.filter(func(u *models.User) bool { return Matches(u, filter) }) {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func (r *UserRepo) List(ctx context.Context, filter bson.M, limit, offset int64) ([]models.User, int64, error) {
	matched := r.t.filter(func(u *models.User) bool { return Matches(u, filter) })
	total := int64(len(matched))
	if offset >= total {
		return []models.User{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

func (r *UserRepo) ListAll(ctx context.Context) ([]models.User, error) {
	return r.t.filter(all[models.User]), nil
}

func (r *UserRepo) Count(ctx context.Context, filter bson.M) (int64, error) {
	return int64(len(r.t.filter(func(u *models.User) bool { return Matches(u, filter) }))), nil
}

func (r *UserRepo) Update(ctx context.Context, u *models.User) error {
	if r.t.update(r.t.byID(u.ID), func(x *models.User) { *x = *u }) == 0 {
		return apperrors.NotFound("user", u.ID.Hex())
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if r.t.remove(r.t.byID(id)) == 0 {
		return apperrors.NotFound("user", id.Hex())
	}
	return nil
}

func (r *UserRepo) PullPermission(ctx context.Context, permissionID primitive.ObjectID) (int64, error) {
	return r.t.update(
		func(u *models.User) bool { return containsID(u.Permissions, permissionID) },
		func(u *models.User) { u.Permissions = withoutID(u.Permissions, permissionID) },
	), nil
}

func (r *UserRepo) CountByCustomRole(ctx context.Context, customRoleID primitive.ObjectID) (int64, error) {
	return int64(len(r.t.filter(func(u *models.User) bool {
		return u.CustomRoleRef != nil && *u.CustomRoleRef == customRoleID
	}))), nil
}

func (r *UserRepo) EnsureIndexes(ctx context.Context) error { return nil }

// Plans

type PlanRepo struct{ t *table[plan.Plan] }

func NewPlanRepo() *PlanRepo {
	return &PlanRepo{t: newTable(func(p *plan.Plan) primitive.ObjectID { return p.ID })}
}

var _ plan.PlanRepository = (*PlanRepo)(nil)

func (r *PlanRepo) Create(ctx context.Context, p *plan.Plan) error {
	if found, _ := r.FindByCode(ctx, p.Code); found != nil {
		return apperrors.Conflict("plan already exists")
	}
	r.t.insert(*p)
	return nil
}

func (r *PlanRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*plan.Plan, error) {
	p, ok := r.t.get(id)
	if !ok {
		return nil, apperrors.NotFound("plan", id.Hex())
	}
	return &p, nil
}

func (r *PlanRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]plan.Plan, error) {
	set := idSet(ids)
	return r.t.filter(func(p *plan.Plan) bool { return set[p.ID] }), nil
}

func (r *PlanRepo) FindByCode(ctx context.Context, code string) (*plan.Plan, error) {
	found := r.t.filter(func(p *plan.Plan) bool { return p.Code == code })
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (r *PlanRepo) List(ctx context.Context, filter plan.ListFilter) ([]plan.Plan, error) {
	return r.t.filter(func(p *plan.Plan) bool { return filter.IsActive == nil || p.IsActive == *filter.IsActive }), nil
}

func (r *PlanRepo) Update(ctx context.Context, p *plan.Plan) error {
	if r.t.update(r.t.byID(p.ID), func(x *plan.Plan) { *x = *p }) == 0 {
		return apperrors.NotFound("plan", p.ID.Hex())
	}
	return nil
}

func (r *PlanRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if r.t.remove(r.t.byID(id)) == 0 {
		return apperrors.NotFound("plan", id.Hex())
	}
	return nil
}

func (r *PlanRepo) EnsureIndexes(ctx context.Context) error { return nil }

// User plans. The unique (plan_ref, user_ref) index is emulated by Create.

type UserPlanRepo struct{ t *table[user_plan.UserPlan] }

func NewUserPlanRepo() *UserPlanRepo {
	return &UserPlanRepo{t: newTable(func(p *user_plan.UserPlan) primitive.ObjectID { return p.ID })}
}

var _ user_plan.UserPlanRepository = (*UserPlanRepo)(nil)

// Add stores assignments as given.
func (r *UserPlanRepo) Add(plans ...user_plan.UserPlan) {
	for _, p := range plans {
		r.t.insert(p)
	}
}

func (r *UserPlanRepo) Create(ctx context.Context, p *user_plan.UserPlan) error {
	dup := r.t.filter(func(x *user_plan.UserPlan) bool { return x.PlanRef == p.PlanRef && x.UserRef == p.UserRef })
	if len(dup) > 0 {
		return apperrors.Conflict("user plan already exists")
	}
	r.t.insert(*p)
	return nil
}

func (r *UserPlanRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*user_plan.UserPlan, error) {
	p, ok := r.t.get(id)
	if !ok {
		return nil, apperrors.NotFound("user plan", id.Hex())
	}
	return &p, nil
}

func (r *UserPlanRepo) FindActiveByUserAndPlan(ctx context.Context, userID, planID primitive.ObjectID) (*user_plan.UserPlan, error) {
	found := r.t.filter(func(x *user_plan.UserPlan) bool {
		return x.UserRef == userID && x.PlanRef == planID && x.IsActive
	})
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (r *UserPlanRepo) List(ctx context.Context, filter bson.M) ([]user_plan.UserPlan, error) {
	return r.t.filter(func(x *user_plan.UserPlan) bool { return Matches(x, filter) }), nil
}

func (r *UserPlanRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	if r.t.update(r.t.byID(id), func(x *user_plan.UserPlan) { applySet(x, set) }) == 0 {
		return apperrors.NotFound("user plan", id.Hex())
	}
	return nil
}

func (r *UserPlanRepo) UpdateAssignedBy(ctx context.Context, assignedBy, planID, exclude primitive.ObjectID, set bson.M) (int64, error) {
	return r.t.update(func(x *user_plan.UserPlan) bool {
		return x.AssignedBy == assignedBy && x.PlanRef == planID && x.ID != exclude
	}, func(x *user_plan.UserPlan) { applySet(x, set) }), nil
}

func (r *UserPlanRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if r.t.remove(r.t.byID(id)) == 0 {
		return apperrors.NotFound("user plan", id.Hex())
	}
	return nil
}

func (r *UserPlanRepo) CountByPlan(ctx context.Context, planID primitive.ObjectID) (int64, error) {
	return int64(len(r.t.filter(func(x *user_plan.UserPlan) bool { return x.PlanRef == planID }))), nil
}

func (r *UserPlanRepo) EnsureIndexes(ctx context.Context) error { return nil }

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func withoutID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
