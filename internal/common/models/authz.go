package models

// Capability names an action checked by the authorization gate.
type Capability string

const (
	CapManageDomains         Capability = "manageDomains"
	CapManagePermissions     Capability = "managePermissions"
	CapManageRoles           Capability = "manageRoles"
	CapManageCustomRoles     Capability = "manageCustomRoles"
	CapManageRolePermissions Capability = "manageRolePermissions"
	CapAssignRoles           Capability = "assignRoles"
	CapManagePlans           Capability = "managePlans"
	CapViewAudit             Capability = "viewAudit"
	CapRunIntegrity          Capability = "runIntegrity"

	CapGetUsers        Capability = "getUsers"
	CapManageUsers     Capability = "manageUsers"
	CapGetUserPlans    Capability = "getUserPlans"
	CapManageUserPlans Capability = "manageUserPlans"
)

var adminOnly = map[Capability]bool{
	CapManageDomains:         true,
	CapManagePermissions:     true,
	CapManageRoles:           true,
	CapManageCustomRoles:     true,
	CapManageRolePermissions: true,
	CapAssignRoles:           true,
	CapManagePlans:           true,
	CapViewAudit:             true,
	CapRunIntegrity:          true,
}

// AdminOnly reports whether the capability is reserved for administrators
// and never resolved through the permission graph.
func (c Capability) AdminOnly() bool {
	return adminOnly[c]
}

// DefaultTypeGrants are the capabilities each user type holds without any
// role or permission mapping.
var DefaultTypeGrants = map[UserType][]Capability{
	UserTypeMainDealer: {CapGetUsers, CapManageUsers, CapGetUserPlans, CapManageUserPlans},
	UserTypeDealer:     {CapGetUsers, CapManageUsers, CapGetUserPlans},
	UserTypeUser:       {CapGetUserPlans},
}
