package domain

import "time"

// Role enumerates helpdesk account roles, lowest privilege first.
type Role string

const (
	RoleCustomer   Role = "CUSTOMER"
	RoleAgent      Role = "AGENT"
	RoleManager    Role = "MANAGER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// ManagementRoles are the roles that receive SLA escalations.
var ManagementRoles = []Role{RoleManager, RoleAdmin, RoleSuperAdmin}

// StaffRoles are every role allowed to work tickets.
var StaffRoles = []Role{RoleAgent, RoleManager, RoleAdmin, RoleSuperAdmin}

// IsStaff reports whether the role belongs to support staff.
func (r Role) IsStaff() bool {
	return r == RoleAgent || r.IsManagement()
}

// IsManagement reports whether the role is MANAGER or above.
func (r Role) IsManagement() bool {
	return r == RoleManager || r == RoleAdmin || r == RoleSuperAdmin
}

// IsAdmin reports whether the role may edit system configuration such as SLA policies.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAgent, RoleManager, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// User is any account: customers filing tickets and staff working them.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor identifies who performs an operation.
type Actor struct {
	ID   string
	Role Role
}
