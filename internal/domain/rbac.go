package domain

import "time"

// Role is a named, reusable bundle of permissions assignable to staff.
type Role struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission is an atomic capability checked by authorization middleware.
type Permission struct {
	ID          string
	Code        string
	Description string
	CreatedAt   time.Time
}

// RoleWithPermissions pairs a role with its resolved permission codes.
type RoleWithPermissions struct {
	Role
	Permissions []string
}

// PermissionSeed and RoleSeed describe the standard catalogue installed by
// provisioning. Seeding replaces each role's permission set wholesale.
type PermissionSeed struct {
	Code        string
	Description string
}

type RoleSeed struct {
	Name        string
	Description string
	Permissions []string
}
