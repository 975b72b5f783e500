package domain

import "time"

// Audit action names recorded in staff_activity_logs.
const (
	ActionLogin                  = "login"
	ActionLoginFailed            = "login_failed"
	ActionLogout                 = "logout"
	ActionPasswordChanged        = "password_changed"
	ActionPasswordChangeFailed   = "password_change_failed"
	ActionResetPassword          = "reset_password"
	ActionStaffCreated           = "staff_created"
	ActionStaffDisabled          = "staff_disabled"
	ActionStaffRoleAssigned      = "staff_role_assigned"
	ActionRoleCreated            = "role_created"
	ActionPermissionCreated      = "permission_created"
	ActionRolePermissionsChanged = "role_permissions_changed"
	ActionSessionRevoked         = "session_revoked"
)

// ActivityEntry is one append-only audit record. StaffID is nil when the
// action could not be attributed to an account (e.g. failed login for an
// unknown email).
type ActivityEntry struct {
	ID        int64
	StaffID   *string
	Action    string
	Details   map[string]any
	CreatedAt time.Time
}

// ActivityFilter narrows activity log listings.
type ActivityFilter struct {
	StaffID *string
	Action  *string
	From    *time.Time
	To      *time.Time
	Limit   int
	Offset  int
}
