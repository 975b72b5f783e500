package domain

import "time"

// StaffUser models an internal operator account. Accounts are never hard
// deleted; deactivation flips IsActive and kills live sessions.
type StaffUser struct {
	ID                  string
	Name                string
	Email               string
	PasswordHash        string
	IsActive            bool
	FailedLoginAttempts int
	LastLoginAt         *time.Time
	LastFailedLoginAt   *time.Time
	LastLogoutAt        *time.Time
	PasswordChangedAt   *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// StaffAccess couples a staff account with its aggregated role names and
// permission codes, as produced by a single joined query.
type StaffAccess struct {
	StaffUser
	Roles       []string
	Permissions []string
}

// DefaultRoleName is substituted as the display role for staff with no
// roles attached. It grants nothing; authorization consults only the
// permission-code set.
const DefaultRoleName = "staff"

// PrimaryRole returns the first resolved role name, for display only.
func (a *StaffAccess) PrimaryRole() string {
	if len(a.Roles) == 0 {
		return DefaultRoleName
	}
	return a.Roles[0]
}
