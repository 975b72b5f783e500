package dto

import "time"

// StaffCreateRequest payload for provisioning a staff account.
type StaffCreateRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	RoleIDs  []string `json:"role_ids"`
}

// StaffResponse is the admin listing view of a staff account.
type StaffResponse struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	IsActive            bool       `json:"is_active"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// AssignRoleRequest payload.
type AssignRoleRequest struct {
	RoleID string `json:"role_id"`
}

// ResetPasswordRequest payload for the admin-initiated reset.
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// SessionResponse is the admin view of one session row.
type SessionResponse struct {
	ID        string     `json:"id"`
	StaffID   string     `json:"staff_id"`
	UserAgent string     `json:"user_agent"`
	IPAddress string     `json:"ip_address"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
