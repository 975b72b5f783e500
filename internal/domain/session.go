package domain

import "time"

// StaffSession is a server-side record of one login. Rows are retained for
// audit after revocation or expiry; a session is logically dead once
// RevokedAt is set or ExpiresAt has passed.
type StaffSession struct {
	ID        string
	StaffID   string
	Token     string
	UserAgent string
	IPAddress string
	Metadata  map[string]any
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// LiveAt reports whether the session itself (ignoring the owner's active
// flag) is still valid at the given instant.
func (s *StaffSession) LiveAt(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}

// SessionContext is the resolved identity attached to each authenticated
// request: who is calling, through which session, and what they may do.
type SessionContext struct {
	SessionID   string    `json:"session_id"`
	StaffID     string    `json:"staff_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// HasPermission reports whether the permission code is in the resolved set.
func (c *SessionContext) HasPermission(code string) bool {
	for _, p := range c.Permissions {
		if p == code {
			return true
		}
	}
	return false
}

// PrimaryRole returns the first resolved role name, for display only.
func (c *SessionContext) PrimaryRole() string {
	if len(c.Roles) == 0 {
		return DefaultRoleName
	}
	return c.Roles[0]
}

// SessionMetadata captures request attributes recorded at login.
type SessionMetadata struct {
	UserAgent string
	IPAddress string
	Extra     map[string]any
}
