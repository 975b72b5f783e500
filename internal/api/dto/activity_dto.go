package dto

import "time"

// ActivityResponse is one audit log entry.
type ActivityResponse struct {
	ID        int64          `json:"id"`
	StaffID   *string        `json:"staff_id,omitempty"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
