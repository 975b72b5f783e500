package events

import "time"

// EventType enumerates audit event identifiers. They mirror the action
// names written to staff_activity_logs.
type EventType string

const (
	EventStaffAction EventType = "staff_action"
)

// Event is a security-relevant action emitted by services. StaffID is nil
// when the action could not be attributed to an account.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Action    string         `json:"action"`
	StaffID   *string        `json:"staff_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
