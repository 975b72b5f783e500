package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commercehq/staff-access-service/internal/domain"
	"github.com/commercehq/staff-access-service/internal/events"
	"github.com/commercehq/staff-access-service/internal/repository"
)

// AuditLogger publishes security-relevant actions as fire-and-forget events.
// It never returns an error: audit logging is observability, not a
// transactional guarantee, and must not fail the primary operation.
type AuditLogger struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditLogger constructs the logger.
func NewAuditLogger(dispatcher events.Dispatcher, logger *zap.Logger) *AuditLogger {
	return &AuditLogger{dispatcher: dispatcher, logger: logger}
}

// Log emits one audit event. staffID is nil for unattributable actions such
// as a failed login against an unknown email.
func (a *AuditLogger) Log(ctx context.Context, staffID *string, action string, details map[string]any) {
	if a == nil || a.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventStaffAction,
		Action:    action,
		StaffID:   staffID,
		Details:   details,
		Timestamp: time.Now(),
	}
	if err := a.dispatcher.Publish(ctx, event); err != nil {
		a.logger.Warn("audit publish failed", zap.String("action", action), zap.Error(err))
	}
}

// AuditWriter persists audit events into the activity log. Write failures
// are swallowed after a warning; publishers are never affected.
type AuditWriter struct {
	activity repository.ActivityRepository
	logger   *zap.Logger
}

// NewAuditWriter constructs the writer.
func NewAuditWriter(activity repository.ActivityRepository, logger *zap.Logger) *AuditWriter {
	return &AuditWriter{activity: activity, logger: logger}
}

// RegisterHandlers subscribes the writer to staff action events.
func (w *AuditWriter) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventStaffAction, w.handle)
}

func (w *AuditWriter) handle(ctx context.Context, event events.Event) error {
	entry := &domain.ActivityEntry{
		StaffID: event.StaffID,
		Action:  event.Action,
		Details: event.Details,
	}
	if err := w.activity.Insert(ctx, entry); err != nil {
		w.logger.Warn("audit write failed",
			zap.String("action", event.Action),
			zap.Error(err))
	}
	return nil
}
