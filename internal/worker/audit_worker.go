package worker

import (
	"github.com/commercehq/staff-access-service/internal/events"
	"github.com/commercehq/staff-access-service/internal/service"
)

// StartAuditWorker subscribes the audit writer to the event dispatcher.
func StartAuditWorker(dispatcher events.Dispatcher, writer *service.AuditWriter) {
	if writer == nil {
		return
	}
	writer.RegisterHandlers(dispatcher)
}
