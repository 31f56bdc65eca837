package userkit

import (
	"context"
)

// GetAuditLog retrieves audit log entries with optional filters, newest first.
//
// Example:
//
//	logs, err := service.GetAuditLog(ctx, userkit.NewAuditLogFilter().
//	    WithTargetUser(userID).
//	    WithAction(userkit.AuditActionPluginGranted))
func (s *Service) GetAuditLog(ctx context.Context, filter AuditLogFilter) ([]AuditLog, error) {
	return s.store.AuditLog(ctx, filter)
}

// audit writes an entry through store, filling the request metadata from ctx.
// Inside a transaction the entry commits or rolls back with the change itself.
func (s *Service) audit(ctx context.Context, store AuditStore, entry AuditEntry) error {
	ac := GetAuditContext(ctx)
	if entry.ActorID == "" {
		entry.ActorID = ac.ActorID
	}
	entry.IPAddress = ac.IPAddress
	entry.UserAgent = ac.UserAgent
	entry.RequestID = ac.RequestID

	model := entry.ToModel()
	model.Timestamp = s.now()
	return store.LogAudit(ctx, model)
}
