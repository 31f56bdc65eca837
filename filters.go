package userkit

import "time"

// AuditLogFilter provides options for filtering audit log queries.
type AuditLogFilter struct {
	// Filter by actor who performed the action
	ActorID string

	// Filter by target user of the action
	TargetUserID string

	// Filter by action type
	Action string

	// Filter by role title
	Role string

	// Filter by plugin name
	Plugin string

	// Filter by time range
	Since time.Time
	Until time.Time

	// Pagination
	Limit  int
	Offset int
}

// NewAuditLogFilter creates a new AuditLogFilter with default values.
func NewAuditLogFilter() AuditLogFilter {
	return AuditLogFilter{
		Limit: 100,
	}
}

// WithActor sets the actor ID filter.
func (f AuditLogFilter) WithActor(actorID string) AuditLogFilter {
	f.ActorID = actorID
	return f
}

// WithTargetUser sets the target user ID filter.
func (f AuditLogFilter) WithTargetUser(userID string) AuditLogFilter {
	f.TargetUserID = userID
	return f
}

// WithAction sets the action filter.
func (f AuditLogFilter) WithAction(action AuditAction) AuditLogFilter {
	f.Action = string(action)
	return f
}

// WithRole sets the role filter.
func (f AuditLogFilter) WithRole(role RoleTitle) AuditLogFilter {
	f.Role = string(role)
	return f
}

// WithPlugin sets the plugin filter.
func (f AuditLogFilter) WithPlugin(plugin string) AuditLogFilter {
	f.Plugin = plugin
	return f
}

// WithTimeRange sets the time range filter.
func (f AuditLogFilter) WithTimeRange(since, until time.Time) AuditLogFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithLimit sets the limit for results.
func (f AuditLogFilter) WithLimit(limit int) AuditLogFilter {
	f.Limit = limit
	return f
}

// WithPagination sets both limit and offset.
func (f AuditLogFilter) WithPagination(limit, offset int) AuditLogFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

func (f AuditLogFilter) limit() int {
	if f.Limit == 0 {
		return 100 // Default limit
	}
	return f.Limit
}

func (f AuditLogFilter) matches(l *AuditLog) bool {
	switch {
	case f.ActorID != "" && l.ActorID != f.ActorID:
		return false
	case f.TargetUserID != "" && l.TargetUserID != f.TargetUserID:
		return false
	case f.Action != "" && l.Action != f.Action:
		return false
	case f.Role != "" && l.Role != f.Role:
		return false
	case f.Plugin != "" && l.Plugin != f.Plugin:
		return false
	case !f.Since.IsZero() && l.Timestamp.Before(f.Since):
		return false
	case !f.Until.IsZero() && l.Timestamp.After(f.Until):
		return false
	}
	return true
}
