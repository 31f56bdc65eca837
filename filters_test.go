package userkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestNewAuditLogFilter tests the default filter
func TestNewAuditLogFilter(t *testing.T) {
	f := NewAuditLogFilter()

	assert.Equal(t, 100, f.Limit)
	assert.Zero(t, f.Offset)
	assert.Empty(t, f.ActorID)
	assert.Equal(t, 100, AuditLogFilter{}.limit())
}

// TestAuditLogFilterBuilders tests the chainable setters
func TestAuditLogFilterBuilders(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := since.Add(24 * time.Hour)

	f := NewAuditLogFilter().
		WithActor("admin-1").
		WithTargetUser("user-1").
		WithAction(AuditActionRoleAdded).
		WithRole(RoleSuperuser).
		WithPlugin("refinery_pages").
		WithTimeRange(since, until).
		WithPagination(10, 20)

	assert.Equal(t, "admin-1", f.ActorID)
	assert.Equal(t, "user-1", f.TargetUserID)
	assert.Equal(t, "role_added", f.Action)
	assert.Equal(t, "Superuser", f.Role)
	assert.Equal(t, "refinery_pages", f.Plugin)
	assert.Equal(t, since, f.Since)
	assert.Equal(t, until, f.Until)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, 20, f.Offset)

	assert.Equal(t, 5, NewAuditLogFilter().WithLimit(5).limit())
}

// TestAuditLogFilterIsValue tests that builders do not mutate the receiver
func TestAuditLogFilterIsValue(t *testing.T) {
	base := NewAuditLogFilter()
	_ = base.WithActor("admin-1")

	assert.Empty(t, base.ActorID)
}

// TestAuditLogFilterMatches tests in-memory matching
func TestAuditLogFilterMatches(t *testing.T) {
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	entry := &AuditLog{
		ActorID:      "admin-1",
		Action:       string(AuditActionPluginGranted),
		TargetUserID: "user-1",
		Plugin:       "refinery_pages",
		Timestamp:    at,
	}

	tests := []struct {
		name   string
		filter AuditLogFilter
		want   bool
	}{
		{"empty", NewAuditLogFilter(), true},
		{"actor", NewAuditLogFilter().WithActor("admin-1"), true},
		{"other actor", NewAuditLogFilter().WithActor("admin-2"), false},
		{"target", NewAuditLogFilter().WithTargetUser("user-1"), true},
		{"action", NewAuditLogFilter().WithAction(AuditActionPluginRevoked), false},
		{"role", NewAuditLogFilter().WithRole(RoleSuperuser), false},
		{"plugin", NewAuditLogFilter().WithPlugin("refinery_pages"), true},
		{"inside range", NewAuditLogFilter().WithTimeRange(at.Add(-time.Hour), at.Add(time.Hour)), true},
		{"before range", NewAuditLogFilter().WithTimeRange(at.Add(time.Minute), time.Time{}), false},
		{"after range", NewAuditLogFilter().WithTimeRange(time.Time{}, at.Add(-time.Minute)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.matches(entry))
		})
	}
}
