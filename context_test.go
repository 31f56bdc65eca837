package userkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestContextValues tests the request metadata helpers
func TestContextValues(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, GetUserID(ctx))
	assert.Empty(t, GetActorID(ctx))
	assert.Empty(t, GetIPAddress(ctx))
	assert.Empty(t, GetUserAgent(ctx))
	assert.Empty(t, GetRequestID(ctx))

	ctx = WithUserID(ctx, "user-1")
	ctx = WithIPAddress(ctx, "10.0.0.1")
	ctx = WithUserAgent(ctx, "agent")
	ctx = WithRequestID(ctx, "req-1")

	assert.Equal(t, "user-1", GetUserID(ctx))
	assert.Equal(t, "10.0.0.1", GetIPAddress(ctx))
	assert.Equal(t, "agent", GetUserAgent(ctx))
	assert.Equal(t, "req-1", GetRequestID(ctx))
}

// TestGetActorIDFallsBackToUserID tests the actor fallback
func TestGetActorIDFallsBackToUserID(t *testing.T) {
	ctx := WithUserID(context.Background(), "user-1")
	assert.Equal(t, "user-1", GetActorID(ctx))

	ctx = WithActorID(ctx, "admin-1")
	assert.Equal(t, "admin-1", GetActorID(ctx))
}

// TestContextAccess tests storing the snapshot in context
func TestContextAccess(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetAccess(ctx))
	assert.Nil(t, FromContext(ctx))

	access := NewAccess("user-1", nil, nil, nil)
	ctx = WithAccess(ctx, access)
	assert.Same(t, access, GetAccess(ctx))
	assert.Same(t, access, FromContext(ctx))
}

// TestAuditContext tests setting and reading audit metadata at once
func TestAuditContext(t *testing.T) {
	ac := AuditContext{
		ActorID:   "admin-1",
		IPAddress: "10.0.0.1",
		UserAgent: "agent",
		RequestID: "req-1",
	}

	ctx := WithAuditContext(context.Background(), ac)
	assert.Equal(t, ac, GetAuditContext(ctx))

	partial := WithAuditContext(WithRequestID(context.Background(), "kept"), AuditContext{ActorID: "admin-2"})
	assert.Equal(t, AuditContext{ActorID: "admin-2", RequestID: "kept"}, GetAuditContext(partial))
}

// TestAuditUsesContext tests that audit entries carry the request metadata
func TestAuditUsesContext(t *testing.T) {
	s, store := newTestService(t)
	u := mustInsertUser(t, store, "editor")

	ctx := WithAuditContext(context.Background(), AuditContext{
		ActorID:   "admin-1",
		IPAddress: "10.0.0.1",
		UserAgent: "agent",
		RequestID: "req-1",
	})
	_, err := s.SetPlugins(ctx, u, []string{"refinery_pages"})
	assert.NoError(t, err)

	logs, err := s.GetAuditLog(ctx, NewAuditLogFilter().WithActor("admin-1"))
	assert.NoError(t, err)
	if assert.Len(t, logs, 1) {
		assert.Equal(t, "10.0.0.1", logs[0].IPAddress)
		assert.Equal(t, "agent", logs[0].UserAgent)
		assert.Equal(t, "req-1", logs[0].RequestID)
		assert.Equal(t, map[string]any{"position": 1}, logs[0].Metadata)
	}
}
