package userkit

import (
	"context"
)

type contextKey string

const (
	contextKeyUserID    contextKey = "userkit:user_id"
	contextKeyActorID   contextKey = "userkit:actor_id"
	contextKeyIPAddress contextKey = "userkit:ip_address"
	contextKeyUserAgent contextKey = "userkit:user_agent"
	contextKeyRequestID contextKey = "userkit:request_id"
	contextKeyAccess    contextKey = "userkit:access"
)

// WithUserID adds the signed-in user ID to the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKeyUserID, userID)
}

// GetUserID retrieves the user ID from context.
// Returns empty string if not set.
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, contextKeyUserID)
}

// WithActorID adds the ID of the user performing an action (for audit purposes).
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, contextKeyActorID, actorID)
}

// GetActorID retrieves the actor ID from context, falling back to the user ID.
func GetActorID(ctx context.Context) string {
	if actorID := stringValue(ctx, contextKeyActorID); actorID != "" {
		return actorID
	}
	return GetUserID(ctx)
}

// WithIPAddress adds the client IP address to the context (for audit).
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyIPAddress, ip)
}

// GetIPAddress retrieves the IP address from context.
func GetIPAddress(ctx context.Context) string {
	return stringValue(ctx, contextKeyIPAddress)
}

// WithUserAgent adds the user agent to the context (for audit).
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, contextKeyUserAgent, ua)
}

// GetUserAgent retrieves the user agent from context.
func GetUserAgent(ctx context.Context) string {
	return stringValue(ctx, contextKeyUserAgent)
}

// WithRequestID adds a request ID to the context (for audit and log correlation).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, contextKeyRequestID)
}

func stringValue(ctx context.Context, key contextKey) string {
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}

// WithAccess adds an Access snapshot to the context.
// This is set by middleware and can be retrieved in handlers.
func WithAccess(ctx context.Context, access *Access) context.Context {
	return context.WithValue(ctx, contextKeyAccess, access)
}

// GetAccess retrieves the Access snapshot from context.
// Returns nil if not set.
func GetAccess(ctx context.Context) *Access {
	if a, ok := ctx.Value(contextKeyAccess).(*Access); ok {
		return a
	}
	return nil
}

// FromContext is an alias for GetAccess.
func FromContext(ctx context.Context) *Access {
	return GetAccess(ctx)
}

// AuditContext holds all audit-related information from context.
type AuditContext struct {
	ActorID   string
	IPAddress string
	UserAgent string
	RequestID string
}

// GetAuditContext extracts all audit information from context.
func GetAuditContext(ctx context.Context) AuditContext {
	return AuditContext{
		ActorID:   GetActorID(ctx),
		IPAddress: GetIPAddress(ctx),
		UserAgent: GetUserAgent(ctx),
		RequestID: GetRequestID(ctx),
	}
}

// WithAuditContext adds all audit information to context at once.
// Empty fields are skipped.
func WithAuditContext(ctx context.Context, ac AuditContext) context.Context {
	if ac.ActorID != "" {
		ctx = WithActorID(ctx, ac.ActorID)
	}
	if ac.IPAddress != "" {
		ctx = WithIPAddress(ctx, ac.IPAddress)
	}
	if ac.UserAgent != "" {
		ctx = WithUserAgent(ctx, ac.UserAgent)
	}
	if ac.RequestID != "" {
		ctx = WithRequestID(ctx, ac.RequestID)
	}
	return ctx
}
