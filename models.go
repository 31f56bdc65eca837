package userkit

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// User is an admin account of the CMS.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       string `bun:"id,pk,type:uuid"`
	Username string `bun:"username,notnull,unique" validate:"required,max=255"`
	Email    string `bun:"email" validate:"omitempty,email,max=255"`
	FullName string `bun:"full_name" validate:"max=255"`

	// Digest of the last reset password token, never the raw token.
	ResetPasswordToken  string    `bun:"reset_password_token,nullzero"`
	ResetPasswordSentAt time.Time `bun:"reset_password_sent_at,nullzero"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`

	// Login is the username or email typed at sign in. It is never stored.
	Login string `bun:"-"`

	// Errors holds the messages of the last validation pass.
	Errors ValidationErrors `bun:"-"`
}

// Persisted reports whether the user has been saved.
func (u *User) Persisted() bool {
	return u != nil && u.ID != ""
}

// DisplayName returns the full name when present, else the username.
func (u *User) DisplayName() string {
	if strings.TrimSpace(u.FullName) != "" {
		return u.FullName
	}
	return u.Username
}

// String implements fmt.Stringer.
func (u *User) String() string {
	return u.DisplayName()
}

// UserPlugin is an explicit grant of one plugin to one user.
// Position orders the grants for menu display.
type UserPlugin struct {
	bun.BaseModel `bun:"table:user_plugins,alias:up"`

	ID        string    `bun:"id,pk,type:uuid"`
	UserID    string    `bun:"user_id,notnull,type:uuid"`
	Name      string    `bun:"name,notnull"`
	Position  int       `bun:"position,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// AuditLog records user, role and grant changes for compliance and debugging.
type AuditLog struct {
	bun.BaseModel `bun:"table:user_audit_log,alias:ual"`

	ID        string    `bun:"id,pk,type:uuid"`
	Timestamp time.Time `bun:"timestamp,notnull,default:current_timestamp"`

	// Who performed the action
	ActorID string `bun:"actor_id"`

	// What action was performed
	Action string `bun:"action,notnull"`

	// Target of the action
	TargetUserID string `bun:"target_user_id,notnull"`
	Role         string `bun:"role"`
	Plugin       string `bun:"plugin"`

	// Request metadata for forensics
	IPAddress string `bun:"ip_address"`
	UserAgent string `bun:"user_agent"`
	RequestID string `bun:"request_id"`

	// Additional context (JSON)
	Metadata map[string]any `bun:"metadata,type:jsonb"`
}

// AuditAction represents the type of action in the audit log.
type AuditAction string

const (
	AuditActionUserCreated   AuditAction = "user_created"
	AuditActionUserUpdated   AuditAction = "user_updated"
	AuditActionUserDeleted   AuditAction = "user_deleted"
	AuditActionRoleAdded     AuditAction = "role_added"
	AuditActionPluginGranted AuditAction = "plugin_granted"
	AuditActionPluginRevoked AuditAction = "plugin_revoked"
	AuditActionResetToken    AuditAction = "reset_token_generated"
)

// AuditEntry is used to create new audit log entries.
type AuditEntry struct {
	ActorID      string
	Action       AuditAction
	TargetUserID string
	Role         string
	Plugin       string
	IPAddress    string
	UserAgent    string
	RequestID    string
	Metadata     map[string]any
}

// ToModel converts an AuditEntry to an AuditLog model.
func (e *AuditEntry) ToModel() *AuditLog {
	return &AuditLog{
		ActorID:      e.ActorID,
		Action:       string(e.Action),
		TargetUserID: e.TargetUserID,
		Role:         e.Role,
		Plugin:       e.Plugin,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		RequestID:    e.RequestID,
		Metadata:     e.Metadata,
		Timestamp:    time.Now(),
	}
}
