package userkit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
)

// UserStore persists users. Username uniqueness must be enforced by the store
// itself (ErrDuplicateUsername), not only by callers.
type UserStore interface {
	InsertUser(ctx context.Context, u *User) error
	UpdateUser(ctx context.Context, u *User) error
	// DeleteUser removes the user together with its grants and role memberships.
	DeleteUser(ctx context.Context, userID string) error
	GetUser(ctx context.Context, userID string) (*User, error)
	FindUserByLogin(ctx context.Context, login string) (*User, error)
	FindUserByResetPasswordToken(ctx context.Context, digest string) (*User, error)
	// UpdateResetPasswordToken writes only the reset token columns of the user.
	UpdateResetPasswordToken(ctx context.Context, userID, digest string, sentAt time.Time) error
	UsernameTaken(ctx context.Context, username, exceptUserID string) (bool, error)
	// LockUser serializes concurrent writers on the user's grant set until the
	// surrounding transaction ends.
	LockUser(ctx context.Context, userID string) error
}

// RoleStore persists roles and memberships.
type RoleStore interface {
	FindOrCreateRole(ctx context.Context, title RoleTitle) (*Role, error)
	LockRole(ctx context.Context, roleID string) error
	UserRoles(ctx context.Context, userID string) ([]Role, error)
	AddRoleMembership(ctx context.Context, userID, roleID string) error
	CountRoleUsers(ctx context.Context, title RoleTitle) (int, error)
}

// GrantStore persists per-user plugin grants.
type GrantStore interface {
	// UserPlugins returns the user's grants ordered by position.
	UserPlugins(ctx context.Context, userID string) ([]UserPlugin, error)
	InsertUserPlugin(ctx context.Context, p *UserPlugin) error
	DeleteUserPlugin(ctx context.Context, id string) error
	MaxPluginPosition(ctx context.Context, userID string) (int, error)
}

// AuditStore persists and queries the audit log.
type AuditStore interface {
	LogAudit(ctx context.Context, entry *AuditLog) error
	AuditLog(ctx context.Context, filter AuditLogFilter) ([]AuditLog, error)
}

// Store is the storage collaborator used by Service.
type Store interface {
	UserStore
	RoleStore
	GrantStore
	AuditStore

	// Transaction runs fn against a transactional view of the store. The view is
	// committed when fn returns nil and rolled back otherwise.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// HealthMonitor is implemented by stores that can report connectivity.
type HealthMonitor interface {
	Health(ctx context.Context) dbkit.HealthStatus
	Ping(ctx context.Context) error
}

// PoolManager is implemented by stores backed by a connection pool.
type PoolManager interface {
	ConfigureConnectionPool(config PoolConfig) error
	GetConnectionPoolConfig() (*PoolConfig, error)
}

// TransactionMonitor defines the transaction monitoring interface
type TransactionMonitor interface {
	GetTransactionMetrics() TransactionMetrics
	ResetTransactionMetrics()
	IsTransactionHealthy() bool
}

var (
	_ Store              = (*PostgresStore)(nil)
	_ HealthMonitor      = (*PostgresStore)(nil)
	_ PoolManager        = (*PostgresStore)(nil)
	_ Store              = (*MemoryStore)(nil)
	_ HealthMonitor      = (*MemoryStore)(nil)
	_ TransactionMonitor = (*Service)(nil)
)
