package userkit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// PostgresStore implements Store on top of dbkit.
//
// All errors are wrapped with dbkit's chainable error context, so callers can
// still classify them with dbkit.IsDuplicate / dbkit.IsNotFound.
type PostgresStore struct {
	db   dbkit.IDB
	pool PoolConfig
}

// usernameIndex is the unique index created by the userkit-001 migration.
const usernameIndex = "users_username_key"

// NewPostgresStore creates a store using an existing dbkit connection or transaction.
func NewPostgresStore(db dbkit.IDB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgresStore connects to databaseURL and applies the pool configuration.
func OpenPostgresStore(databaseURL string, pool PoolConfig) (*PostgresStore, error) {
	db, err := dbkit.New(dbkit.Config{URL: databaseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	store := NewPostgresStore(db)
	if err := store.ConfigureConnectionPool(pool); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// DB returns the underlying dbkit handle.
func (s *PostgresStore) DB() dbkit.IDB {
	return s.db
}

// Close releases the connection pool. It is a no-op inside a transaction.
func (s *PostgresStore) Close() error {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.Close()
	}
	return nil
}

// Migrate applies the userkit migrations and returns the IDs that were applied.
func (s *PostgresStore) Migrate(ctx context.Context) ([]string, error) {
	db, ok := s.db.(*dbkit.DBKit)
	if !ok {
		return nil, fmt.Errorf("migrations require a dbkit.DBKit instance")
	}
	result, err := db.Migrate(ctx, Migrations())
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	applied := make([]string, 0, len(result.Applied))
	for _, m := range result.Applied {
		applied = append(applied, m.ID)
	}
	return applied, nil
}

// Transaction runs fn inside a database transaction, or a savepoint when the
// store is already transactional.
func (s *PostgresStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	switch db := s.db.(type) {
	case *dbkit.Tx:
		return db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, &PostgresStore{db: tx})
		})
	case *dbkit.DBKit:
		return db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, &PostgresStore{db: tx})
		})
	}
	return fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
}

// ============================================================================
// USERS
// ============================================================================

// InsertUser assigns an ID and inserts the user. A username collision surfaces
// as ErrDuplicateUsername and leaves the user unpersisted.
func (s *PostgresStore) InsertUser(ctx context.Context, u *User) error {
	now := time.Now()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now

	result, err := s.db.NewInsert().Model(u).Exec(ctx)
	if err != nil {
		u.ID = ""
		if isUsernameViolation(err) {
			return NewError(ErrDuplicateUsername, "username has already been taken")
		}
		return dbkit.WithErr(result, err, "InsertUser").Err()
	}
	return nil
}

// UpdateUser saves the identity and reset token columns.
func (s *PostgresStore) UpdateUser(ctx context.Context, u *User) error {
	u.UpdatedAt = time.Now()
	result, err := s.db.NewUpdate().Model(u).
		Column("username", "email", "full_name", "reset_password_token", "reset_password_sent_at", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUsernameViolation(err) {
			return NewError(ErrDuplicateUsername, "username has already been taken").WithUser(u.ID)
		}
		return dbkit.WithErr(result, err, "UpdateUser").Err()
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NewError(ErrUserNotFound, "user does not exist").WithUser(u.ID)
	}
	return nil
}

// UpdateResetPasswordToken sets the token columns without touching the rest of the row.
func (s *PostgresStore) UpdateResetPasswordToken(ctx context.Context, userID, digest string, sentAt time.Time) error {
	result, err := s.db.NewUpdate().Model((*User)(nil)).
		Set("reset_password_token = ?", digest).
		Set("reset_password_sent_at = ?", sentAt).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	if err := dbkit.WithErr(result, err, "UpdateResetPasswordToken").Err(); err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NewError(ErrUserNotFound, "user does not exist").WithUser(userID)
	}
	return nil
}

// isUsernameViolation reports whether err comes from the username unique index.
// The reset token index is unique too and must not be reported as a taken username.
func isUsernameViolation(err error) bool {
	return dbkit.IsDuplicate(err) && strings.Contains(err.Error(), usernameIndex)
}

// DeleteUser removes grants, memberships and the user row in one transaction.
func (s *PostgresStore) DeleteUser(ctx context.Context, userID string) error {
	return s.Transaction(ctx, func(ctx context.Context, txStore Store) error {
		tx := txStore.(*PostgresStore)

		result, err := tx.db.NewDelete().Model((*UserPlugin)(nil)).Where("user_id = ?", userID).Exec(ctx)
		if err := dbkit.WithErr(result, err, "DeleteUserPlugins").Err(); err != nil {
			return err
		}

		result, err = tx.db.NewDelete().Model((*RoleUser)(nil)).Where("user_id = ?", userID).Exec(ctx)
		if err := dbkit.WithErr(result, err, "DeleteRoleMemberships").Err(); err != nil {
			return err
		}

		result, err = tx.db.NewDelete().Model((*User)(nil)).Where("id = ?", userID).Exec(ctx)
		if err := dbkit.WithErr(result, err, "DeleteUser").Err(); err != nil {
			return err
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return NewError(ErrUserNotFound, "user does not exist").WithUser(userID)
		}
		return nil
	})
}

// GetUser loads a user by ID.
func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*User, error) {
	return s.findUser(ctx, "GetUser", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", userID)
	})
}

// FindUserByLogin loads the user whose username or email equals login.
func (s *PostgresStore) FindUserByLogin(ctx context.Context, login string) (*User, error) {
	return s.findUser(ctx, "FindUserByLogin", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("username = ? OR email = ?", login, login).Order("created_at ASC")
	})
}

// FindUserByResetPasswordToken loads the user holding a token digest.
func (s *PostgresStore) FindUserByResetPasswordToken(ctx context.Context, digest string) (*User, error) {
	return s.findUser(ctx, "FindUserByResetPasswordToken", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("reset_password_token = ?", digest)
	})
}

func (s *PostgresStore) findUser(ctx context.Context, op string, where func(*bun.SelectQuery) *bun.SelectQuery) (*User, error) {
	var u User
	err := dbkit.WithErr1(where(s.db.NewSelect().Model(&u)).Limit(1).Scan(ctx), op).Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UsernameTaken reports whether another user already stores username.
func (s *PostgresStore) UsernameTaken(ctx context.Context, username, exceptUserID string) (bool, error) {
	exists, err := dbkit.Exists[User](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("username = ?", username)
		if exceptUserID != "" {
			q = q.Where("id <> ?", exceptUserID)
		}
		return q
	})
	if err != nil {
		return false, dbkit.WithErr1(err, "UsernameTaken").Err()
	}
	return exists, nil
}

// LockUser takes a row lock on the user until the transaction ends.
func (s *PostgresStore) LockUser(ctx context.Context, userID string) error {
	var id string
	err := dbkit.WithErr1(s.db.NewRaw("SELECT id FROM users WHERE id = ? FOR UPDATE", userID).Scan(ctx, &id), "LockUser").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return NewError(ErrUserNotFound, "user does not exist").WithUser(userID)
		}
		return err
	}
	return nil
}

// ============================================================================
// ROLES
// ============================================================================

// FindOrCreateRole returns the role with the given title, creating it if needed.
func (s *PostgresStore) FindOrCreateRole(ctx context.Context, title RoleTitle) (*Role, error) {
	role := &Role{ID: uuid.NewString(), Title: title, CreatedAt: time.Now()}
	result, err := s.db.NewInsert().Model(role).On("CONFLICT (title) DO NOTHING").Exec(ctx)
	if err := dbkit.WithErr(result, err, "CreateRole").Err(); err != nil {
		return nil, err
	}

	var existing Role
	err = dbkit.WithErr1(s.db.NewSelect().Model(&existing).Where("title = ?", string(title)).Limit(1).Scan(ctx), "GetRoleByTitle").Err()
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// LockRole takes a row lock on the role until the transaction ends.
func (s *PostgresStore) LockRole(ctx context.Context, roleID string) error {
	var id string
	return dbkit.WithErr1(s.db.NewRaw("SELECT id FROM roles WHERE id = ? FOR UPDATE", roleID).Scan(ctx, &id), "LockRole").Err()
}

// UserRoles returns every role the user belongs to.
func (s *PostgresStore) UserRoles(ctx context.Context, userID string) ([]Role, error) {
	var roles []Role
	err := dbkit.WithErr1(s.db.NewSelect().Model(&roles).
		Join("JOIN roles_users AS ru ON ru.role_id = r.id").
		Where("ru.user_id = ?", userID).
		Order("r.title ASC").
		Scan(ctx), "GetUserRoles").Err()
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// AddRoleMembership links a user to a role. Existing memberships are left alone.
func (s *PostgresStore) AddRoleMembership(ctx context.Context, userID, roleID string) error {
	membership := &RoleUser{UserID: userID, RoleID: roleID, CreatedAt: time.Now()}
	result, err := s.db.NewInsert().Model(membership).On("CONFLICT (user_id, role_id) DO NOTHING").Exec(ctx)
	return dbkit.WithErr(result, err, "CreateRoleMembership").Err()
}

// CountRoleUsers returns how many users hold a role.
func (s *PostgresStore) CountRoleUsers(ctx context.Context, title RoleTitle) (int, error) {
	count, err := dbkit.Count[RoleUser](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Join("JOIN roles AS r ON r.id = ru.role_id").Where("r.title = ?", string(title))
	})
	if err != nil {
		return 0, dbkit.WithErr1(err, "CountRoleUsers").Err()
	}
	return count, nil
}

// ============================================================================
// GRANTS
// ============================================================================

// UserPlugins returns the user's grants ordered by position.
func (s *PostgresStore) UserPlugins(ctx context.Context, userID string) ([]UserPlugin, error) {
	var plugins []UserPlugin
	err := dbkit.WithErr1(s.db.NewSelect().Model(&plugins).
		Where("user_id = ?", userID).
		Order("position ASC", "created_at ASC").
		Scan(ctx), "GetUserPlugins").Err()
	if err != nil {
		return nil, err
	}
	return plugins, nil
}

// InsertUserPlugin creates a grant.
func (s *PostgresStore) InsertUserPlugin(ctx context.Context, p *UserPlugin) error {
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	result, err := s.db.NewInsert().Model(p).Exec(ctx)
	if err := dbkit.WithErr(result, err, "CreateUserPlugin").Err(); err != nil {
		p.ID = ""
		return err
	}
	return nil
}

// DeleteUserPlugin revokes a grant.
func (s *PostgresStore) DeleteUserPlugin(ctx context.Context, id string) error {
	result, err := s.db.NewDelete().Model((*UserPlugin)(nil)).Where("id = ?", id).Exec(ctx)
	return dbkit.WithErr(result, err, "DeleteUserPlugin").Err()
}

// MaxPluginPosition returns the highest grant position of the user, 0 if none.
func (s *PostgresStore) MaxPluginPosition(ctx context.Context, userID string) (int, error) {
	var position int
	err := dbkit.WithErr1(s.db.NewRaw("SELECT COALESCE(MAX(position), 0) FROM user_plugins WHERE user_id = ?", userID).Scan(ctx, &position), "MaxPluginPosition").Err()
	if err != nil {
		return 0, err
	}
	return position, nil
}

// ============================================================================
// AUDIT LOG
// ============================================================================

// LogAudit stores an audit entry.
func (s *PostgresStore) LogAudit(ctx context.Context, entry *AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	_, err := s.db.NewInsert().Model(entry).Exec(ctx)
	return dbkit.WithErr1(err, "LogAudit").Err()
}

// AuditLog retrieves audit log entries, newest first.
func (s *PostgresStore) AuditLog(ctx context.Context, filter AuditLogFilter) ([]AuditLog, error) {
	var logs []AuditLog
	q := s.db.NewSelect().Model(&logs)
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.TargetUserID != "" {
		q = q.Where("target_user_id = ?", filter.TargetUserID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.Plugin != "" {
		q = q.Where("plugin = ?", filter.Plugin)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}

	q = q.Limit(filter.limit())
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("timestamp DESC")
	err := dbkit.WithErr1(q.Scan(ctx), "GetAuditLog").Err()
	if err != nil {
		return nil, err
	}
	return logs, nil
}
