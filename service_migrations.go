package userkit

import (
	"github.com/fernandezvara/dbkit"
)

// Migrations returns all database migrations required by userkit.
// Use PostgresStore.Migrate, or dbkit's Migrate(ctx, userkit.Migrations()) directly.
func Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "userkit-001",
			Description: "Create users table",
			SQL: `
                CREATE TABLE IF NOT EXISTS users (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    username TEXT NOT NULL,
                    email TEXT,
                    full_name TEXT,
                    reset_password_token TEXT,
                    reset_password_sent_at TIMESTAMPTZ,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (username);
                CREATE UNIQUE INDEX IF NOT EXISTS users_reset_password_token_key
                    ON users (reset_password_token) WHERE reset_password_token IS NOT NULL;
                CREATE INDEX IF NOT EXISTS users_email_idx ON users (email)`,
		},
		{
			ID:          "userkit-002",
			Description: "Create roles and roles_users tables",
			SQL: `
                CREATE TABLE IF NOT EXISTS roles (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    title TEXT NOT NULL UNIQUE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE TABLE IF NOT EXISTS roles_users (
                    user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
                    role_id UUID NOT NULL REFERENCES roles (id) ON DELETE CASCADE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    PRIMARY KEY (user_id, role_id)
                );
                CREATE INDEX IF NOT EXISTS roles_users_role_id_idx ON roles_users (role_id)`,
		},
		{
			ID:          "userkit-003",
			Description: "Create user_plugins table",
			SQL: `
                CREATE TABLE IF NOT EXISTS user_plugins (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
                    name TEXT NOT NULL,
                    position INTEGER NOT NULL,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    UNIQUE (user_id, name)
                );
                CREATE INDEX IF NOT EXISTS user_plugins_user_id_position_idx ON user_plugins (user_id, position)`,
		},
		{
			ID:          "userkit-004",
			Description: "Create user_audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS user_audit_log (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    actor_id TEXT,
                    action TEXT NOT NULL,
                    target_user_id TEXT NOT NULL,
                    role TEXT,
                    plugin TEXT,
                    ip_address TEXT,
                    user_agent TEXT,
                    request_id TEXT,
                    metadata JSONB
                );
                CREATE INDEX IF NOT EXISTS user_audit_log_target_idx ON user_audit_log (target_user_id, timestamp DESC)`,
		},
	}
}
