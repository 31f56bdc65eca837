package userkit

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/fernandezvara/dbkit"
)

// newTestCatalog registers a small admin: an always-allowed dashboard, two
// regular plugins and a hidden settings plugin.
func newTestCatalog() *Catalog {
	c := NewCatalog()
	c.Register("refinery_dashboard").Title("Dashboard").URL("/refinery").AlwaysAllowed().
		Register("refinery_pages").Title("Pages").URL("/refinery/pages").
		Register("refinery_images").Title("Images").URL("/refinery/images").
		Register("refinery_settings").Title("Settings").URL("/refinery/settings").HideFromMenu()
	return c
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestService creates a service over an empty memory store.
func newTestService(t *testing.T, opts ...Option) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	opts = append([]Option{WithLogger(newTestLogger())}, opts...)
	return NewService(newTestCatalog(), store, opts...), store
}

// mustCreateFirst creates a user through CreateFirst and fails the test if it is rejected.
func mustCreateFirst(t *testing.T, s *Service, username string) *User {
	t.Helper()
	email := strings.Join(strings.Fields(strings.ToLower(username)), ".") + "@example.com"
	u := &User{Username: username, Email: email}
	ok, err := s.CreateFirst(context.Background(), u)
	require.NoError(t, err)
	require.True(t, ok, "validation failed: %v", u.Errors)
	return u
}

// mustInsertUser saves a user without roles or grants.
func mustInsertUser(t *testing.T, store Store, username string) *User {
	t.Helper()
	u := &User{Username: username}
	require.NoError(t, store.InsertUser(context.Background(), u))
	return u
}

func getTestDatabaseURL() string {
	return os.Getenv("TEST_DATABASE_URL")
}

// RequireDatabase skips the test if the test database is not available.
// Use this as: if !RequireDatabase(t) { return }
func RequireDatabase(t *testing.T) bool {
	t.Helper()
	url := getTestDatabaseURL()
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set - skipping database test")
		return false
	}

	db, err := dbkit.New(dbkit.Config{URL: url})
	if err != nil {
		t.Skipf("database not available: %v", err)
		return false
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Skipf("database not available: %v", err)
		return false
	}
	return true
}

// setupPostgresStore connects to the test database, applies the migrations and
// empties the userkit tables.
func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	store, err := OpenPostgresStore(getTestDatabaseURL(), DefaultPoolConfig())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.Migrate(ctx)
	require.NoError(t, err)

	_, err = store.DB().NewRaw("TRUNCATE user_audit_log, user_plugins, roles_users, roles, users CASCADE").Exec(ctx)
	require.NoError(t, err)

	return store
}
