package userkit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fernandezvara/dbkit"
)

// MemoryStore is an in-process Store. It enforces the same uniqueness rules as
// the Postgres schema and is used by tests and single-process tools.
//
// Transactions are serialized and roll back by restoring a snapshot, so writes
// made outside a transaction while one is running may be lost on rollback.
type MemoryStore struct {
	mem  *memoryState
	inTx bool
}

type memoryState struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data memoryData
}

type memoryData struct {
	users       map[string]User
	roles       map[string]Role
	memberships map[[2]string]RoleUser
	plugins     map[string]UserPlugin
	audit       []AuditLog
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mem: &memoryState{data: memoryData{
		users:       make(map[string]User),
		roles:       make(map[string]Role),
		memberships: make(map[[2]string]RoleUser),
		plugins:     make(map[string]UserPlugin),
	}}}
}

func (d memoryData) clone() memoryData {
	c := memoryData{
		users:       make(map[string]User, len(d.users)),
		roles:       make(map[string]Role, len(d.roles)),
		memberships: make(map[[2]string]RoleUser, len(d.memberships)),
		plugins:     make(map[string]UserPlugin, len(d.plugins)),
		audit:       append([]AuditLog(nil), d.audit...),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.roles {
		c.roles[k] = v
	}
	for k, v := range d.memberships {
		c.memberships[k] = v
	}
	for k, v := range d.plugins {
		c.plugins[k] = v
	}
	return c
}

// Transaction runs fn with a transactional view. Nested calls join the outer transaction.
func (s *MemoryStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	s.mem.txMu.Lock()
	defer s.mem.txMu.Unlock()

	s.mem.mu.RLock()
	snapshot := s.mem.data.clone()
	s.mem.mu.RUnlock()

	if err := fn(ctx, &MemoryStore{mem: s.mem, inTx: true}); err != nil {
		s.mem.mu.Lock()
		s.mem.data = snapshot
		s.mem.mu.Unlock()
		return err
	}
	return nil
}

// Health always reports a healthy store.
func (s *MemoryStore) Health(ctx context.Context) dbkit.HealthStatus {
	return dbkit.HealthStatus{Healthy: true}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// ============================================================================
// USERS
// ============================================================================

func (s *MemoryStore) InsertUser(ctx context.Context, u *User) error {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	if s.usernameTakenLocked(u.Username, "") {
		return NewError(ErrDuplicateUsername, "username has already been taken")
	}

	now := time.Now()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.mem.data.users[u.ID] = stored(u)
	return nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, u *User) error {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	if _, ok := s.mem.data.users[u.ID]; !ok {
		return NewError(ErrUserNotFound, "user does not exist").WithUser(u.ID)
	}
	if s.usernameTakenLocked(u.Username, u.ID) {
		return NewError(ErrDuplicateUsername, "username has already been taken").WithUser(u.ID)
	}
	if u.ResetPasswordToken != "" {
		for id, other := range s.mem.data.users {
			if id != u.ID && other.ResetPasswordToken == u.ResetPasswordToken {
				return NewError(ErrDatabaseError, "duplicate reset password token").WithUser(u.ID)
			}
		}
	}

	u.UpdatedAt = time.Now()
	s.mem.data.users[u.ID] = stored(u)
	return nil
}

func (s *MemoryStore) UpdateResetPasswordToken(ctx context.Context, userID, digest string, sentAt time.Time) error {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	u, ok := s.mem.data.users[userID]
	if !ok {
		return NewError(ErrUserNotFound, "user does not exist").WithUser(userID)
	}
	if digest != "" {
		for id, other := range s.mem.data.users {
			if id != userID && other.ResetPasswordToken == digest {
				return NewError(ErrDatabaseError, "duplicate reset password token").WithUser(userID)
			}
		}
	}

	u.ResetPasswordToken = digest
	u.ResetPasswordSentAt = sentAt
	u.UpdatedAt = time.Now()
	s.mem.data.users[userID] = u
	return nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, userID string) error {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	if _, ok := s.mem.data.users[userID]; !ok {
		return NewError(ErrUserNotFound, "user does not exist").WithUser(userID)
	}
	for id, p := range s.mem.data.plugins {
		if p.UserID == userID {
			delete(s.mem.data.plugins, id)
		}
	}
	for key := range s.mem.data.memberships {
		if key[0] == userID {
			delete(s.mem.data.memberships, key)
		}
	}
	delete(s.mem.data.users, userID)
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, userID string) (*User, error) {
	s.mem.mu.RLock()
	defer s.mem.mu.RUnlock()

	u, ok := s.mem.data.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (s *MemoryStore) FindUserByLogin(ctx context.Context, login string) (*User, error) {
	return s.findUser(func(u User) bool {
		return u.Username == login || (u.Email != "" && u.Email == login)
	})
}

func (s *MemoryStore) FindUserByResetPasswordToken(ctx context.Context, digest string) (*User, error) {
	return s.findUser(func(u User) bool {
		return u.ResetPasswordToken != "" && u.ResetPasswordToken == digest
	})
}

// findUser returns the oldest user matching the predicate.
func (s *MemoryStore) findUser(match func(User) bool) (*User, error) {
	s.mem.mu.RLock()
	defer s.mem.mu.RUnlock()

	var found *User
	for _, u := range s.mem.data.users {
		if !match(u) {
			continue
		}
		if found == nil || u.CreatedAt.Before(found.CreatedAt) {
			u := u
			found = &u
		}
	}
	if found == nil {
		return nil, ErrUserNotFound
	}
	return found, nil
}

func (s *MemoryStore) UsernameTaken(ctx context.Context, username, exceptUserID string) (bool, error) {
	s.mem.mu.RLock()
	defer s.mem.mu.RUnlock()
	return s.usernameTakenLocked(username, exceptUserID), nil
}

func (s *MemoryStore) usernameTakenLocked(username, exceptUserID string) bool {
	for id, u := range s.mem.data.users {
		if id != exceptUserID && u.Username == username {
			return true
		}
	}
	return false
}

// LockUser only checks existence; transactions are already serialized.
func (s *MemoryStore) LockUser(ctx context.Context, userID string) error {
	s.mem.mu.RLock()
	defer s.mem.mu.RUnlock()

	if _, ok := s.mem.data.users[userID]; !ok {
		return NewError(ErrUserNotFound, "user does not exist").WithUser(userID)
	}
	return nil
}

// stored strips the transient fields before a user is kept.
func stored(u *User) User {
	c := *u
	c.Login = ""
	c.Errors = nil
	return c
}

// ============================================================================
// ROLES
// ============================================================================

func (s *MemoryStore) FindOrCreateRole(ctx context.Context, title RoleTitle) (*Role, error) {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	for _, r := range s.mem.data.roles {
		if r.Title == title {
			return &r, nil
		}
	}
	r := Role{ID: uuid.NewString(), Title: title, CreatedAt: time.Now()}
	s.mem.data.roles[r.ID] = r
	return &r, nil
}

func (s *MemoryStore) LockRole(ctx context.Context, roleID string) error {
	return nil
}

func (s *MemoryStore) UserRoles(ctx context.Context, userID string) ([]Role, error) {
	s.mem.mu.RLock()
	defer s.mem.mu.RUnlock()

	var roles []Role
	for key := range s.mem.data.memberships {
		if key[0] == userID {
			roles = append(roles, s.mem.data.roles[key[1]])
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Title < roles[j].Title })
	return roles, nil
}

func (s *MemoryStore) AddRoleMembership(ctx context.Context, userID, roleID string) error {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	key := [2]string{userID, roleID}
	if _, ok := s.mem.data.memberships[key]; ok {
		return nil
	}
	s.mem.data.memberships[key] = RoleUser{UserID: userID, RoleID: roleID, CreatedAt: time.Now()}
	return nil
}

func (s *MemoryStore) CountRoleUsers(ctx context.Context, title RoleTitle) (int, error) {
	s.mem.mu.RLock()
	defer s.mem.mu.RUnlock()

	count := 0
	for key := range s.mem.data.memberships {
		if s.mem.data.roles[key[1]].Title == title {
			count++
		}
	}
	return count, nil
}

// ============================================================================
// GRANTS
// ============================================================================

func (s *MemoryStore) UserPlugins(ctx context.Context, userID string) ([]UserPlugin, error) {
	s.mem.mu.RLock()
	defer s.mem.mu.RUnlock()

	var plugins []UserPlugin
	for _, p := range s.mem.data.plugins {
		if p.UserID == userID {
			plugins = append(plugins, p)
		}
	}
	sort.Slice(plugins, func(i, j int) bool {
		if plugins[i].Position != plugins[j].Position {
			return plugins[i].Position < plugins[j].Position
		}
		return plugins[i].CreatedAt.Before(plugins[j].CreatedAt)
	})
	return plugins, nil
}

func (s *MemoryStore) InsertUserPlugin(ctx context.Context, p *UserPlugin) error {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	for _, existing := range s.mem.data.plugins {
		if existing.UserID == p.UserID && existing.Name == p.Name {
			return NewError(ErrDatabaseError, "plugin already granted").WithUser(p.UserID).WithPlugin(p.Name)
		}
	}
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	s.mem.data.plugins[p.ID] = *p
	return nil
}

func (s *MemoryStore) DeleteUserPlugin(ctx context.Context, id string) error {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()
	delete(s.mem.data.plugins, id)
	return nil
}

func (s *MemoryStore) MaxPluginPosition(ctx context.Context, userID string) (int, error) {
	s.mem.mu.RLock()
	defer s.mem.mu.RUnlock()

	position := 0
	for _, p := range s.mem.data.plugins {
		if p.UserID == userID && p.Position > position {
			position = p.Position
		}
	}
	return position, nil
}

// ============================================================================
// AUDIT LOG
// ============================================================================

func (s *MemoryStore) LogAudit(ctx context.Context, entry *AuditLog) error {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.mem.data.audit = append(s.mem.data.audit, *entry)
	return nil
}

func (s *MemoryStore) AuditLog(ctx context.Context, filter AuditLogFilter) ([]AuditLog, error) {
	s.mem.mu.RLock()
	defer s.mem.mu.RUnlock()

	var matched []AuditLog
	for i := len(s.mem.data.audit) - 1; i >= 0; i-- {
		if filter.matches(&s.mem.data.audit[i]) {
			matched = append(matched, s.mem.data.audit[i])
		}
	}

	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if limit := filter.limit(); limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
