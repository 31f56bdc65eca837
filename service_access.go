package userkit

import (
	"context"
)

// ============================================================================
// AUTHORIZATION
// ============================================================================

// Access loads the user's roles and grants and returns an authorization snapshot.
// An unsaved user gets a snapshot with no roles and no grants, so only the
// always-allowed plugins are active.
//
// The snapshot is meant for one request. Store it in context with WithAccess
// (the LoadAccess middleware does it) instead of calling Access repeatedly.
func (s *Service) Access(ctx context.Context, u *User) (*Access, error) {
	if !u.Persisted() {
		return NewAccess("", nil, nil, s.catalog), nil
	}
	return s.AccessByID(ctx, u.ID)
}

// AccessByID is like Access for a user known only by ID. An ID that does not
// belong to a saved user fails with ErrUserNotFound.
func (s *Service) AccessByID(ctx context.Context, userID string) (*Access, error) {
	if userID == "" {
		return NewAccess("", nil, nil, s.catalog), nil
	}

	var key string
	if s.cache != nil {
		if access, ok := s.cache.get(userID); ok {
			s.metrics.recordCacheLookup(true)
			return access, nil
		}
		s.metrics.recordCacheLookup(false)
		key = s.cache.key(userID)
	}

	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	roles, err := s.store.UserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	grants, err := s.store.UserPlugins(ctx, userID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(grants))
	for _, g := range grants {
		names = append(names, g.Name)
	}
	access := NewAccess(userID, roleTitles(roles), names, s.catalog)

	if s.cache != nil {
		s.cache.put(key, access)
	}
	return access, nil
}

// AccessFromContext returns the snapshot stored in ctx, or loads one for the
// user ID in ctx.
func (s *Service) AccessFromContext(ctx context.Context) (*Access, error) {
	if access := GetAccess(ctx); access != nil {
		return access, nil
	}
	userID := GetUserID(ctx)
	if userID == "" {
		return nil, ErrNoUserID
	}
	return s.AccessByID(ctx, userID)
}

// AuthorizedPlugins returns the names of the user's grants plus the
// always-allowed plugins.
func (s *Service) AuthorizedPlugins(ctx context.Context, u *User) ([]string, error) {
	access, err := s.Access(ctx, u)
	if err != nil {
		return nil, err
	}
	return access.AuthorizedPlugins(), nil
}

// ActivePlugins returns the registered plugins the user may use.
func (s *Service) ActivePlugins(ctx context.Context, u *User) (Plugins, error) {
	access, err := s.Access(ctx, u)
	if err != nil {
		return nil, err
	}
	return access.ActivePlugins(), nil
}

// HasPlugin reports whether the named plugin is active for the user.
func (s *Service) HasPlugin(ctx context.Context, u *User, name string) (bool, error) {
	access, err := s.Access(ctx, u)
	if err != nil {
		return false, err
	}
	allowed := access.HasPlugin(name)
	s.metrics.recordPluginCheck(allowed)
	return allowed, nil
}

// LandingURL returns the URL of the user's first active in-menu plugin, or "".
func (s *Service) LandingURL(ctx context.Context, u *User) (string, error) {
	access, err := s.Access(ctx, u)
	if err != nil {
		return "", err
	}
	return access.LandingURL(), nil
}

// CanEdit reports whether actor may edit target: the target must be saved and
// be either the actor itself or edited by a superuser.
func (s *Service) CanEdit(ctx context.Context, actor, target *User) (bool, error) {
	if !target.Persisted() {
		return false, nil
	}
	if actor.Persisted() && actor.ID == target.ID {
		return true, nil
	}
	return s.HasRole(ctx, actor, RoleSuperuser)
}

// CanDelete reports whether actor may delete target. A superuser can never be
// deleted, nobody can delete themselves, and nothing can be deleted before the
// system has at least one Refinery user.
func (s *Service) CanDelete(ctx context.Context, actor, target *User) (bool, error) {
	if !target.Persisted() {
		return false, nil
	}
	if actor.Persisted() && actor.ID == target.ID {
		return false, nil
	}

	superuser, err := s.HasRole(ctx, target, RoleSuperuser)
	if err != nil || superuser {
		return false, err
	}

	count, err := s.store.CountRoleUsers(ctx, RoleRefinery)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
