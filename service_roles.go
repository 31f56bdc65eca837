package userkit

import (
	"context"

	"github.com/sirupsen/logrus"
)

// ============================================================================
// ROLE OPERATIONS
// ============================================================================

// AddRole makes the user a member of the role with the given title, creating
// the role if it does not exist yet. title must be a string or RoleTitle; it is
// canonicalized first, so "superuser" adds the "Superuser" role. Adding a role
// the user already holds is a no-op.
//
// Example:
//
//	err := service.AddRole(ctx, user, "translator")
func (s *Service) AddRole(ctx context.Context, u *User, title any) error {
	canonical, err := ParseRoleTitle(title)
	if err != nil {
		return err
	}
	if !u.Persisted() {
		return NewError(ErrNotPersisted, "cannot add a role to an unsaved user").WithRole(string(canonical))
	}

	var added bool
	err = s.transaction(ctx, func(ctx context.Context, tx Store) error {
		var err error
		added, err = s.addRoleTx(ctx, tx, u, canonical)
		return err
	})
	if err != nil {
		return err
	}

	if added {
		s.invalidate(u.ID)
		s.logger(ctx).WithFields(logrus.Fields{
			"user_id": u.ID,
			"role":    canonical,
		}).Info("role added")
	}
	return nil
}

// addRoleTx adds the membership inside a transaction and reports whether it was new.
func (s *Service) addRoleTx(ctx context.Context, tx Store, u *User, title RoleTitle) (bool, error) {
	roles, err := tx.UserRoles(ctx, u.ID)
	if err != nil {
		return false, err
	}
	if containsTitle(roleTitles(roles), title) {
		return false, nil
	}

	role, err := tx.FindOrCreateRole(ctx, title)
	if err != nil {
		return false, err
	}
	if err := tx.AddRoleMembership(ctx, u.ID, role.ID); err != nil {
		return false, err
	}

	return true, s.audit(ctx, tx, AuditEntry{
		Action:       AuditActionRoleAdded,
		TargetUserID: u.ID,
		Role:         string(title),
	})
}

// HasRole reports whether the user holds the role with the given title.
// title follows the same rules as in AddRole. An unsaved user holds no roles.
//
// Example:
//
//	if ok, _ := service.HasRole(ctx, user, userkit.RoleSuperuser); ok {
//	    // user can see everything
//	}
func (s *Service) HasRole(ctx context.Context, u *User, title any) (bool, error) {
	canonical, err := ParseRoleTitle(title)
	if err != nil {
		return false, err
	}
	if !u.Persisted() {
		return false, nil
	}

	roles, err := s.store.UserRoles(ctx, u.ID)
	if err != nil {
		return false, err
	}
	return containsTitle(roleTitles(roles), canonical), nil
}

// Roles returns the roles of the user ordered by title.
func (s *Service) Roles(ctx context.Context, u *User) ([]Role, error) {
	if !u.Persisted() {
		return nil, nil
	}
	return s.store.UserRoles(ctx, u.ID)
}

// CountRoleUsers returns how many users hold the role with the given title.
func (s *Service) CountRoleUsers(ctx context.Context, title any) (int, error) {
	canonical, err := ParseRoleTitle(title)
	if err != nil {
		return 0, err
	}
	return s.store.CountRoleUsers(ctx, canonical)
}
