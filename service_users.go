package userkit

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// ============================================================================
// USER LIFECYCLE
// ============================================================================

// CreateFirst validates and saves a new admin user, makes it a Refinery member
// and grants it every plugin shown in the menu. The first Refinery member ever
// created also becomes Superuser.
//
// It returns false with a nil error when validation fails, including when the
// username was taken concurrently; the messages are on u.Errors and u stays
// unsaved. A user that is already saved is rejected with ErrInvalidArgument and
// left untouched. Concurrent calls are serialized on the Refinery role, so exactly
// one of them can produce the superuser.
//
// Example:
//
//	u := &userkit.User{Username: "admin", Email: "admin@example.com"}
//	ok, err := service.CreateFirst(ctx, u)
//	if err != nil {
//	    return err
//	}
//	if !ok {
//	    return u.Errors
//	}
func (s *Service) CreateFirst(ctx context.Context, u *User) (bool, error) {
	if u.Persisted() {
		return false, NewError(ErrInvalidArgument, "user is already saved").WithUser(u.ID)
	}

	valid, err := s.Validate(ctx, u)
	if err != nil || !valid {
		return false, err
	}

	var superuser bool
	err = s.transaction(ctx, func(ctx context.Context, tx Store) error {
		superuser = false
		if err := tx.InsertUser(ctx, u); err != nil {
			return err
		}
		if err := s.audit(ctx, tx, AuditEntry{
			Action:       AuditActionUserCreated,
			TargetUserID: u.ID,
		}); err != nil {
			return err
		}

		refinery, err := tx.FindOrCreateRole(ctx, RoleRefinery)
		if err != nil {
			return err
		}
		if err := tx.LockRole(ctx, refinery.ID); err != nil {
			return err
		}
		if _, err := s.addRoleTx(ctx, tx, u, RoleRefinery); err != nil {
			return err
		}

		members, err := tx.CountRoleUsers(ctx, RoleRefinery)
		if err != nil {
			return err
		}
		if members == 1 {
			if _, err := s.addRoleTx(ctx, tx, u, RoleSuperuser); err != nil {
				return err
			}
			superuser = true
		}

		_, err = s.setPluginsTx(ctx, tx, u, s.catalog.InMenu().Names())
		return err
	})
	if err != nil {
		u.ID = ""
		if errors.Is(err, ErrDuplicateUsername) {
			u.Errors.Add("username", msgTaken)
			return false, nil
		}
		return false, err
	}

	s.invalidate(u.ID)
	s.metrics.recordBootstrap(superuser)
	s.logger(ctx).WithFields(logrus.Fields{
		"user_id":   u.ID,
		"username":  u.Username,
		"superuser": superuser,
	}).Info("user created")

	return true, nil
}

// UpdateUser validates and saves the identity fields of target on behalf of
// actor. It returns ErrUnauthorized unless actor can edit target, and false
// with a nil error when validation fails.
func (s *Service) UpdateUser(ctx context.Context, actor, target *User) (bool, error) {
	allowed, err := s.CanEdit(ctx, actor, target)
	if err != nil {
		return false, err
	}
	if !allowed {
		return false, NewError(ErrUnauthorized, "actor cannot edit this user").
			WithUser(target.ID).
			WithActor(actor.ID)
	}

	valid, err := s.Validate(ctx, target)
	if err != nil || !valid {
		return false, err
	}

	err = s.transaction(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.UpdateUser(ctx, target); err != nil {
			return err
		}
		return s.audit(ctx, tx, AuditEntry{
			ActorID:      actor.ID,
			Action:       AuditActionUserUpdated,
			TargetUserID: target.ID,
		})
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			target.Errors.Add("username", msgTaken)
			return false, nil
		}
		return false, err
	}

	s.invalidate(target.ID)
	return true, nil
}

// DeleteUser removes target with its grants and role memberships on behalf of
// actor. It returns ErrUnauthorized unless actor can delete target. On success
// target is left unsaved.
func (s *Service) DeleteUser(ctx context.Context, actor, target *User) error {
	allowed, err := s.CanDelete(ctx, actor, target)
	if err != nil {
		return err
	}
	if !allowed {
		return NewError(ErrUnauthorized, "actor cannot delete this user").
			WithUser(target.ID).
			WithActor(actor.ID)
	}

	userID := target.ID
	err = s.transaction(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.DeleteUser(ctx, userID); err != nil {
			return err
		}
		return s.audit(ctx, tx, AuditEntry{
			ActorID:      actor.ID,
			Action:       AuditActionUserDeleted,
			TargetUserID: userID,
			Metadata:     map[string]any{"username": target.Username},
		})
	})
	if err != nil {
		return err
	}

	s.invalidate(userID)
	target.ID = ""
	s.logger(ctx).WithField("user_id", userID).Info("user deleted")
	return nil
}

// FindForAuthentication returns the user whose username or email equals login.
// The value is matched as given; callers normalize it if they need to.
func (s *Service) FindForAuthentication(ctx context.Context, login string) (*User, error) {
	if login == "" {
		return nil, ErrUserNotFound
	}
	return s.store.FindUserByLogin(ctx, login)
}

// GetUser loads a user by ID.
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}
	return s.store.GetUser(ctx, userID)
}
