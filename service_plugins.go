package userkit

import (
	"context"

	"github.com/sirupsen/logrus"
)

// SetPluginsResult describes what SetPlugins changed.
type SetPluginsResult struct {
	// Applied is false when the user was not saved and nothing was done.
	Applied bool
	Granted []string
	Revoked []string
}

// Changed reports whether any grant was created or revoked.
func (r SetPluginsResult) Changed() bool {
	return len(r.Granted) > 0 || len(r.Revoked) > 0
}

// ============================================================================
// PLUGIN GRANTS
// ============================================================================

// SetPlugins replaces the user's explicit grants with names.
//
// Grants already present keep their position; grants not in names are revoked;
// the remaining names are granted in order, each placed after the current last
// position. Empty names are ignored and duplicates count once.
//
// An unsaved user is not an error: the result has Applied set to false and
// nothing is written.
//
// Example:
//
//	// grants before: pages@1, images@2
//	res, err := service.SetPlugins(ctx, user, []string{"images", "files"})
//	// grants after: images@2, files@3
//	// res.Granted == ["files"], res.Revoked == ["pages"]
func (s *Service) SetPlugins(ctx context.Context, u *User, names []string) (SetPluginsResult, error) {
	if !u.Persisted() {
		return SetPluginsResult{}, nil
	}

	var result SetPluginsResult
	err := s.transaction(ctx, func(ctx context.Context, tx Store) error {
		var err error
		result, err = s.setPluginsTx(ctx, tx, u, names)
		return err
	})
	if err != nil {
		return SetPluginsResult{}, err
	}

	if result.Changed() {
		s.invalidate(u.ID)
	}
	s.metrics.recordGrantChanges(len(result.Granted), len(result.Revoked))
	s.logger(ctx).WithFields(logrus.Fields{
		"user_id": u.ID,
		"granted": result.Granted,
		"revoked": result.Revoked,
	}).Debug("plugin grants set")

	return result, nil
}

// setPluginsTx reconciles the grants inside a transaction.
func (s *Service) setPluginsTx(ctx context.Context, tx Store, u *User, names []string) (SetPluginsResult, error) {
	result := SetPluginsResult{Applied: true}

	if err := tx.LockUser(ctx, u.ID); err != nil {
		return result, err
	}

	current, err := tx.UserPlugins(ctx, u.ID)
	if err != nil {
		return result, err
	}

	// An empty name is never a plugin, so it is dropped rather than granted.
	// Duplicates get one grant at the position of their first occurrence.
	candidates := uniqueNames(names)
	pending := make(map[string]bool, len(candidates))
	for _, name := range candidates {
		pending[name] = true
	}

	for _, grant := range current {
		if pending[grant.Name] {
			delete(pending, grant.Name)
			continue
		}
		if err := tx.DeleteUserPlugin(ctx, grant.ID); err != nil {
			return result, err
		}
		result.Revoked = append(result.Revoked, grant.Name)
		if err := s.audit(ctx, tx, AuditEntry{
			Action:       AuditActionPluginRevoked,
			TargetUserID: u.ID,
			Plugin:       grant.Name,
		}); err != nil {
			return result, err
		}
	}

	for _, name := range candidates {
		if !pending[name] {
			continue
		}
		position, err := tx.MaxPluginPosition(ctx, u.ID)
		if err != nil {
			return result, err
		}
		grant := &UserPlugin{UserID: u.ID, Name: name, Position: position + 1}
		if err := tx.InsertUserPlugin(ctx, grant); err != nil {
			return result, err
		}
		result.Granted = append(result.Granted, name)
		if err := s.audit(ctx, tx, AuditEntry{
			Action:       AuditActionPluginGranted,
			TargetUserID: u.ID,
			Plugin:       name,
			Metadata:     map[string]any{"position": grant.Position},
		}); err != nil {
			return result, err
		}
	}

	return result, nil
}

// Plugins returns the user's explicit grants ordered by position.
func (s *Service) Plugins(ctx context.Context, u *User) ([]UserPlugin, error) {
	if !u.Persisted() {
		return nil, nil
	}
	return s.store.UserPlugins(ctx, u.ID)
}

// StringPluginNames keeps the string entries of a decoded payload, for example
// a JSON array posted by the admin form. Anything else is dropped.
func StringPluginNames(values []any) []string {
	names := make([]string, 0, len(values))
	for _, v := range values {
		if name, ok := v.(string); ok {
			names = append(names, name)
		}
	}
	return names
}

// uniqueNames drops empty names and repeated ones, keeping the first occurrence.
func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
