package userkit

// Access is the authorization snapshot of one user: its role titles and the names
// of its explicit plugin grants, resolved against the plugin catalog.
// It is immutable and meant to live for one request; it is typically created by
// the Service and stored in context for use in handlers.
type Access struct {
	userID  string
	roles   []RoleTitle
	grants  []string
	catalog *Catalog
}

// NewAccess creates a snapshot from already loaded roles and grant names.
func NewAccess(userID string, roles []RoleTitle, grants []string, catalog *Catalog) *Access {
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Access{
		userID:  userID,
		roles:   append([]RoleTitle(nil), roles...),
		grants:  append([]string(nil), grants...),
		catalog: catalog,
	}
}

// UserID returns the user ID this snapshot is for. Empty for an unsaved user.
func (a *Access) UserID() string {
	return a.userID
}

// Roles returns the user's role titles.
func (a *Access) Roles() []RoleTitle {
	return append([]RoleTitle(nil), a.roles...)
}

// HasRole reports whether the user holds the role. The title is canonicalized
// first, so "superuser" and "Superuser" are the same role.
func (a *Access) HasRole(title RoleTitle) bool {
	return containsTitle(a.roles, CanonicalRoleTitle(string(title)))
}

// IsSuperuser reports whether the user holds the Superuser role.
func (a *Access) IsSuperuser() bool {
	return containsTitle(a.roles, RoleSuperuser)
}

// Grants returns the names of the user's explicit grants in position order.
func (a *Access) Grants() []string {
	return append([]string(nil), a.grants...)
}

// AuthorizedPlugins returns the grant names plus every always-allowed catalog
// name, without duplicates. Grant names come first.
//
// Example:
//
//	// grants: ["pages"], always allowed: ["dashboard"]
//	access.AuthorizedPlugins() // ["pages", "dashboard"]
func (a *Access) AuthorizedPlugins() []string {
	seen := make(map[string]bool, len(a.grants))
	names := make([]string, 0, len(a.grants))
	for _, name := range a.grants {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, name := range a.catalog.AlwaysAllowed().Names() {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// ActivePlugins returns the registered plugins the user may use, in catalog order.
// A superuser gets every registered plugin. Grants naming plugins that are no
// longer registered are ignored.
func (a *Access) ActivePlugins() Plugins {
	registered := a.catalog.Registered()
	if a.IsSuperuser() {
		return registered
	}

	authorized := make(map[string]bool)
	for _, name := range a.AuthorizedPlugins() {
		authorized[name] = true
	}
	return registered.filter(func(p Plugin) bool {
		return authorized[p.Name]
	})
}

// HasPlugin reports whether the named plugin is active for the user.
//
// Example:
//
//	if !access.HasPlugin("refinery_images") {
//	    http.Error(w, "Forbidden", http.StatusForbidden)
//	    return
//	}
func (a *Access) HasPlugin(name string) bool {
	return a.ActivePlugins().Contains(name)
}

// LandingURL returns the URL of the first active in-menu plugin, or "" when the
// user has none. Used to pick where to send the user after sign in.
func (a *Access) LandingURL() string {
	return a.ActivePlugins().InMenu().FirstURLInMenu()
}
