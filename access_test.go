package userkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestAccessAuthorizedPlugins tests grants united with always-allowed plugins
func TestAccessAuthorizedPlugins(t *testing.T) {
	access := NewAccess("user1", nil, []string{"refinery_pages", "refinery_dashboard"}, newTestCatalog())

	assert.Equal(t, []string{"refinery_pages", "refinery_dashboard"}, access.AuthorizedPlugins())
}

// TestAccessActivePlugins tests the active set for a regular user
func TestAccessActivePlugins(t *testing.T) {
	access := NewAccess("user1", []RoleTitle{RoleRefinery}, []string{"refinery_images", "refinery_removed"}, newTestCatalog())

	// catalog order, grants for unregistered plugins ignored
	assert.Equal(t, []string{"refinery_dashboard", "refinery_images"}, access.ActivePlugins().Names())
	assert.True(t, access.HasPlugin("refinery_images"))
	assert.True(t, access.HasPlugin("refinery_dashboard"))
	assert.False(t, access.HasPlugin("refinery_pages"))
	assert.False(t, access.HasPlugin("refinery_removed"))
}

// TestAccessSuperuser tests that a superuser gets every registered plugin
func TestAccessSuperuser(t *testing.T) {
	access := NewAccess("user1", []RoleTitle{RoleRefinery, RoleSuperuser}, nil, newTestCatalog())

	assert.True(t, access.IsSuperuser())
	assert.Equal(t, newTestCatalog().Names(), access.ActivePlugins().Names())
	assert.True(t, access.HasPlugin("refinery_settings"))
}

// TestAccessLandingURL tests the landing URL selection
func TestAccessLandingURL(t *testing.T) {
	t.Run("first in-menu active plugin", func(t *testing.T) {
		c := NewCatalog()
		c.Register("hidden").URL("/hidden").HideFromMenu().AlwaysAllowed().
			Register("pages").URL("/pages").
			Register("images").URL("/images")

		access := NewAccess("user1", nil, []string{"images", "pages"}, c)
		assert.Equal(t, "/pages", access.LandingURL())
	})

	t.Run("no plugins", func(t *testing.T) {
		access := NewAccess("user1", nil, nil, NewCatalog())
		assert.Equal(t, "", access.LandingURL())
	})
}

// TestAccessHasRole tests role checks on the snapshot
func TestAccessHasRole(t *testing.T) {
	access := NewAccess("user1", []RoleTitle{RoleRefinery}, nil, nil)

	assert.Equal(t, "user1", access.UserID())
	assert.True(t, access.HasRole("refinery"))
	assert.True(t, access.HasRole(RoleRefinery))
	assert.False(t, access.HasRole(RoleSuperuser))
	assert.False(t, access.IsSuperuser())
	assert.Equal(t, []RoleTitle{RoleRefinery}, access.Roles())
}

// TestAccessIsImmutable tests that returned slices do not alias the snapshot
func TestAccessIsImmutable(t *testing.T) {
	grants := []string{"refinery_pages"}
	access := NewAccess("user1", nil, grants, newTestCatalog())
	grants[0] = "refinery_images"

	got := access.Grants()
	got[0] = "changed"

	assert.Equal(t, []string{"refinery_pages"}, access.Grants())
}
