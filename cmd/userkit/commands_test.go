package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernandezvara/userkit"
)

// TestRootCommandUsage tests the help output
func TestRootCommandUsage(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.Out = &out

	require.NoError(t, root.Execute(nil))
	assert.Contains(t, out.String(), "Usage: userkit <command> [args]")
	for _, name := range []string{"create-first", "grant", "migrate", "plugins"} {
		assert.Contains(t, out.String(), name)
	}

	out.Reset()
	require.NoError(t, root.Execute([]string{"--help"}))
	assert.Contains(t, out.String(), "Commands:")
}

// TestRootCommandUnknown tests that unknown commands fail
func TestRootCommandUnknown(t *testing.T) {
	err := newRootCommand().Execute([]string{"destroy"})
	assert.EqualError(t, err, "unknown command: destroy")
}

// TestGrantRequiresUser tests flag validation before connecting
func TestGrantRequiresUser(t *testing.T) {
	err := newRootCommand().Execute([]string{"grant", "-plugins", "refinery_pages"})
	assert.EqualError(t, err, "-user is required")
}

// TestCommandsRequireDatabaseURL tests that commands fail without configuration
func TestCommandsRequireDatabaseURL(t *testing.T) {
	t.Setenv("USERKIT_DATABASE_URL", "")

	for _, args := range [][]string{
		{"migrate"},
		{"create-first", "-username", "admin"},
		{"plugins"},
	} {
		assert.Error(t, newRootCommand().Execute(args), args[0])
	}
}

// TestPrintPlugins tests the plugin table
func TestPrintPlugins(t *testing.T) {
	var out bytes.Buffer
	printPlugins(&out, userkit.Plugins{
		{Name: "refinery_dashboard", Title: "Dashboard", URL: "/refinery", AlwaysAllowed: true},
		{Name: "refinery_settings", Title: "Settings", URL: "/refinery/settings", HideFromMenu: true},
	})

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "refinery_dashboard")
	assert.Contains(t, string(lines[0]), "always allowed")
	assert.Contains(t, string(lines[1]), "hidden")
}
