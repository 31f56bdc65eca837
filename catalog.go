package userkit

import (
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Plugin describes a feature module of the CMS admin.
type Plugin struct {
	Name          string
	Title         string
	URL           string
	HideFromMenu  bool
	AlwaysAllowed bool
}

// InMenu reports whether the plugin is shown in the navigation menu.
func (p Plugin) InMenu() bool {
	return !p.HideFromMenu
}

// Plugins is an ordered list of plugin descriptors.
type Plugins []Plugin

// Names returns the plugin names in order.
func (ps Plugins) Names() []string {
	names := make([]string, 0, len(ps))
	for _, p := range ps {
		names = append(names, p.Name)
	}
	return names
}

// InMenu returns the plugins shown in the menu.
func (ps Plugins) InMenu() Plugins {
	return ps.filter(Plugin.InMenu)
}

// AlwaysAllowed returns the plugins every user can access.
func (ps Plugins) AlwaysAllowed() Plugins {
	return ps.filter(func(p Plugin) bool { return p.AlwaysAllowed })
}

// FirstURLInMenu returns the URL of the first in-menu plugin that has one.
func (ps Plugins) FirstURLInMenu() string {
	for _, p := range ps {
		if p.InMenu() && p.URL != "" {
			return p.URL
		}
	}
	return ""
}

// Find returns the plugin with the given name.
func (ps Plugins) Find(name string) (Plugin, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p, true
		}
	}
	return Plugin{}, false
}

// Contains reports whether a plugin with the given name is present.
func (ps Plugins) Contains(name string) bool {
	_, ok := ps.Find(name)
	return ok
}

func (ps Plugins) filter(keep func(Plugin) bool) Plugins {
	out := make(Plugins, 0, len(ps))
	for _, p := range ps {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// Catalog holds every plugin registered by the application.
// It is created at startup and should be treated as immutable after initialization.
type Catalog struct {
	mu      sync.RWMutex
	plugins []*PluginDefinition
}

// PluginDefinition is the fluent builder for a registered plugin.
type PluginDefinition struct {
	plugin  Plugin
	catalog *Catalog
}

// NewCatalog creates an empty plugin catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Register adds a plugin to the catalog, replacing any plugin with the same name
// while keeping its position.
//
// Example:
//
//	catalog.Register("refinery_dashboard").URL("/refinery").AlwaysAllowed().
//	    Register("refinery_pages").Title("Pages").URL("/refinery/pages").
//	    Register("refinery_core").HideFromMenu().AlwaysAllowed()
func (c *Catalog) Register(name string) *PluginDefinition {
	c.mu.Lock()
	defer c.mu.Unlock()

	def := &PluginDefinition{plugin: Plugin{Name: name, Title: name}, catalog: c}
	for i, existing := range c.plugins {
		if existing.plugin.Name == name {
			c.plugins[i] = def
			return def
		}
	}
	c.plugins = append(c.plugins, def)
	return def
}

// Registered returns every plugin in registration order.
func (c *Catalog) Registered() Plugins {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(Plugins, 0, len(c.plugins))
	for _, def := range c.plugins {
		out = append(out, def.plugin)
	}
	return out
}

// AlwaysAllowed returns the plugins every user can access.
func (c *Catalog) AlwaysAllowed() Plugins {
	return c.Registered().AlwaysAllowed()
}

// InMenu returns the plugins shown in the navigation menu.
func (c *Catalog) InMenu() Plugins {
	return c.Registered().InMenu()
}

// Names returns all registered plugin names.
func (c *Catalog) Names() []string {
	return c.Registered().Names()
}

// Find returns a registered plugin by name.
func (c *Catalog) Find(name string) (Plugin, bool) {
	return c.Registered().Find(name)
}

// Title sets the human readable title.
func (d *PluginDefinition) Title(title string) *PluginDefinition {
	d.catalog.mu.Lock()
	defer d.catalog.mu.Unlock()
	d.plugin.Title = title
	return d
}

// URL sets the admin URL of the plugin.
func (d *PluginDefinition) URL(url string) *PluginDefinition {
	d.catalog.mu.Lock()
	defer d.catalog.mu.Unlock()
	d.plugin.URL = url
	return d
}

// HideFromMenu keeps the plugin out of the navigation menu.
func (d *PluginDefinition) HideFromMenu() *PluginDefinition {
	d.catalog.mu.Lock()
	defer d.catalog.mu.Unlock()
	d.plugin.HideFromMenu = true
	return d
}

// AlwaysAllowed makes the plugin accessible to every user.
func (d *PluginDefinition) AlwaysAllowed() *PluginDefinition {
	d.catalog.mu.Lock()
	defer d.catalog.mu.Unlock()
	d.plugin.AlwaysAllowed = true
	return d
}

// Register continues registering plugins on the catalog (fluent API).
func (d *PluginDefinition) Register(name string) *PluginDefinition {
	return d.catalog.Register(name)
}

// Plugin returns the descriptor built so far.
func (d *PluginDefinition) Plugin() Plugin {
	d.catalog.mu.RLock()
	defer d.catalog.mu.RUnlock()
	return d.plugin
}

// PluginConfig is the file representation of a catalog entry.
type PluginConfig struct {
	Name          string `yaml:"name" mapstructure:"name" validate:"required"`
	Title         string `yaml:"title" mapstructure:"title"`
	URL           string `yaml:"url" mapstructure:"url"`
	HideFromMenu  bool   `yaml:"hide_from_menu" mapstructure:"hide_from_menu"`
	AlwaysAllowed bool   `yaml:"always_allowed" mapstructure:"always_allowed"`
}

type catalogFile struct {
	Plugins []PluginConfig `yaml:"plugins"`
}

// CatalogFromConfig builds a catalog from plugin entries.
func CatalogFromConfig(entries []PluginConfig) (*Catalog, error) {
	c := NewCatalog()
	for i, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("plugin #%d: name is required", i+1)
		}
		def := c.Register(e.Name)
		if e.Title != "" {
			def.Title(e.Title)
		}
		if e.URL != "" {
			def.URL(e.URL)
		}
		if e.HideFromMenu {
			def.HideFromMenu()
		}
		if e.AlwaysAllowed {
			def.AlwaysAllowed()
		}
	}
	return c, nil
}

// LoadCatalog reads a YAML document with a top-level "plugins" list.
//
//	plugins:
//	  - name: refinery_dashboard
//	    url: /refinery
//	    always_allowed: true
//	  - name: refinery_pages
//	    title: Pages
//	    url: /refinery/pages
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return CatalogFromConfig(file.Plugins)
}

// LoadCatalogFile reads a catalog from a YAML file.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}
