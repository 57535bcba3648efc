package config

import "path/filepath"

// ContentPath returns the content directory resolved against the site root.
func (c *Config) ContentPath() string {
	return filepath.Join(c.Site.Root, c.Site.ContentDir)
}

// StaticPath returns the static assets directory resolved against the site root.
func (c *Config) StaticPath() string {
	return filepath.Join(c.Site.Root, c.Site.StaticDir)
}

// PublicPath returns the publish directory (the hosting submodule) resolved
// against the site root.
func (c *Config) PublicPath() string {
	return filepath.Join(c.Site.Root, c.Site.PublicDir)
}

// LayoutsPath returns the site layouts directory resolved against the site root.
func (c *Config) LayoutsPath() string {
	return filepath.Join(c.Site.Root, "layouts")
}

// JournalPath returns the deploy journal database path. The journal
// lives next to the site so deploy history travels with the checkout.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Site.Root, ".blogbuilder-journal.db")
}
