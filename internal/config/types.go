// Package config provides shared configuration for the playground.
// It is decoupled from CLI concerns so the UI server and the workspace
// engine can use the same defaults.
package config

import "github.com/shaped-ai/playground/pkg/core"

// TabDefaults is the template new tabs are created from.
type TabDefaults struct {
	NameBase   string          `koanf:"name"`
	Content    string          `koanf:"content"`
	Language   core.Language   `koanf:"language"`
	EditorMode core.EditorMode `koanf:"editor_mode"`
	Engine     string          `koanf:"engine"`
}

// DefaultTabDefaults returns the built-in tab template.
func DefaultTabDefaults() TabDefaults {
	d := TabDefaults{}
	d.ApplyDefaults()
	return d
}
