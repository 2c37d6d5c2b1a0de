// Package config provides configuration management for the playground CLI.
//
// It layers built-in defaults, playground.yaml, PLAYGROUND_ environment
// variables and explicitly set flags, in that order of increasing priority.
package config

import (
	"fmt"
	"slices"
	"strings"

	sharedcfg "github.com/shaped-ai/playground/internal/config"
	"github.com/shaped-ai/playground/pkg/core"
)

// Config holds all CLI configuration options.
type Config struct {
	StatePath    string         `koanf:"state_path"`
	AssumeUser   string         `koanf:"assume_user"`
	BaseURL      string         `koanf:"base_url"`
	Verbose      bool           `koanf:"verbose"`
	OutputFormat string         `koanf:"output"`
	Defaults     DefaultsConfig `koanf:"defaults"`
	UI           *UIConfig      `koanf:"ui"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// DefaultsConfig is the template for newly created tabs.
type DefaultsConfig struct {
	Name       string `koanf:"name"`
	Language   string `koanf:"language"`
	EditorMode string `koanf:"editor_mode"`
	Engine     string `koanf:"engine"`
	Content    string `koanf:"content"`
}

// UIConfig holds configuration for the UI server.
type UIConfig struct {
	Port          int    `koanf:"port"`
	AutoOpen      bool   `koanf:"auto_open"`
	SessionSecret string `koanf:"session_secret"`
}

// Default configuration values.
const (
	DefaultStateFile = sharedcfg.DefaultStateFile
	DefaultBaseURL   = sharedcfg.DefaultBaseURL
	DefaultOutput    = "auto" // TTY=text, otherwise markdown
)

// DefaultUIConfig returns a UIConfig with default values.
func DefaultUIConfig() *UIConfig {
	return &UIConfig{
		Port:     sharedcfg.DefaultUIPort,
		AutoOpen: true,
	}
}

// GetUIConfig returns the UI config with defaults applied for any unset values.
func (c *Config) GetUIConfig() *UIConfig {
	if c.UI == nil {
		return DefaultUIConfig()
	}
	ui := *c.UI
	if ui.Port == 0 {
		ui.Port = sharedcfg.DefaultUIPort
	}
	return &ui
}

// TabDefaults converts the configured template into the workspace form.
func (c *Config) TabDefaults() sharedcfg.TabDefaults {
	d := sharedcfg.TabDefaults{
		NameBase:   c.Defaults.Name,
		Content:    c.Defaults.Content,
		Language:   core.Language(c.Defaults.Language),
		EditorMode: core.EditorMode(c.Defaults.EditorMode),
		Engine:     c.Defaults.Engine,
	}
	d.ApplyDefaults()
	return d
}

var validOutputs = []string{"auto", "text", "markdown", "json"}

// Validate checks enumerated values.
func (c *Config) Validate() error {
	if c.OutputFormat != "" && !slices.Contains(validOutputs, c.OutputFormat) {
		return fmt.Errorf("invalid output format %q (want one of %s)", c.OutputFormat, strings.Join(validOutputs, ", "))
	}
	switch core.Language(c.Defaults.Language) {
	case "", core.LanguageYAML, core.LanguageSQL:
	default:
		return fmt.Errorf("invalid defaults.language %q (want yaml or sql)", c.Defaults.Language)
	}
	switch core.EditorMode(c.Defaults.EditorMode) {
	case "", core.EditorModePlain, core.EditorModeYAML, core.EditorModeSQL:
	default:
		return fmt.Errorf("invalid defaults.editor_mode %q", c.Defaults.EditorMode)
	}
	if c.UI != nil && (c.UI.Port < 0 || c.UI.Port > 65535) {
		return fmt.Errorf("invalid ui.port %d", c.UI.Port)
	}
	return nil
}
