package config

import "github.com/shaped-ai/playground/pkg/core"

// Default configuration values.
const (
	DefaultStateFile   = ".playground/state.db"
	DefaultBaseURL     = "http://localhost:8765/"
	DefaultUIPort      = 8765
	DefaultLanguage    = core.LanguageYAML
	DefaultTabNameBase = "Query"
)

// DefaultQueryContent seeds new YAML tabs.
const DefaultQueryContent = `query:
  type: rank
  from: item
  limit: 20
`

// DefaultSQLContent seeds new SQL tabs.
const DefaultSQLContent = `SELECT *
FROM items
LIMIT 20
`

// ApplyDefaults fills unset tab template fields.
func (d *TabDefaults) ApplyDefaults() {
	if d == nil {
		return
	}
	if d.Language == "" {
		d.Language = DefaultLanguage
	}
	if d.NameBase == "" {
		d.NameBase = DefaultTabNameBase
	}
	if d.Content == "" {
		if d.Language == core.LanguageSQL {
			d.Content = DefaultSQLContent
		} else {
			d.Content = DefaultQueryContent
		}
	}
}
