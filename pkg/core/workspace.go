package core

import (
	"errors"
	"fmt"
	"maps"

	"github.com/go-playground/validator/v10"
)

// Language is the execution dialect of a query tab.
type Language string

// Supported query languages.
const (
	LanguageYAML Language = "yaml"
	LanguageSQL  Language = "sql"
)

// EditorMode selects syntax highlighting, independent of Language.
type EditorMode string

// Supported editor modes.
const (
	EditorModePlain EditorMode = "plain"
	EditorModeYAML  EditorMode = "yaml"
	EditorModeSQL   EditorMode = "sql"
)

// PreviewMode selects the results-rendering layout. It is a display
// preference only and never affects execution.
type PreviewMode string

// Supported preview modes.
const (
	PreviewModeTable PreviewMode = "table"
	PreviewModeCards PreviewMode = "cards"
	PreviewModeJSON  PreviewMode = "json"
)

// QueryTabState is one editable query unit.
type QueryTabState struct {
	ID              string                `json:"id" validate:"required"`
	Name            string                `json:"name"`
	Content         string                `json:"content"`
	Language        Language              `json:"language" validate:"omitempty,oneof=yaml sql"`
	EditorMode      EditorMode            `json:"editorMode,omitempty" validate:"omitempty,oneof=plain yaml sql"`
	Engine          string                `json:"engine"`
	SavedQueryID    string                `json:"savedQueryId,omitempty"`
	ParameterValues map[string]ParamValue `json:"parameterValues"`
	PreviewMode     PreviewMode           `json:"previewMode,omitempty" validate:"omitempty,oneof=table cards json"`
}

// Clone returns a deep copy of the tab.
func (t QueryTabState) Clone() QueryTabState {
	t.ParameterValues = maps.Clone(t.ParameterValues)
	return t
}

// Equal reports whether every field, including each parameter value, matches.
// A nil and an empty parameter map are equal.
func (t QueryTabState) Equal(o QueryTabState) bool {
	return t.ID == o.ID &&
		t.Name == o.Name &&
		t.Content == o.Content &&
		t.Language == o.Language &&
		t.EditorMode == o.EditorMode &&
		t.Engine == o.Engine &&
		t.SavedQueryID == o.SavedQueryID &&
		t.PreviewMode == o.PreviewMode &&
		maps.Equal(t.ParameterValues, o.ParameterValues)
}

// QueryPageState is the synchronizable workspace snapshot. Tab order is
// display order.
type QueryPageState struct {
	Tabs        []QueryTabState `json:"tabs" validate:"required,dive"`
	ActiveTabID string          `json:"activeTabId"`
}

// ErrDuplicateTabID is returned by Validate when two tabs share an id.
var ErrDuplicateTabID = errors.New("duplicate tab id")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structural shape of the state: a tab list is present,
// every tab has an id, enum fields hold known values and ids are unique.
// A dangling ActiveTabID is not a shape error; see Normalize.
func (s *QueryPageState) Validate() error {
	if s == nil {
		return errors.New("invalid workspace state: nil")
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid workspace state: %w", err)
	}
	seen := make(map[string]struct{}, len(s.Tabs))
	for _, tab := range s.Tabs {
		if _, ok := seen[tab.ID]; ok {
			return fmt.Errorf("invalid workspace state: %w: %s", ErrDuplicateTabID, tab.ID)
		}
		seen[tab.ID] = struct{}{}
	}
	return nil
}

// Normalize repairs the active pointer so it never dangles: empty when there
// are no tabs, otherwise the first tab when the current value is unknown.
func (s *QueryPageState) Normalize() {
	if len(s.Tabs) == 0 {
		s.ActiveTabID = ""
		return
	}
	if s.IndexOf(s.ActiveTabID) < 0 {
		s.ActiveTabID = s.Tabs[0].ID
	}
}

// Clone returns a deep copy of the state.
func (s *QueryPageState) Clone() *QueryPageState {
	if s == nil {
		return nil
	}
	out := &QueryPageState{ActiveTabID: s.ActiveTabID}
	if s.Tabs != nil {
		out.Tabs = make([]QueryTabState, len(s.Tabs))
		for i, tab := range s.Tabs {
			out.Tabs[i] = tab.Clone()
		}
	}
	return out
}

// Equal reports whether both states hold the same tabs in the same order
// with the same active tab.
func (s *QueryPageState) Equal(o *QueryPageState) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.ActiveTabID != o.ActiveTabID || len(s.Tabs) != len(o.Tabs) {
		return false
	}
	for i := range s.Tabs {
		if !s.Tabs[i].Equal(o.Tabs[i]) {
			return false
		}
	}
	return true
}

// IndexOf returns the position of the tab with the given id, or -1.
func (s *QueryPageState) IndexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.Tabs {
		if s.Tabs[i].ID == id {
			return i
		}
	}
	return -1
}

// ActiveTab returns a copy of the active tab.
func (s *QueryPageState) ActiveTab() (QueryTabState, bool) {
	i := s.IndexOf(s.ActiveTabID)
	if i < 0 {
		return QueryTabState{}, false
	}
	return s.Tabs[i].Clone(), true
}
