// Package workspace serves the multi-tab query workspace in the browser.
//
// Every page load opens a Window: a workspace session of its own, backed by
// the shared partition store and keyed by the identity found in the request
// cookies. Mutations arrive as datastar requests carrying the window id and
// the editor signals; responses patch the view and replay the session's
// history writes as history.replaceState/pushState scripts.
package workspace

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/shaped-ai/playground/internal/workspace"
	"github.com/shaped-ai/playground/pkg/core"
)

// Signals is the datastar signal set shared by the page and every request.
type Signals struct {
	WindowID string `json:"windowId"`

	Name        string `json:"name"`
	Content     string `json:"content"`
	Language    string `json:"language"`
	EditorMode  string `json:"editorMode"`
	Engine      string `json:"engine"`
	PreviewMode string `json:"previewMode"`
	// Params holds one name=value pair per line.
	Params string `json:"params"`

	Identity string `json:"identity"`
	Persist  bool   `json:"persist"`

	// NavState is the snapshot attached to the history entry a popstate
	// landed on, NavSearch the location's query string.
	NavState  *core.QueryPageState `json:"navState"`
	NavSearch string               `json:"navSearch"`
}

// EditorSignals are the signals bound to the editor form.
type EditorSignals struct {
	Name        string `json:"name"`
	Content     string `json:"content"`
	Language    string `json:"language"`
	EditorMode  string `json:"editorMode"`
	Engine      string `json:"engine"`
	PreviewMode string `json:"previewMode"`
	Params      string `json:"params"`
}

// editorSignalsFor returns the editor signals for tab.
func editorSignalsFor(tab core.QueryTabState) EditorSignals {
	return EditorSignals{
		Name:        tab.Name,
		Content:     tab.Content,
		Language:    string(tab.Language),
		EditorMode:  string(tab.EditorMode),
		Engine:      tab.Engine,
		PreviewMode: string(tab.PreviewMode),
		Params:      formatParams(tab.ParameterValues),
	}
}

// TabPatch converts the editor signals into a full tab patch. Fields the
// form does not show, such as the saved query id, are left alone.
func (s Signals) TabPatch() (workspace.TabPatch, error) {
	params, err := parseParams(s.Params)
	if err != nil {
		return workspace.TabPatch{}, err
	}
	language := core.Language(s.Language)
	editorMode := core.EditorMode(s.EditorMode)
	preview := core.PreviewMode(s.PreviewMode)

	patch := workspace.TabPatch{
		Name:            &s.Name,
		Content:         &s.Content,
		Language:        &language,
		EditorMode:      &editorMode,
		Engine:          &s.Engine,
		ParameterValues: &params,
		PreviewMode:     &preview,
	}
	return patch, patch.Validate()
}

// NavigationSource returns what a popstate landed on: the attached
// snapshot when there is one, otherwise the token in the location.
func (s Signals) NavigationSource() workspace.NavigationSource {
	if s.NavState != nil {
		return workspace.Embedded{State: s.NavState}
	}
	search := strings.TrimPrefix(s.NavSearch, "?")
	return workspace.URLToken{Token: workspace.TokenFromURL("?" + search)}
}

func parseParams(text string) (map[string]core.ParamValue, error) {
	var params map[string]core.ParamValue
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q (want name=value)", line)
		}
		if params == nil {
			params = make(map[string]core.ParamValue)
		}
		params[name] = core.ParseParam(strings.TrimSpace(value))
	}
	return params, nil
}

func formatParams(params map[string]core.ParamValue) string {
	var b strings.Builder
	for _, name := range slices.Sorted(maps.Keys(params)) {
		fmt.Fprintf(&b, "%s=%s\n", name, params[name])
	}
	return b.String()
}
