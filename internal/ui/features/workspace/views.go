package workspace

import (
	"encoding/json"
	"net/url"

	"github.com/shaped-ai/playground/internal/ui/resources"
	"github.com/shaped-ai/playground/pkg/core"
)

//go:generate templ generate

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// tabView is one entry of the tab strip.
type tabView struct {
	ID     string
	Label  string
	Active bool
}

// workspaceView is the data behind the #workspace element.
type workspaceView struct {
	Partition    string
	Identity     string
	Tabs         []tabView
	Active       *core.QueryTabState
	ExportURL    string
	Languages    []core.Language
	EditorModes  []core.EditorMode
	PreviewModes []core.PreviewMode
}

// pageView is the data behind the full page.
type pageView struct {
	Title         string
	StylesheetURL string
	DatastarURL   string
	Signals       string
	Workspace     workspaceView
	Scripts       []string
}

func newWorkspaceView(win *Window, state *core.QueryPageState) workspaceView {
	view := workspaceView{
		Partition:    win.Partition,
		Identity:     win.Identity,
		ExportURL:    "/api/workspace/export?window=" + url.QueryEscape(win.ID),
		Languages:    []core.Language{core.LanguageYAML, core.LanguageSQL},
		EditorModes:  []core.EditorMode{core.EditorModePlain, core.EditorModeYAML, core.EditorModeSQL},
		PreviewModes: []core.PreviewMode{core.PreviewModeTable, core.PreviewModeCards, core.PreviewModeJSON},
	}
	for _, tab := range state.Tabs {
		label := tab.Name
		if label == "" {
			label = "Untitled"
		}
		view.Tabs = append(view.Tabs, tabView{ID: tab.ID, Label: label, Active: tab.ID == state.ActiveTabID})
	}
	if active, ok := state.ActiveTab(); ok {
		view.Active = &active
	}
	return view
}

// newPageView builds the full page. scripts come from the window's history
// recorder and are generated by ScriptHistory, never from user input.
func newPageView(win *Window, state *core.QueryPageState, scripts []string) (pageView, error) {
	signals := struct {
		WindowID string `json:"windowId"`
		EditorSignals
		Identity  string               `json:"identity"`
		Persist   bool                 `json:"persist"`
		NavState  *core.QueryPageState `json:"navState"`
		NavSearch string               `json:"navSearch"`
	}{
		WindowID: win.ID,
		Identity: win.Identity,
	}
	if active, ok := state.ActiveTab(); ok {
		signals.EditorSignals = editorSignalsFor(active)
	}
	raw, err := json.Marshal(signals)
	if err != nil {
		return pageView{}, err
	}

	return pageView{
		Title:         "Workspace",
		StylesheetURL: resources.StaticPath("workspace.css"),
		DatastarURL:   datastarScript,
		Signals:       string(raw),
		Workspace:     newWorkspaceView(win, state),
		Scripts:       scripts,
	}, nil
}

// tabPath is the API path of a tab, optionally followed by a sub-resource.
// The id is path-escaped, so the result never contains quotes or backslashes.
func tabPath(id, sub string) string {
	path := "/api/tabs/" + url.PathEscape(id)
	if sub != "" {
		path += "/" + sub
	}
	return path
}

// action is a datastar backend action expression such as @post('/api/tabs').
func action(method, path string) string {
	return "@" + method + "('" + path + "')"
}
