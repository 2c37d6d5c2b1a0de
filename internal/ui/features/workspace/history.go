package workspace

import (
	"encoding/json"
	"fmt"

	"github.com/shaped-ai/playground/internal/workspace"
	"github.com/shaped-ai/playground/pkg/core"
)

// ScriptHistory records the bridge's history writes for one window and
// replays them in the browser as history.replaceState/pushState calls.
// It is only touched under the window's session lock.
type ScriptHistory struct {
	path    string
	pending []historyOp
}

type historyOp struct {
	push  bool
	token string
	state *core.QueryPageState
}

// historyState is what pushState attaches to a browser history entry. The
// popstate handler posts it back as the embedded snapshot.
type historyState struct {
	Workspace *core.QueryPageState `json:"workspace"`
}

// NewScriptHistory creates a recorder for URLs under path.
func NewScriptHistory(path string) *ScriptHistory {
	if path == "" {
		path = "/"
	}
	return &ScriptHistory{path: path}
}

// Replace records an in-place URL rewrite.
func (h *ScriptHistory) Replace(e workspace.Entry) {
	h.pending = append(h.pending, historyOp{token: e.Token})
}

// Push records a new navigable entry.
func (h *ScriptHistory) Push(e workspace.Entry) {
	h.pending = append(h.pending, historyOp{push: true, token: e.Token, state: e.State.Clone()})
}

// Pending returns the number of recorded writes not yet drained.
func (h *ScriptHistory) Pending() int {
	return len(h.pending)
}

// Drain returns the recorded writes as scripts, oldest first, and clears
// them. Consecutive rewrites collapse into the last one.
func (h *ScriptHistory) Drain() []string {
	ops := h.pending
	h.pending = nil

	var scripts []string
	for i, op := range ops {
		if !op.push && i+1 < len(ops) && !ops[i+1].push {
			continue
		}
		script, err := op.script(h.path)
		if err != nil {
			continue
		}
		scripts = append(scripts, script)
	}
	return scripts
}

func (op historyOp) script(path string) (string, error) {
	target, err := workspace.WithToken(path, op.token)
	if err != nil {
		return "", err
	}
	// json.Marshal escapes '<' and '>' so the literals are safe inside a
	// script element.
	url, err := json.Marshal(target)
	if err != nil {
		return "", err
	}
	if !op.push {
		return fmt.Sprintf("history.replaceState(null, \"\", %s)", url), nil
	}
	state, err := json.Marshal(historyState{Workspace: op.state})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("history.pushState(%s, \"\", %s)", state, url), nil
}
