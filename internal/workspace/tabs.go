package workspace

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/google/uuid"
	"github.com/shaped-ai/playground/internal/config"
	"github.com/shaped-ai/playground/pkg/core"
)

// Action classifies a store change for downstream effects.
type Action int

// Store change actions.
const (
	// ActionEdit is a continuous edit: rewrite the URL in place.
	ActionEdit Action = iota
	// ActionSwitch is a discrete navigation: push a history entry.
	ActionSwitch
	// ActionRestore applies externally sourced state: never written to history.
	ActionRestore
	// ActionLoad applies the stored partition snapshot: neither persisted
	// nor written to history.
	ActionLoad
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionEdit:
		return "edit"
	case ActionSwitch:
		return "switch"
	case ActionRestore:
		return "restore"
	case ActionLoad:
		return "load"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Change describes one effective store mutation.
type Change struct {
	Prev   *core.QueryPageState
	Next   *core.QueryPageState
	Action Action
}

// TabPatch is a partial tab update. A nil field leaves the tab's value
// alone; a set field replaces it whole.
type TabPatch struct {
	Name            *string                     `json:"name,omitempty"`
	Content         *string                     `json:"content,omitempty"`
	Language        *core.Language              `json:"language,omitempty"`
	EditorMode      *core.EditorMode            `json:"editorMode,omitempty"`
	Engine          *string                     `json:"engine,omitempty"`
	SavedQueryID    *string                     `json:"savedQueryId,omitempty"`
	ParameterValues *map[string]core.ParamValue `json:"parameterValues,omitempty"`
	PreviewMode     *core.PreviewMode           `json:"previewMode,omitempty"`
}

// Validate reports whether applying the patch keeps a tab well-formed.
func (p TabPatch) Validate() error {
	candidate := p.apply(core.QueryTabState{ID: "candidate"})
	return (&core.QueryPageState{Tabs: []core.QueryTabState{candidate}, ActiveTabID: candidate.ID}).Validate()
}

func (p TabPatch) apply(tab core.QueryTabState) core.QueryTabState {
	next := tab.Clone()
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Content != nil {
		next.Content = *p.Content
	}
	if p.Language != nil {
		next.Language = *p.Language
	}
	if p.EditorMode != nil {
		next.EditorMode = *p.EditorMode
	}
	if p.Engine != nil {
		next.Engine = *p.Engine
	}
	if p.SavedQueryID != nil {
		next.SavedQueryID = *p.SavedQueryID
	}
	if p.ParameterValues != nil {
		next.ParameterValues = maps.Clone(*p.ParameterValues)
	}
	if p.PreviewMode != nil {
		next.PreviewMode = *p.PreviewMode
	}
	return next
}

// TabStore owns the canonical workspace state.
//
// The state is an immutable snapshot: every effective mutation installs a
// new *core.QueryPageState and notifies subscribers, while a mutation that
// changes nothing keeps the same pointer and notifies nobody. Callers must
// not modify a snapshot returned by State.
type TabStore struct {
	state     *core.QueryPageState
	defaults  config.TabDefaults
	newID     func() string
	logger    *slog.Logger
	listeners []listener
	nextSubID int
}

type listener struct {
	id int
	fn func(Change)
}

// TabStoreOption configures a TabStore.
type TabStoreOption func(*TabStore)

// WithIDGenerator overrides tab id generation.
func WithIDGenerator(fn func() string) TabStoreOption {
	return func(s *TabStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithTabDefaults sets the template for new tabs.
func WithTabDefaults(d config.TabDefaults) TabStoreOption {
	return func(s *TabStore) {
		d.ApplyDefaults()
		s.defaults = d
	}
}

// WithStoreLogger sets the store's logger.
func WithStoreLogger(logger *slog.Logger) TabStoreOption {
	return func(s *TabStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewTabStore creates a store holding a single default tab.
func NewTabStore(opts ...TabStoreOption) *TabStore {
	s := &TabStore{
		defaults: config.DefaultTabDefaults(),
		newID:    uuid.NewString,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	first := s.newTab(1)
	s.state = &core.QueryPageState{
		Tabs:        []core.QueryTabState{first},
		ActiveTabID: first.ID,
	}
	return s
}

// Subscribe registers fn for every effective change. The returned function
// removes the subscription.
func (s *TabStore) Subscribe(fn func(Change)) func() {
	s.nextSubID++
	id := s.nextSubID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// State returns the current snapshot. It must be treated as read-only.
func (s *TabStore) State() *core.QueryPageState {
	return s.state
}

// Tabs returns a copy of the tab list in display order.
func (s *TabStore) Tabs() []core.QueryTabState {
	return s.state.Clone().Tabs
}

// ActiveTabID returns the id of the active tab.
func (s *TabStore) ActiveTabID() string {
	return s.state.ActiveTabID
}

// ActiveTab returns a copy of the active tab.
func (s *TabStore) ActiveTab() (core.QueryTabState, bool) {
	return s.state.ActiveTab()
}

// CreateDefaultTab appends one default tab and activates it. It only acts
// when the workspace has no tabs.
func (s *TabStore) CreateDefaultTab() {
	if len(s.state.Tabs) > 0 {
		return
	}
	tab := s.newTab(1)
	s.commit(&core.QueryPageState{
		Tabs:        []core.QueryTabState{tab},
		ActiveTabID: tab.ID,
	}, ActionEdit)
}

// AddTab appends a default tab named after its position, activates it and
// returns its id.
func (s *TabStore) AddTab() string {
	next := s.state.Clone()
	tab := s.newTab(len(next.Tabs) + 1)
	next.Tabs = append(next.Tabs, tab)
	next.ActiveTabID = tab.ID
	s.commit(next, ActionEdit)
	return tab.ID
}

// CloseTab removes a tab. Closing the active tab activates the first
// remaining one; closing the last tab creates a fresh default tab. Unknown
// ids are ignored.
func (s *TabStore) CloseTab(id string) {
	i := s.state.IndexOf(id)
	if i < 0 {
		return
	}

	next := s.state.Clone()
	next.Tabs = append(next.Tabs[:i], next.Tabs[i+1:]...)
	if len(next.Tabs) == 0 {
		tab := s.newTab(1)
		next.Tabs = []core.QueryTabState{tab}
		next.ActiveTabID = tab.ID
	} else if next.ActiveTabID == id {
		next.ActiveTabID = next.Tabs[0].ID
	}
	s.commit(next, ActionEdit)
}

// UpdateTab merges patch into the tab with the given id. When every field
// compares equal to its previous value, including nested parameter values,
// nothing changes and no subscriber runs. Invalid patches are dropped.
func (s *TabStore) UpdateTab(id string, patch TabPatch) {
	i := s.state.IndexOf(id)
	if i < 0 {
		return
	}
	if err := patch.Validate(); err != nil {
		s.logger.Debug("rejected tab patch", "id", id, "error", err)
		return
	}

	updated := patch.apply(s.state.Tabs[i])
	if updated.Equal(s.state.Tabs[i]) {
		return
	}

	next := s.state.Clone()
	next.Tabs[i] = updated
	s.commit(next, ActionEdit)
}

// RenameTab sets a tab's display name.
func (s *TabStore) RenameTab(id, name string) {
	s.UpdateTab(id, TabPatch{Name: &name})
}

// SetActiveTab switches the active tab. Unknown ids and the already active
// tab are ignored.
func (s *TabStore) SetActiveTab(id string) {
	if id == s.state.ActiveTabID || s.state.IndexOf(id) < 0 {
		return
	}
	next := s.state.Clone()
	next.ActiveTabID = id
	s.commit(next, ActionSwitch)
}

// Replace installs externally sourced state. The state is validated,
// copied and normalized so the active pointer never dangles, and an empty
// tab list is replaced by a default tab. It reports false, leaving the
// store untouched, when state is malformed.
func (s *TabStore) Replace(state *core.QueryPageState, action Action) bool {
	if err := state.Validate(); err != nil {
		s.logger.Debug("rejected workspace state", "error", err)
		return false
	}

	next := state.Clone()
	if len(next.Tabs) == 0 {
		tab := s.newTab(1)
		next.Tabs = []core.QueryTabState{tab}
	}
	next.Normalize()

	if next.Equal(s.state) {
		return true
	}
	s.commit(next, action)
	return true
}

func (s *TabStore) commit(next *core.QueryPageState, action Action) {
	ch := Change{Prev: s.state, Next: next, Action: action}
	s.state = next
	s.logger.Debug("workspace changed", "action", action, "tabs", len(next.Tabs), "active", next.ActiveTabID)

	// Subscribers may unsubscribe while being notified.
	for _, l := range append([]listener(nil), s.listeners...) {
		l.fn(ch)
	}
}

func (s *TabStore) newTab(position int) core.QueryTabState {
	return core.QueryTabState{
		ID:         s.newID(),
		Name:       fmt.Sprintf("%s %d", s.defaults.NameBase, position),
		Content:    s.defaults.Content,
		Language:   s.defaults.Language,
		EditorMode: s.defaults.EditorMode,
		Engine:     s.defaults.Engine,
	}
}
