package workspace

import "github.com/shaped-ai/playground/pkg/core"

// Entry is one history entry: the URL token and, for entries created by a
// discrete action, the state snapshot attached to the entry itself.
type Entry struct {
	Token string
	State *core.QueryPageState
}

// History is the address bar and navigation history the bridge writes to.
type History interface {
	// Replace rewrites the current entry in place.
	Replace(entry Entry)
	// Push appends a navigable entry after the current one.
	Push(entry Entry)
}

// NavigationSource is what a back/forward navigation lands on: either an
// Embedded snapshot or a URLToken that still needs decoding.
type NavigationSource interface {
	navigationSource()
}

// Embedded is a snapshot attached to a history entry.
type Embedded struct {
	State *core.QueryPageState
}

// URLToken is the raw token found in the current URL.
type URLToken struct {
	Token string
}

func (Embedded) navigationSource() {}
func (URLToken) navigationSource() {}

// SourceFor returns the navigation source for a history entry, preferring
// the attached snapshot.
func SourceFor(e Entry) NavigationSource {
	if e.State != nil {
		return Embedded{State: e.State.Clone()}
	}
	return URLToken{Token: e.Token}
}

// MemoryHistory is an in-process History with back/forward navigation.
type MemoryHistory struct {
	entries []Entry
	index   int
}

// NewMemoryHistory starts a history whose only entry carries token.
func NewMemoryHistory(token string) *MemoryHistory {
	return &MemoryHistory{entries: []Entry{{Token: token}}}
}

// Current returns the entry the history is positioned on.
func (h *MemoryHistory) Current() Entry {
	return h.entries[h.index]
}

// Replace rewrites the current entry.
func (h *MemoryHistory) Replace(e Entry) {
	h.entries[h.index] = cloneEntry(e)
}

// Push drops any forward entries and appends e.
func (h *MemoryHistory) Push(e Entry) {
	h.entries = append(h.entries[:h.index+1], cloneEntry(e))
	h.index++
}

// Back moves to the previous entry and returns its navigation source.
func (h *MemoryHistory) Back() (NavigationSource, bool) {
	if h.index == 0 {
		return nil, false
	}
	h.index--
	return SourceFor(h.entries[h.index]), true
}

// Forward moves to the next entry and returns its navigation source.
func (h *MemoryHistory) Forward() (NavigationSource, bool) {
	if h.index >= len(h.entries)-1 {
		return nil, false
	}
	h.index++
	return SourceFor(h.entries[h.index]), true
}

// Len returns the number of entries.
func (h *MemoryHistory) Len() int { return len(h.entries) }

// Index returns the current position.
func (h *MemoryHistory) Index() int { return h.index }

func cloneEntry(e Entry) Entry {
	return Entry{Token: e.Token, State: e.State.Clone()}
}
