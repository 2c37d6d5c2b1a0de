package workspace

import (
	"fmt"
	"log/slog"

	"github.com/shaped-ai/playground/pkg/core"
)

// BridgeState is the state of the history/URL bridge.
type BridgeState int

// Bridge states.
const (
	StateUninitialized BridgeState = iota
	StateRestoringFromURL
	StateLive
)

// String returns the state name.
func (s BridgeState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRestoringFromURL:
		return "restoring_from_url"
	case StateLive:
		return "live"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Bridge reconciles the TabStore with the URL and navigation history.
//
// Transitions:
//
//	Uninitialized --Load(decodable token)--> RestoringFromURL --Settle--> Live
//	Uninitialized --Load(no token)---------> Live
//
// Persistence and URL writes are suppressed until Live, so state applied
// from a URL can never be clobbered by, or clobber, the stored partition
// during restoration. Edits made inside that window are written out once
// when it settles.
type Bridge struct {
	state     BridgeState
	dirty     bool
	tabs      *TabStore
	codec     *Codec
	history   History
	persister *Persister
	logger    *slog.Logger
	detach    func()
}

// NewBridge creates a bridge and subscribes it to tabs.
func NewBridge(tabs *TabStore, codec *Codec, history History, persister *Persister, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Bridge{
		tabs:      tabs,
		codec:     codec,
		history:   history,
		persister: persister,
		logger:    logger,
	}
	b.detach = tabs.Subscribe(b.onChange)
	return b
}

// State returns the current bridge state.
func (b *Bridge) State() BridgeState {
	return b.state
}

// PersistenceAllowed reports whether store changes may be written to storage.
func (b *Bridge) PersistenceAllowed() bool {
	return b.state == StateLive
}

// Load performs the initial restoration from the URL token. A token that
// decodes to at least one tab wins over stored state; otherwise the stored
// partition is used, falling back to the default tab. Load only acts once.
func (b *Bridge) Load(token string) BridgeState {
	if b.state != StateUninitialized {
		b.logger.Debug("bridge already loaded", "state", b.state)
		return b.state
	}

	if decoded, ok := b.codec.Decode(token); ok && len(decoded.Tabs) > 0 {
		b.transition(StateRestoringFromURL)
		b.tabs.Replace(decoded, ActionRestore)
		return b.state
	}
	if token != "" {
		b.logger.Info("ignoring undecodable workspace token")
	}

	b.transition(StateLive)
	if stored, ok := b.persister.Load(); ok && len(stored.Tabs) > 0 {
		b.tabs.Replace(stored, ActionLoad)
	} else {
		b.tabs.CreateDefaultTab()
		_ = b.persister.Write(b.tabs.State())
	}
	b.replaceURL()
	return b.state
}

// Settle ends the restoration window. It is scheduled one tick after Load.
// If the workspace was edited while restoring, the result is persisted and
// the URL rewritten.
func (b *Bridge) Settle() {
	if b.state != StateRestoringFromURL {
		return
	}
	b.transition(StateLive)
	if !b.dirty {
		return
	}
	b.dirty = false
	_ = b.persister.Write(b.tabs.State())
	b.replaceURL()
}

// Commit records a discrete user action, such as saving or running a query,
// as a navigable history entry.
func (b *Bridge) Commit(reason string) {
	if b.state != StateLive {
		b.logger.Debug("commit ignored before live", "reason", reason, "state", b.state)
		return
	}
	b.logger.Debug("committing history entry", "reason", reason)
	b.pushURL()
}

// PopState applies the workspace a back/forward navigation landed on. An
// embedded snapshot is applied directly; a URL token is decoded first and
// ignored when undecodable. It reports whether state was applied.
func (b *Bridge) PopState(src NavigationSource) bool {
	if b.state == StateUninitialized {
		return false
	}

	state, ok := b.resolve(src)
	if !ok {
		b.logger.Debug("navigation carried no usable workspace")
		return false
	}
	return b.tabs.Replace(state, ActionRestore)
}

// Token encodes the current workspace.
func (b *Bridge) Token() string {
	return b.codec.Encode(b.tabs.State())
}

// Close unsubscribes the bridge from the store.
func (b *Bridge) Close() {
	if b.detach != nil {
		b.detach()
		b.detach = nil
	}
}

func (b *Bridge) resolve(src NavigationSource) (*core.QueryPageState, bool) {
	switch s := src.(type) {
	case Embedded:
		if s.State == nil {
			return nil, false
		}
		return s.State, true
	case URLToken:
		return b.codec.Decode(s.Token)
	default:
		return nil, false
	}
}

func (b *Bridge) onChange(ch Change) {
	if b.state != StateLive {
		b.logger.Debug("url write suppressed", "state", b.state, "action", ch.Action)
		if b.state == StateRestoringFromURL && (ch.Action == ActionEdit || ch.Action == ActionSwitch) {
			b.dirty = true
		}
		return
	}
	switch ch.Action {
	case ActionEdit:
		b.replaceURL()
	case ActionSwitch:
		b.pushURL()
	case ActionRestore, ActionLoad:
		// The URL already reflects the entry being restored.
	}
}

func (b *Bridge) replaceURL() {
	b.history.Replace(Entry{Token: b.Token()})
}

func (b *Bridge) pushURL() {
	state := b.tabs.State()
	b.history.Push(Entry{Token: b.codec.Encode(state), State: state.Clone()})
}

func (b *Bridge) transition(to BridgeState) {
	b.logger.Debug("bridge transition", "from", b.state, "to", to)
	b.state = to
}
