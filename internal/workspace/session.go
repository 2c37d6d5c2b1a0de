package workspace

import (
	"log/slog"
	"sync"

	"github.com/shaped-ai/playground/internal/config"
	"github.com/shaped-ai/playground/pkg/core"
)

// Options configures a Session.
type Options struct {
	// Store holds the persisted partitions. Defaults to a MemoryStore.
	Store core.PartitionStore
	// Identity supplies the assumed-identity markers. May be nil.
	Identity IdentityProvider
	// History receives URL rewrites and pushed entries. Defaults to a MemoryHistory.
	History History
	// Scheduler runs the deferred restoration settle. Defaults to an internal TickQueue.
	Scheduler Scheduler
	// Defaults is the template for new tabs.
	Defaults config.TabDefaults
	// IDGenerator overrides tab id generation.
	IDGenerator func() string
	Logger      *slog.Logger
}

// Session wires the codec, partition resolver, tab store, persister and
// bridge for one workspace.
type Session struct {
	mu sync.Mutex

	Tabs      *TabStore
	Bridge    *Bridge
	Codec     *Codec
	Persister *Persister
	Resolver  *PartitionResolver

	history   History
	scheduler Scheduler
	ticks     *TickQueue
	detach    func()
	logger    *slog.Logger
}

// Open builds a session. Nothing is read or written until Activate.
func Open(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}
	history := opts.History
	if history == nil {
		history = NewMemoryHistory("")
	}

	s := &Session{
		history: history,
		logger:  logger,
	}
	if opts.Scheduler != nil {
		s.scheduler = opts.Scheduler
	} else {
		s.ticks = &TickQueue{}
		s.scheduler = s.ticks
	}

	s.Codec = NewCodec(logger)
	s.Resolver = NewPartitionResolver(opts.Identity)
	s.Tabs = NewTabStore(
		WithTabDefaults(opts.Defaults),
		WithIDGenerator(opts.IDGenerator),
		WithStoreLogger(logger),
	)
	s.Persister = NewPersister(store, s.Resolver, logger)
	s.Bridge = NewBridge(s.Tabs, s.Codec, history, s.Persister, logger)
	s.detach = s.Persister.Attach(s.Tabs, s.Bridge.PersistenceAllowed)
	return s
}

// Activate loads the workspace from the URL token or storage and schedules
// the end of the restoration window.
func (s *Session) Activate(token string) BridgeState {
	state := s.Bridge.Load(token)
	if state == StateRestoringFromURL {
		s.scheduler.Defer(func() {
			s.Do(func(*Session) { s.Bridge.Settle() })
		})
	}
	s.logger.Debug("workspace activated", "state", state, "partition", s.Resolver.ResolveKey())
	return state
}

// Tick runs deferred work when the session owns its scheduler. It returns
// the number of functions run.
func (s *Session) Tick() int {
	if s.ticks == nil {
		return 0
	}
	return s.ticks.RunPending()
}

// Do runs fn while holding the session lock. Every access from concurrent
// callers must go through Do.
func (s *Session) Do(fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

// Save persists the workspace explicitly and records a history entry.
func (s *Session) Save() error {
	if err := s.Persister.Write(s.Tabs.State()); err != nil {
		return err
	}
	s.Bridge.Commit("save")
	return nil
}

// Commit records a discrete action, such as a query run, in history.
func (s *Session) Commit(reason string) {
	s.Bridge.Commit(reason)
}

// Navigate applies a back/forward navigation.
func (s *Session) Navigate(src NavigationSource) bool {
	return s.Bridge.PopState(src)
}

// ShareURL returns base with the current workspace token attached.
func (s *Session) ShareURL(base string) (string, error) {
	return WithToken(base, s.Bridge.Token())
}

// History returns the session's history.
func (s *Session) History() History {
	return s.history
}

// Close detaches the persister and bridge from the store.
func (s *Session) Close() {
	if s.detach != nil {
		s.detach()
		s.detach = nil
	}
	s.Bridge.Close()
}
