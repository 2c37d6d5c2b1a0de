package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/shaped-ai/playground/internal/config"
	"github.com/shaped-ai/playground/internal/ui/notifier"
	"github.com/shaped-ai/playground/internal/workspace"
	"github.com/shaped-ai/playground/pkg/core"
	"github.com/starfederation/datastar-go/datastar"
)

const otherWindowNotice = "This workspace was changed in another window."

// errUnknownWindow is reported when a request names a window the server
// no longer tracks, typically after a restart or an idle expiry.
var errUnknownWindow = errors.New("unknown window")

// mutateFlag tunes how mutate responds.
type mutateFlag uint8

const (
	// syncEditor re-sends the editor signals and clears the notice. Edits
	// leave the signals alone so in-flight typing is not overwritten.
	syncEditor mutateFlag = 1 << iota
	// publishAlways notifies other windows even when the state is unchanged.
	publishAlways
)

// goScheduler runs deferred work on its own goroutine. The work takes the
// session lock, so it runs once the request holding the lock returns.
type goScheduler struct{}

func (goScheduler) Defer(fn func()) { go fn() }

// Handlers provides HTTP handlers for the workspace feature.
type Handlers struct {
	store        core.PartitionStore
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	windows      *Windows
	defaults     config.TabDefaults
	keepAlive    time.Duration
	logger       *slog.Logger
}

// Config holds the dependencies of the workspace feature.
type Config struct {
	Store        core.PartitionStore
	SessionStore sessions.Store
	Notifier     *notifier.Notifier
	Windows      *Windows
	Defaults     config.TabDefaults
	// KeepAlive is how often a connected updates stream marks its window
	// as seen. Defaults to one minute.
	KeepAlive time.Duration
	Logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(cfg Config) *Handlers {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	keepAlive := cfg.KeepAlive
	if keepAlive <= 0 {
		keepAlive = time.Minute
	}
	windows := cfg.Windows
	if windows == nil {
		windows = NewWindows(30 * time.Minute)
	}
	return &Handlers{
		store:        cfg.Store,
		sessionStore: cfg.SessionStore,
		notifier:     cfg.Notifier,
		windows:      windows,
		defaults:     cfg.Defaults,
		keepAlive:    keepAlive,
		logger:       logger,
	}
}

// Page opens a new window and renders the full page. The q parameter, when
// it decodes to a workspace, wins over the stored partition.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	history := NewScriptHistory("/")
	session := workspace.Open(workspace.Options{
		Store:     h.store,
		Identity:  identityFromRequest(h.sessionStore, r),
		History:   history,
		Scheduler: goScheduler{},
		Defaults:  h.defaults,
		Logger:    h.logger,
	})
	win := &Window{
		ID:        uuid.NewString(),
		Partition: session.Resolver.ResolveKey(),
		Identity:  session.Resolver.Identity(),
		Session:   session,
		History:   history,
	}

	var (
		view pageView
		err  error
	)
	session.Do(func(s *workspace.Session) {
		state := s.Activate(r.URL.Query().Get(workspace.QueryParam))
		h.logger.Debug("window opened", "window", win.ID, "partition", win.Partition, "state", state)
		view, err = newPageView(win, s.Tabs.State(), history.Drain())
	})
	if err != nil {
		session.Close()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.windows.Add(win)

	if err := page(view).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Updates is the long-lived SSE endpoint of a window. It tells the window
// when another window writes to the same partition.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	win, ok := h.windows.Get(signals.WindowID)
	if !ok {
		http.Error(w, errUnknownWindow.Error(), http.StatusNotFound)
		return
	}

	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe(win.Partition, win.ID)
	defer h.notifier.Unsubscribe(updates)

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			h.windows.Get(win.ID)
		case <-updates:
			if err := sse.PatchElementTempl(notice(otherWindowNotice)); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

// Refresh re-renders the window and clears its notice.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, syncEditor, func(*workspace.Session, Signals) error { return nil })
}

// AddTab appends a default tab and activates it.
func (h *Handlers) AddTab(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, syncEditor, func(s *workspace.Session, _ Signals) error {
		s.Tabs.AddTab()
		return nil
	})
}

// UpdateTab applies the editor signals to the tab in the URL.
func (h *Handlers) UpdateTab(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.mutate(w, r, 0, func(s *workspace.Session, signals Signals) error {
		patch, err := signals.TabPatch()
		if err != nil {
			return fmt.Errorf("invalid tab update: %w", err)
		}
		s.Tabs.UpdateTab(id, patch)
		return nil
	})
}

// CloseTab removes the tab in the URL.
func (h *Handlers) CloseTab(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.mutate(w, r, syncEditor, func(s *workspace.Session, _ Signals) error {
		s.Tabs.CloseTab(id)
		return nil
	})
}

// ActivateTab switches to the tab in the URL.
func (h *Handlers) ActivateTab(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.mutate(w, r, syncEditor, func(s *workspace.Session, _ Signals) error {
		s.Tabs.SetActiveTab(id)
		return nil
	})
}

// Save persists the workspace and records a history entry.
func (h *Handlers) Save(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, publishAlways, func(s *workspace.Session, _ Signals) error {
		return s.Save()
	})
}

// Run records the run as a history entry. Executing the query is up to
// whatever consumes the workspace.
func (h *Handlers) Run(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, 0, func(s *workspace.Session, _ Signals) error {
		s.Commit("run")
		return nil
	})
}

// PopState applies a back/forward navigation reported by the browser.
func (h *Handlers) PopState(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, syncEditor, func(s *workspace.Session, signals Signals) error {
		s.Navigate(signals.NavigationSource())
		return nil
	})
}

// Export downloads the window's workspace as a snapshot file.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	win, ok := h.windows.Get(r.URL.Query().Get("window"))
	if !ok {
		http.Error(w, errUnknownWindow.Error(), http.StatusNotFound)
		return
	}
	raw := r.URL.Query().Get("format")
	if raw == "" {
		raw = string(workspace.FormatJSON)
	}
	format, err := workspace.ParseSnapshotFormat(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var data []byte
	win.Session.Do(func(s *workspace.Session) {
		data, err = workspace.MarshalSnapshot(s.Tabs.State(), format)
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	contentType := "application/json"
	if format == workspace.FormatYAML {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "workspace."+string(format)))
	_, _ = w.Write(data)
}

// SetIdentity assumes the identity in the signals and reloads into its
// partition.
func (h *Handlers) SetIdentity(w http.ResponseWriter, r *http.Request) {
	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.switchIdentity(w, r, signals.WindowID, signals.Identity, signals.Persist)
}

// ClearIdentity drops both identity markers and reloads into the default
// partition.
func (h *Handlers) ClearIdentity(w http.ResponseWriter, r *http.Request) {
	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.switchIdentity(w, r, signals.WindowID, "", false)
}

func (h *Handlers) switchIdentity(w http.ResponseWriter, r *http.Request, windowID, identity string, persist bool) {
	// Cookies must be written before the SSE stream flushes the headers.
	if err := writeIdentity(h.sessionStore, w, r, identity, persist); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.windows.Remove(windowID)
	h.logger.Debug("identity changed", "window", windowID, "partition", workspace.PartitionKeyFor(identity))

	sse := datastar.NewSSE(w, r)
	_ = sse.Redirect("/")
}

// mutate runs fn against the requesting window's session and streams the
// result back: the re-rendered workspace, the editor signals when the
// active tab may have changed, and the history writes fn caused.
func (h *Handlers) mutate(w http.ResponseWriter, r *http.Request, flags mutateFlag, fn func(*workspace.Session, Signals) error) {
	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	win, ok := h.windows.Get(signals.WindowID)
	if !ok {
		// The URL still carries the workspace, so a reload restores it.
		sse := datastar.NewSSE(w, r)
		_ = sse.ExecuteScript("window.location.reload()")
		return
	}

	var (
		changed bool
		opErr   error
		view    workspaceView
		edits   *EditorSignals
		scripts []string
	)
	win.Session.Do(func(s *workspace.Session) {
		before := s.Tabs.State()
		opErr = fn(s, signals)
		after := s.Tabs.State()
		changed = before != after

		view = newWorkspaceView(win, after)
		if active, ok := after.ActiveTab(); ok && flags&syncEditor != 0 {
			es := editorSignalsFor(active)
			edits = &es
		}
		scripts = win.History.Drain()
	})

	sse := datastar.NewSSE(w, r)
	if opErr != nil {
		h.logger.Debug("workspace request failed", "window", win.ID, "error", opErr)
		_ = sse.ConsoleError(opErr)
	}
	if err := sse.PatchElementTempl(workspacePanel(view)); err != nil {
		_ = sse.ConsoleError(err)
	}
	if flags&syncEditor != 0 {
		_ = sse.PatchElementTempl(notice(""))
		if edits != nil {
			if err := sse.MarshalAndPatchSignals(edits); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
	for _, script := range scripts {
		if err := sse.ExecuteScript(script); err != nil {
			_ = sse.ConsoleError(err)
		}
	}

	if changed || (opErr == nil && flags&publishAlways != 0) {
		h.notifier.Publish(notifier.Event{Partition: win.Partition, Origin: win.ID})
	}
}
