package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/shaped-ai/playground/internal/workspace"
)

// Window is one open browser window: its own workspace session and the
// history recorder that turns URL writes into browser scripts.
type Window struct {
	ID        string
	Partition string
	Identity  string
	Session   *workspace.Session
	History   *ScriptHistory

	lastSeen time.Time
}

// Windows tracks open windows and expires those that stop talking to the
// server.
type Windows struct {
	mu   sync.Mutex
	byID map[string]*Window
	ttl  time.Duration
	now  func() time.Time
}

// NewWindows creates a registry that forgets windows idle for longer than ttl.
func NewWindows(ttl time.Duration) *Windows {
	return &Windows{
		byID: make(map[string]*Window),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Add registers w.
func (ws *Windows) Add(w *Window) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	w.lastSeen = ws.now()
	ws.byID[w.ID] = w
}

// Get returns the window with id and marks it as seen.
func (ws *Windows) Get(id string) (*Window, bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	w, ok := ws.byID[id]
	if ok {
		w.lastSeen = ws.now()
	}
	return w, ok
}

// Remove closes and forgets the window with id.
func (ws *Windows) Remove(id string) {
	ws.mu.Lock()
	w, ok := ws.byID[id]
	delete(ws.byID, id)
	ws.mu.Unlock()
	if ok {
		closeWindow(w)
	}
}

// Len returns the number of open windows.
func (ws *Windows) Len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.byID)
}

// Sweep closes windows idle for longer than the ttl and returns how many
// were removed.
func (ws *Windows) Sweep() int {
	ws.mu.Lock()
	cutoff := ws.now().Add(-ws.ttl)
	var expired []*Window
	for id, w := range ws.byID {
		if w.lastSeen.Before(cutoff) {
			expired = append(expired, w)
			delete(ws.byID, id)
		}
	}
	ws.mu.Unlock()

	for _, w := range expired {
		closeWindow(w)
	}
	return len(expired)
}

// Run sweeps every interval until ctx is cancelled.
func (ws *Windows) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			ws.Sweep()
		}
	}
}

// CloseAll closes every window.
func (ws *Windows) CloseAll() {
	ws.mu.Lock()
	all := ws.byID
	ws.byID = make(map[string]*Window)
	ws.mu.Unlock()

	for _, w := range all {
		closeWindow(w)
	}
}

func closeWindow(w *Window) {
	w.Session.Do(func(s *workspace.Session) { s.Close() })
}
