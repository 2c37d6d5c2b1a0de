package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaped-ai/playground/internal/workspace"
)

func newTestWindow(id string) *Window {
	history := NewScriptHistory("/")
	return &Window{
		ID:      id,
		Session: workspace.Open(workspace.Options{History: history}),
		History: history,
	}
}

func TestWindows_GetTouchesAndSweepExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ws := NewWindows(10 * time.Minute)
	ws.now = func() time.Time { return now }

	ws.Add(newTestWindow("idle"))
	ws.Add(newTestWindow("busy"))

	now = now.Add(8 * time.Minute)
	_, ok := ws.Get("busy")
	require.True(t, ok)

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, ws.Sweep())

	_, ok = ws.Get("idle")
	assert.False(t, ok, "idle window should have expired")
	_, ok = ws.Get("busy")
	assert.True(t, ok, "recently seen window should survive")
}

func TestWindows_RemoveClosesSession(t *testing.T) {
	ws := NewWindows(time.Hour)
	win := newTestWindow("w1")
	ws.Add(win)
	win.Session.Activate("")
	win.History.Drain()

	ws.Remove("w1")
	assert.Equal(t, 0, ws.Len())

	// A closed session no longer records URL writes.
	win.Session.Tabs.AddTab()
	assert.Zero(t, win.History.Pending())

	ws.Remove("missing")
}

func TestWindows_RunStopsOnCancel(t *testing.T) {
	ws := NewWindows(time.Nanosecond)
	ws.Add(newTestWindow("w1"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- ws.Run(ctx, time.Millisecond) }()

	require.Eventually(t, func() bool { return ws.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestWindows_CloseAll(t *testing.T) {
	ws := NewWindows(time.Hour)
	ws.Add(newTestWindow("a"))
	ws.Add(newTestWindow("b"))

	ws.CloseAll()
	assert.Equal(t, 0, ws.Len())
}
