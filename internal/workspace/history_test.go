package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryHistory_PushBackForward(t *testing.T) {
	h := NewMemoryHistory("t0")
	snapshot := twoTabState()

	h.Push(Entry{Token: "t1", State: snapshot})
	h.Push(Entry{Token: "t2"})
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 2, h.Index())

	src, ok := h.Back()
	require.True(t, ok)
	embedded, isEmbedded := src.(Embedded)
	require.True(t, isEmbedded)
	assert.Equal(t, snapshot, embedded.State)
	assert.NotSame(t, snapshot, embedded.State)

	src, ok = h.Back()
	require.True(t, ok)
	assert.Equal(t, URLToken{Token: "t0"}, src)

	_, ok = h.Back()
	assert.False(t, ok)

	src, ok = h.Forward()
	require.True(t, ok)
	assert.IsType(t, Embedded{}, src)
}

func TestMemoryHistory_PushTruncatesForward(t *testing.T) {
	h := NewMemoryHistory("a")
	h.Push(Entry{Token: "b"})
	h.Push(Entry{Token: "c"})
	h.Back()
	h.Back()

	h.Push(Entry{Token: "d"})

	assert.Equal(t, 2, h.Len())
	assert.Equal(t, "d", h.Current().Token)
	_, ok := h.Forward()
	assert.False(t, ok)
}

func TestMemoryHistory_ReplaceDropsAttachedState(t *testing.T) {
	h := NewMemoryHistory("")
	h.Push(Entry{Token: "a", State: twoTabState()})

	h.Replace(Entry{Token: "b"})

	assert.Equal(t, Entry{Token: "b"}, h.Current())
	assert.Equal(t, 2, h.Len())
}

func TestTickQueue(t *testing.T) {
	var q TickQueue
	var order []string

	q.Defer(func() {
		order = append(order, "first")
		q.Defer(func() { order = append(order, "nested") })
	})
	q.Defer(func() { order = append(order, "second") })

	assert.Equal(t, 2, q.RunPending())
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 1, q.Len())

	assert.Equal(t, 1, q.RunPending())
	assert.Equal(t, []string{"first", "second", "nested"}, order)
	assert.Equal(t, 0, q.RunPending())
}
