package workspace

import (
	"errors"
	"testing"

	"github.com/shaped-ai/playground/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore rejects every operation.
type failingStore struct {
	err error
}

func (f failingStore) Load(string) ([]byte, error) { return nil, f.err }
func (f failingStore) Save(string, []byte) error   { return f.err }
func (f failingStore) Delete(string) error         { return f.err }
func (f failingStore) Keys() ([]string, error)     { return nil, f.err }

func TestPersister_WriteAndLoad(t *testing.T) {
	store := NewMemoryStore()
	p := NewPersister(store, NewPartitionResolver(StaticIdentity{Session: "alice"}), testutil.NewTestLogger(t))

	require.NoError(t, p.Write(twoTabState()))

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"query_page_state:alice"}, keys)

	got, ok := p.Load()
	require.True(t, ok)
	assert.True(t, twoTabState().Equal(got))

	require.NoError(t, p.Clear())
	_, ok = p.Load()
	assert.False(t, ok)
}

func TestPersister_LoadTreatsBadRecordsAsAbsent(t *testing.T) {
	tests := []struct {
		name   string
		record string
	}{
		{name: "not json", record: "{tabs:"},
		{name: "wrong type", record: `{"tabs":"t1"}`},
		{name: "duplicate ids", record: `{"tabs":[{"id":"a","language":"sql"},{"id":"a","language":"sql"}],"activeTabId":"a"}`},
		{name: "unknown language", record: `{"tabs":[{"id":"a","language":"cobol"}],"activeTabId":"a"}`},
		{name: "non-scalar parameter", record: `{"tabs":[{"id":"a","parameterValues":{"x":[1]}}],"activeTabId":"a"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			require.NoError(t, store.Save(DefaultPartitionKey, []byte(tt.record)))
			p := NewPersister(store, NewPartitionResolver(nil), testutil.NewTestLogger(t))

			got, ok := p.Load()
			assert.False(t, ok)
			assert.Nil(t, got)
		})
	}
}

func TestPersister_StorageFailuresAreNotFatal(t *testing.T) {
	boom := errors.New("quota exceeded")
	p := NewPersister(failingStore{err: boom}, NewPartitionResolver(nil), testutil.NewTestLogger(t))

	err := p.Write(twoTabState())
	assert.ErrorIs(t, err, boom)

	_, ok := p.Load()
	assert.False(t, ok)

	// Attached writes swallow the error.
	tabs := NewTabStore()
	p.Attach(tabs, nil)
	assert.NotPanics(t, func() { tabs.AddTab() })
}

func TestPersister_AttachRespectsGate(t *testing.T) {
	store := NewMemoryStore()
	p := NewPersister(store, NewPartitionResolver(nil), testutil.NewTestLogger(t))
	tabs := NewTabStore(WithIDGenerator(sequentialIDs("tab-")))

	open := false
	detach := p.Attach(tabs, func() bool { return open })

	tabs.AddTab()
	assert.Equal(t, 0, store.Writes())

	open = true
	tabs.AddTab()
	assert.Equal(t, 1, store.Writes())

	detach()
	tabs.AddTab()
	assert.Equal(t, 1, store.Writes())
}
