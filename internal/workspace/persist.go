package workspace

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shaped-ai/playground/pkg/core"
)

// Persister mirrors store changes into the resolved storage partition.
// Writes happen only while the gate allows them; failures are logged and
// never propagated.
type Persister struct {
	store    core.PartitionStore
	resolver *PartitionResolver
	logger   *slog.Logger
}

// NewPersister creates a persister writing to store under the key chosen
// by resolver.
func NewPersister(store core.PartitionStore, resolver *PartitionResolver, logger *slog.Logger) *Persister {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Persister{store: store, resolver: resolver, logger: logger}
}

// Attach subscribes to tabs. gate is consulted on every change; a nil gate
// always allows writes. Snapshots applied by ActionLoad came from the
// store and are never written back.
func (p *Persister) Attach(tabs *TabStore, gate func() bool) func() {
	return tabs.Subscribe(func(ch Change) {
		if ch.Action == ActionLoad {
			return
		}
		if gate != nil && !gate() {
			p.logger.Debug("persistence suppressed", "action", ch.Action)
			return
		}
		_ = p.Write(ch.Next)
	})
}

// Write stores state in the current partition.
func (p *Persister) Write(state *core.QueryPageState) error {
	key := p.resolver.ResolveKey()
	record, err := json.Marshal(state)
	if err != nil {
		p.logger.Warn("failed to serialize workspace", "key", key, "error", err)
		return fmt.Errorf("failed to serialize workspace: %w", err)
	}
	if err := p.store.Save(key, record); err != nil {
		p.logger.Warn("failed to persist workspace", "key", key, "error", err)
		return fmt.Errorf("failed to persist workspace: %w", err)
	}
	p.logger.Debug("workspace persisted", "key", key, "bytes", len(record))
	return nil
}

// Load reads the current partition. A read error, a missing record or a
// malformed record all report false.
func (p *Persister) Load() (*core.QueryPageState, bool) {
	key := p.resolver.ResolveKey()
	record, err := p.store.Load(key)
	if err != nil {
		p.logger.Warn("failed to read stored workspace", "key", key, "error", err)
		return nil, false
	}
	if record == nil {
		return nil, false
	}

	var state core.QueryPageState
	if err := json.Unmarshal(record, &state); err != nil {
		p.logger.Warn("ignoring malformed stored workspace", "key", key, "error", err)
		return nil, false
	}
	if err := state.Validate(); err != nil {
		p.logger.Warn("ignoring malformed stored workspace", "key", key, "error", err)
		return nil, false
	}
	return &state, true
}

// Clear removes the current partition's record.
func (p *Persister) Clear() error {
	key := p.resolver.ResolveKey()
	if err := p.store.Delete(key); err != nil {
		return fmt.Errorf("failed to clear workspace %s: %w", key, err)
	}
	return nil
}
