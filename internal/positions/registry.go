// Package positions tracks currently open bracket trades for observability.
// It is never consulted for control flow: each worker owns its record and
// the registry only ever receives whole-value puts and removals from it.
package positions

import (
	"sort"
	"sync"

	"bracket-trader/internal/types"
)

type Registry struct {
	mu     sync.Mutex
	trades map[string]types.TradeRecord
}

func NewRegistry() *Registry {
	return &Registry{trades: make(map[string]types.TradeRecord)}
}

// Put inserts or replaces the record for a trade. Records are stored by
// value so no caller ever shares mutable state through the registry.
func (r *Registry) Put(rec types.TradeRecord) {
	r.mu.Lock()
	r.trades[rec.ID] = rec
	r.mu.Unlock()
}

// Remove drops a trade from the registry when its worker terminates.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.trades, id)
	r.mu.Unlock()
}

// Get returns a copy of one record, if present.
func (r *Registry) Get(id string) (types.TradeRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.trades[id]
	return rec, ok
}

// Len returns the number of tracked trades.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trades)
}

// Snapshot returns all tracked trades ordered by open time, oldest first.
func (r *Registry) Snapshot() []types.TradeRecord {
	r.mu.Lock()
	out := make([]types.TradeRecord, 0, len(r.trades))
	for _, rec := range r.trades {
		out = append(out, rec)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}
