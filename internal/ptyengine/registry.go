package ptyengine

import (
	"sync"

	"github.com/kildhq/kild/internal/kilderr"
)

// Registry owns the map of daemon_session_id -> ManagedPty (spec.md
// §4.3's "Owns a map daemon_session_id → ManagedPty").
type Registry struct {
	mu   sync.RWMutex
	ptys map[string]*ManagedPty
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ptys: make(map[string]*ManagedPty)}
}

// Spawn opens a new PTY and registers it under opts.ID.
func (r *Registry) Spawn(opts SpawnOptions) (*ManagedPty, error) {
	mp, err := Spawn(opts)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.ptys[opts.ID] = mp
	r.mu.Unlock()
	return mp, nil
}

// Get looks up a managed PTY by id.
func (r *Registry) Get(id string) (*ManagedPty, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mp, ok := r.ptys[id]
	if !ok {
		return nil, kilderr.SessionNotFound(id)
	}
	return mp, nil
}

// Remove drops id from the registry. Removal only happens on child exit
// or explicit close (spec.md §4.5 invariant) — callers must not call
// this until one of those has occurred.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ptys, id)
}

// IDs returns the currently registered daemon session ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ptys))
	for id := range r.ptys {
		out = append(out, id)
	}
	return out
}
