package session

import (
	"context"
	"sync"

	"zapcrm/messaging-gateway/internal/domain/tenant"
)

// Registry owns the per-tenant managers. One manager exists per
// configuration id; tenants do not share connection state.
type Registry struct {
	opts ManagerOptions

	mu       sync.Mutex
	managers map[string]*Manager
}

func NewRegistry(opts ManagerOptions) *Registry {
	return &Registry{
		opts:     opts,
		managers: make(map[string]*Manager),
	}
}

// GetOrCreate returns the manager for the configuration, creating it on
// first use.
func (r *Registry) GetOrCreate(cfg *tenant.Configuration) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mgr, ok := r.managers[cfg.ID]; ok {
		return mgr
	}
	mgr := NewManager(cfg, r.opts)
	r.managers[cfg.ID] = mgr
	return mgr
}

// Manager returns the manager for a configuration id, if one exists in this
// process.
func (r *Registry) Manager(configID string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mgr, ok := r.managers[configID]
	return mgr, ok
}

// StopAll stops every managed session, used during shutdown.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.Lock()
	managers := make([]*Manager, 0, len(r.managers))
	for _, mgr := range r.managers {
		managers = append(managers, mgr)
	}
	r.mu.Unlock()

	for _, mgr := range managers {
		_ = mgr.Stop(ctx)
	}
}
