package sessions

import "sync"

// Registry hands out one Manager per UI surface (a browser tab family sharing
// a surface cookie). It replaces a hidden process-wide singleton: the
// composition root owns the Registry and passes it where it is needed.
type Registry struct {
	cfg  Config
	opts []Option

	mu       sync.Mutex
	managers map[string]*Manager
}

func NewRegistry(cfg Config, opts ...Option) *Registry {
	return &Registry{
		cfg:      cfg,
		opts:     opts,
		managers: make(map[string]*Manager),
	}
}

// Get returns the Manager for key, constructing it on first access.
func (r *Registry) Get(key string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.managers[key]; ok {
		return m
	}
	m := NewManager(r.cfg, r.opts...)
	r.managers[key] = m
	return m
}

// Lookup returns the Manager for key without creating one.
func (r *Registry) Lookup(key string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.managers[key]
	return m, ok
}

// Reset reinitialises the Manager for key, if present.
func (r *Registry) Reset(key string) {
	if m, ok := r.Lookup(key); ok {
		m.ResetSession()
	}
}

// Remove stops monitoring for key and forgets its Manager. Removing an
// unknown key is a no-op.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	m, ok := r.managers[key]
	delete(r.managers, key)
	r.mu.Unlock()

	if ok {
		m.StopMonitoring()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.managers)
}

// Close stops every monitoring loop and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	managers := r.managers
	r.managers = make(map[string]*Manager)
	r.mu.Unlock()

	for _, m := range managers {
		m.StopMonitoring()
	}
}
