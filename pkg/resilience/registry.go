package resilience

import "sync"

// Registry hands out one breaker per operation name. It is owned by whichever
// component wires the protected operations; there is no package-level instance.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{breakers: make(map[string]*Breaker)}
}

// Get returns the breaker registered under settings.Name, creating it on first
// use. Later calls with the same name return the existing instance regardless
// of settings.
func (r *Registry) Get(settings Settings) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[settings.Name]; ok {
		return b
	}
	b := NewBreaker(settings)
	r.breakers[settings.Name] = b
	return b
}

// Names returns the registered breaker names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	return names
}
