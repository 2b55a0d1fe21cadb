package devices

import (
	"fmt"
	"sync"
)

// Registry caches resolved targets by serial so repeated lookups (CLI
// commands, server RPCs, worker construction) reuse one instance.
type Registry struct {
	mu      sync.RWMutex
	adb     *Adb
	targets map[string]Target
}

// NewRegistry creates a registry backed by the given adb runner.
func NewRegistry(adb *Adb) *Registry {
	return &Registry{
		adb:     adb,
		targets: make(map[string]Target),
	}
}

// Find returns the target with the given serial, discovering it through adb
// on a cache miss.
func (r *Registry) Find(serial string) (Target, error) {
	if serial == "" {
		return nil, fmt.Errorf("device serial is required")
	}

	r.mu.RLock()
	target, ok := r.targets[serial]
	r.mu.RUnlock()
	if ok {
		return target, nil
	}

	all, err := ListTargets(r.adb)
	if err != nil {
		return nil, fmt.Errorf("error listing targets: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range all {
		r.targets[t.Serial()] = t
	}
	if target, ok = r.targets[serial]; ok {
		return target, nil
	}
	return nil, fmt.Errorf("target not found: %s", serial)
}

// All refreshes the cache from adb and returns every online target.
func (r *Registry) All() ([]Target, error) {
	all, err := ListTargets(r.adb)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	for _, t := range all {
		r.targets[t.Serial()] = t
	}
	r.mu.Unlock()
	return all, nil
}
