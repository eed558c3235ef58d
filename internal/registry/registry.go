// Package registry is the process-wide store of per-cache configuration.
// It is published to once per cache name at Supervisor.Start and read on
// every subsequent cache operation. Lookups are O(1) map reads taken
// under a shared read lock; they are not lock-free — grounded on the
// builder registry's name-to-implementation map, generalized from
// builders to configs.
package registry

import (
	"fmt"
	"sync"

	"github.com/adjust/file-cache/internal/config"
)

// ErrUnknownCache is returned when a name has no published config.
var ErrUnknownCache = fmt.Errorf("registry: unknown cache")

var (
	mu    sync.RWMutex
	store = make(map[string]config.Config)
)

// Store publishes cfg under name, overwriting any previous registration.
// Named caches are started once at process boot; overwriting is only
// exercised by tests and by a process that restarts a single cache.
func Store(name string, cfg config.Config) {
	mu.Lock()
	defer mu.Unlock()
	store[name] = cfg
}

// Get returns the full published config for name.
func Get(name string) (config.Config, error) {
	mu.RLock()
	defer mu.RUnlock()
	cfg, ok := store[name]
	if !ok {
		return config.Config{}, fmt.Errorf("%w: %s", ErrUnknownCache, name)
	}
	return cfg, nil
}

// GetField returns a single field of the published config for name.
func GetField(name, key string) (any, error) {
	cfg, err := Get(name)
	if err != nil {
		return nil, err
	}
	return cfg.Field(key)
}

// Remove deletes a cache's published config, used on shutdown.
func Remove(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(store, name)
}

// Names returns every currently registered cache name, in no particular
// order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(store))
	for name := range store {
		names = append(names, name)
	}
	return names
}
