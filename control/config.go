// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with snapshot reads and reload listeners.

package control

import (
	"maps"
	"reflect"
	"sync"
)

// ConfigStore is a flattened key/value view of the running configuration.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func(snapshot map[string]any)
}

// NewConfigStore initializes an empty config store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{config: make(map[string]any)}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return maps.Clone(cs.config)
}

// Get returns one value.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// SetConfig merges values. Listeners run synchronously, in registration order,
// with the merged snapshot, and only when some value actually changed.
func (cs *ConfigStore) SetConfig(values map[string]any) {
	cs.mu.Lock()
	changed := false
	for k, v := range values {
		if old, ok := cs.config[k]; !ok || !reflect.DeepEqual(old, v) {
			cs.config[k] = v
			changed = true
		}
	}
	if !changed {
		cs.mu.Unlock()
		return
	}
	snapshot := maps.Clone(cs.config)
	listeners := append([]func(map[string]any){}, cs.listeners...)
	cs.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

// OnReload registers a listener called after each effective change.
func (cs *ConfigStore) OnReload(fn func(snapshot map[string]any)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
