// File: api/control.go
// Package api defines Control interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Control manages the flattened runtime configuration and exported counters
// of a job system instance.
type Control interface {
	// GetConfig returns a snapshot of dotted config keys (e.g. "log.level").
	GetConfig() map[string]any
	// SetConfig merges values and notifies reload listeners on change.
	SetConfig(cfg map[string]any) error
	// Stats returns metrics and probe output.
	Stats() map[string]any
	OnReload(fn func())
	RegisterDebugProbe(name string, fn func() any)
}
