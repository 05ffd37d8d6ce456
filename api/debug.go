// Package api
// Author: momentics
//
// Live introspection of scheduler state.

package api

// Debug exposes named probes evaluated on demand.
type Debug interface {
	// DumpState evaluates every registered probe.
	DumpState() map[string]any

	// RegisterProbe adds or replaces a probe.
	RegisterProbe(name string, fn func() any)
}
