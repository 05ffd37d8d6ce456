// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, hot-reload, runtime metrics and debug introspection for the
// job system.
//
// Provides:
//   - FileConfig loading from YAML or TOML with HIOLOAD_JOBS_* env overrides
//   - ConfigStore: flattened key/value snapshot with reload listeners
//   - Watcher: fsnotify-driven reload of the config file into a ConfigStore
//   - MetricsRegistry and DebugProbes for state export
//
// Platform probes are build-tag-partitioned.
package control
