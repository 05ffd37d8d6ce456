// File: facade/hioload.go
// Unified facade layer for hioload-jobs.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// HioloadJobs wires a JobSystem together with logging, the control layer, an
// executor adapter, Prometheus export and optional config file hot reload,
// all from one Config.

package facade

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/momentics/hioload-jobs/adapters"
	"github.com/momentics/hioload-jobs/api"
	"github.com/momentics/hioload-jobs/control"
	"github.com/momentics/hioload-jobs/core/jobs"
	"github.com/momentics/hioload-jobs/internal/logging"
	promexport "github.com/momentics/hioload-jobs/observability/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Config holds parameters fixed for the lifetime of a HioloadJobs. Only the
// log level changes at runtime, through Control or the watched config file.
type Config struct {
	Threads              int             // Pool workers; 0 derives from hardware
	AdoptableThreads     int             // Thread states reserved for Adopt
	AssumeHyperThreading bool            // Halve CPU count when deriving Threads
	PinThreads           bool            // Pin workers to CPUs
	Seed                 uint64          // Steal PRNG seed; 0 is random
	LogLevel             string          // trace, debug, info, warn, error, off
	LogFormat            string          // console or json
	LogOutput            io.Writer       // Log sink; nil means stderr
	EnableMetrics        bool            // Register the Prometheus collector
	MetricsNamespace     string          // Prometheus namespace
	Registerer           prom.Registerer // nil means the default registerer
	EnableDebug          bool            // Register job system debug probes
	ConfigPath           string          // Watched for log level changes if set
	StatsInterval        time.Duration   // Stats mirroring period into Control; 0 disables
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		AdoptableThreads:     1,         // One caller goroutine may adopt
		AssumeHyperThreading: true,      // Two logical CPUs per core
		LogLevel:             "info",    // Quiet unless something is wrong
		LogFormat:            "console", // Human-readable logs
		EnableMetrics:        false,     // Opt-in Prometheus export
		MetricsNamespace:     "hioload_jobs",
		EnableDebug:          true,        // Probes are evaluated only on demand
		StatsInterval:        time.Second, // Control metrics refresh
	}
}

// FromFile maps a loaded file configuration onto a facade Config.
func FromFile(fc control.FileConfig) *Config {
	cfg := DefaultConfig()
	cfg.Threads = fc.Jobs.Threads
	cfg.AdoptableThreads = fc.Jobs.AdoptableThreads
	cfg.AssumeHyperThreading = fc.Jobs.AssumeHyperThreading
	cfg.PinThreads = fc.Jobs.PinThreads
	cfg.Seed = fc.Jobs.Seed
	cfg.LogLevel = fc.Log.Level
	cfg.LogFormat = fc.Log.Format
	cfg.EnableMetrics = fc.Metrics.Enabled
	cfg.MetricsNamespace = fc.Metrics.Namespace
	return cfg
}

// Load reads path, applies HIOLOAD_JOBS_* overrides and returns a Config that
// watches path once started.
func Load(path string) (*Config, error) {
	fc, err := control.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := control.ApplyEnv(&fc); err != nil {
		return nil, err
	}
	cfg := FromFile(fc)
	cfg.ConfigPath = path
	return cfg, nil
}

// HioloadJobs is the main facade type.
type HioloadJobs struct {
	config    *Config
	logger    zerolog.Logger
	level     *logging.LevelVar
	js        *jobs.JobSystem
	control   *adapters.ControlAdapter
	executor  *adapters.ExecutorAdapter
	collector *promexport.Collector

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*HioloadJobs)(nil)

// New builds every component. Background work starts with Start.
func New(cfg *Config) (*HioloadJobs, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	h := &HioloadJobs{config: cfg}
	h.logger, h.level = logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogOutput})

	jcfg := jobs.DefaultConfig()
	jcfg.ThreadCount = cfg.Threads
	jcfg.AdoptableThreads = cfg.AdoptableThreads
	jcfg.AssumeHyperThreading = cfg.AssumeHyperThreading
	jcfg.PinThreads = cfg.PinThreads
	jcfg.Seed = cfg.Seed
	jcfg.Logger = &h.logger
	js, err := jobs.New(jcfg)
	if err != nil {
		return nil, fmt.Errorf("job system init failure: %w", err)
	}
	h.js = js
	h.executor = adapters.NewExecutorAdapter(js)
	h.control = adapters.NewControlAdapter()

	if cfg.EnableMetrics {
		c, err := promexport.Register(cfg.Registerer, promexport.NewCollector(cfg.MetricsNamespace, js))
		if err != nil {
			js.Close()
			return nil, fmt.Errorf("metrics registration failure: %w", err)
		}
		h.collector = c
	}
	if cfg.EnableDebug {
		h.control.RegisterDebugProbe("jobs.stats", func() any { return js.Stats() })
		h.control.RegisterDebugProbe("jobs.root", func() any { return js.RootJob().String() })
	}

	h.control.Store().OnReload(h.applyReload)
	// jobs.* hold configured values (0 threads means auto) and are overwritten
	// by file reloads; runtime.* hold what the job system actually runs with.
	h.control.SetConfig(map[string]any{
		"jobs.threads":              cfg.Threads,
		"jobs.adoptable_threads":    cfg.AdoptableThreads,
		"runtime.threads":           js.ThreadCount(),
		"runtime.adoptable_threads": js.AdoptableThreadCount(),
		"log.level":                 h.level.Level().String(),
		"metrics.enabled":           cfg.EnableMetrics,
	})
	h.logger.Info().Int("threads", js.ThreadCount()).Msg("hioload-jobs ready")
	return h, nil
}

func (h *HioloadJobs) applyReload(snapshot map[string]any) {
	s, ok := snapshot["log.level"].(string)
	if !ok {
		return
	}
	lvl := logging.ParseLevel(s, h.level.Level())
	if lvl != h.level.Level() {
		h.level.Set(lvl)
		h.logger.Info().Str("level", lvl.String()).Msg("log level changed")
	}
}

// Start launches the config watcher and stats mirroring. Subsequent calls have
// no effect.
func (h *HioloadJobs) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	if h.config.ConfigPath != "" {
		w := control.NewWatcher(h.config.ConfigPath, h.control.Store(), h.logger)
		if err := w.Reload(); err != nil {
			cancel()
			return err
		}
		g.Go(func() error { return w.Run(ctx) })
	}
	if h.config.StatsInterval > 0 {
		g.Go(func() error {
			tick := time.NewTicker(h.config.StatsInterval)
			defer tick.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-tick.C:
					h.SyncMetrics()
				}
			}
		})
	}
	h.cancel = cancel
	h.group = g
	h.started = true
	return nil
}

// SyncMetrics copies the current job system stats into the Control metrics.
func (h *HioloadJobs) SyncMetrics() {
	st := h.js.Stats()
	h.control.Metrics().SetAll("jobs", map[string]any{
		"threads":         st.Threads,
		"adopted_threads": st.AdoptedThreads,
		"active_tasks":    st.ActiveTasks,
		"queued_tasks":    st.QueuedTasks,
		"executed":        st.Executed,
		"stolen":          st.Stolen,
		"steal_misses":    st.StealMisses,
		"injected":        st.Injected,
		"sleeps":          st.Sleeps,
		"pool_in_use":     st.PoolInUse,
		"pool_exhausted":  st.PoolExhausted,
	})
}

// Stop halts background work, waits for closures submitted through Executor
// and closes the job system. Tasks left queued are reported as an error.
func (h *HioloadJobs) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var bgErr error
	if h.started {
		h.cancel()
		bgErr = h.group.Wait()
		h.started = false
	}
	h.executor.Close()
	if err := h.js.Close(); err != nil {
		return err
	}
	return bgErr
}

// Shutdown implements api.GracefulShutdown by delegating to Stop().
func (h *HioloadJobs) Shutdown() error {
	return h.Stop()
}

// JobSystem returns the scheduler.
func (h *HioloadJobs) JobSystem() *jobs.JobSystem { return h.js }

// Executor returns the closure executor backed by the scheduler.
func (h *HioloadJobs) Executor() api.Executor { return h.executor }

// Submit dispatches a closure through the executor.
func (h *HioloadJobs) Submit(task func()) error { return h.executor.Submit(task) }

// GetControl returns the Control interface for config and metrics.
func (h *HioloadJobs) GetControl() api.Control { return h.control }

// GetDebugAPI returns the probe registry.
func (h *HioloadJobs) GetDebugAPI() api.Debug { return h.control }

// Logger returns the facade logger.
func (h *HioloadJobs) Logger() zerolog.Logger { return h.logger }

// Collector returns the registered Prometheus collector, nil if metrics are disabled.
func (h *HioloadJobs) Collector() *promexport.Collector { return h.collector }
