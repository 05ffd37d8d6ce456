package facade_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/hioload-jobs/control"
	"github.com/momentics/hioload-jobs/core/jobs"
	"github.com/momentics/hioload-jobs/facade"
	prom "github.com/prometheus/client_golang/prometheus"
)

func testConfig() *facade.Config {
	cfg := facade.DefaultConfig()
	cfg.Threads = 2
	cfg.LogOutput = &bytes.Buffer{}
	cfg.StatsInterval = 0
	return cfg
}

func TestHioloadJobsLifecycle(t *testing.T) {
	cfg := testConfig()
	cfg.EnableMetrics = true
	cfg.Registerer = prom.NewRegistry()
	h, err := facade.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}

	var counter atomic.Int32
	for i := 0; i < 100; i++ {
		if err := h.Submit(func() { counter.Add(1) }); err != nil {
			t.Fatal(err)
		}
	}
	h.Executor().Wait()
	if counter.Load() != 100 {
		t.Fatalf("counter = %d, want 100", counter.Load())
	}

	js := h.JobSystem()
	sum := make([]uint64, 1000)
	js.RunAndWait(jobs.ParallelFor(js, jobs.NoTask, 0, 1000, jobs.NewCountSplitter(32), func(start, count uint32) {
		for i := start; i < start+count; i++ {
			sum[i] = uint64(i)
		}
	}))

	if sum[999] != 999 {
		t.Errorf("sum[999] = %d", sum[999])
	}

	h.SyncMetrics()
	stats := h.GetControl().Stats()
	if executed, _ := stats["jobs.executed"].(uint64); executed < 101 {
		t.Errorf("jobs.executed = %v, want >= 101", stats["jobs.executed"])
	}
	if _, ok := stats["debug.jobs.stats"]; !ok {
		t.Error("jobs.stats probe missing")
	}
	if h.Collector() == nil {
		t.Error("collector not registered")
	}
	if err := h.Shutdown(); err != nil {
		t.Fatal(err)
	}
}

func TestHioloadJobsLogLevelReload(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig()
	cfg.LogOutput = &buf
	cfg.LogLevel = "warn"
	cfg.LogFormat = "json"
	h, err := facade.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Stop()

	log := h.Logger()
	log.Info().Msg("before")
	h.GetControl().SetConfig(map[string]any{"log.level": "info"})
	log.Info().Msg("after")

	out := buf.String()
	if strings.Contains(out, `"before"`) {
		t.Errorf("info logged at warn level: %s", out)
	}
	if !strings.Contains(out, `"after"`) {
		t.Errorf("level change not applied: %s", out)
	}
}

func TestLoadAndWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.toml")
	if err := os.WriteFile(path, []byte("[jobs]\nthreads = 2\n[log]\nlevel = \"error\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := facade.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Threads != 2 || cfg.LogLevel != "error" || cfg.ConfigPath != path {
		t.Fatalf("cfg = %+v", cfg)
	}
	cfg.LogOutput = &bytes.Buffer{}
	h, err := facade.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	// The watch is armed asynchronously; rewrite until the change lands.
	deadline := time.Now().Add(5 * time.Second)
	for h.GetControl().GetConfig()["log.level"] != "debug" {
		if time.Now().After(deadline) {
			t.Fatal("config file change not picked up")
		}
		if err := os.WriteFile(path, []byte("[jobs]\nthreads = 2\n[log]\nlevel = \"debug\"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(2 * control.DefaultDebounce)
	}
	if err := h.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_RuntimeSizesSurviveFileReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	if err := os.WriteFile(path, []byte("jobs:\n  threads: 0\n  adoptable_threads: 2\nlog:\n  level: error\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := facade.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.LogOutput = &bytes.Buffer{}
	h, err := facade.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	// Start publishes the file once before returning.
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	defer h.Stop()

	got := h.GetControl().GetConfig()
	if got["runtime.threads"] != h.JobSystem().ThreadCount() || h.JobSystem().ThreadCount() < 1 {
		t.Errorf("runtime.threads = %v, job system runs %d", got["runtime.threads"], h.JobSystem().ThreadCount())
	}
	if got["runtime.adoptable_threads"] != 2 {
		t.Errorf("runtime.adoptable_threads = %v, want 2", got["runtime.adoptable_threads"])
	}
	if got["jobs.threads"] != 0 {
		t.Errorf("jobs.threads = %v, want the configured 0", got["jobs.threads"])
	}
}
