package control

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, "jobs.yaml", `
jobs:
  threads: 6
  pin_threads: true
log:
  level: debug
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Jobs.Threads != 6 || !cfg.Jobs.PinThreads || cfg.Log.Level != "debug" {
		t.Errorf("decoded %+v", cfg)
	}
	if !cfg.Jobs.AssumeHyperThreading || cfg.Jobs.AdoptableThreads != 1 {
		t.Errorf("defaults lost: %+v", cfg.Jobs)
	}
}

func TestLoadFile_TOML(t *testing.T) {
	path := writeFile(t, "jobs.toml", `
[jobs]
threads = 3
assume_hyperthreading = false

[metrics]
enabled = true
namespace = "engine"
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Jobs.Threads != 3 || cfg.Jobs.AssumeHyperThreading {
		t.Errorf("jobs = %+v", cfg.Jobs)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Namespace != "engine" || cfg.Metrics.Addr != ":9102" {
		t.Errorf("metrics = %+v", cfg.Metrics)
	}
}

func TestLoadFile_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown.yaml":  "jobs:\n  treads: 2\n",
		"unknown.toml":  "[jobs]\ntreads = 2\n",
		"negative.yaml": "jobs:\n  threads: -1\n",
		"format.toml":   "[log]\nformat = \"xml\"\n",
	}
	for name, body := range cases {
		if _, err := LoadFile(writeFile(t, name, body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := LoadFile(writeFile(t, "jobs.ini", "threads=1")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("ini err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoadFile_EmptyYAMLUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(writeFile(t, "empty.yml", ""))
	if err != nil {
		t.Fatal(err)
	}
	if cfg != DefaultFileConfig() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvThreads, "4")
	t.Setenv(EnvHyperThreading, "false")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvMetricsAddr, "127.0.0.1:9999")

	cfg := DefaultFileConfig()
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Jobs.Threads != 4 || cfg.Jobs.AssumeHyperThreading || cfg.Log.Level != "warn" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != "127.0.0.1:9999" {
		t.Errorf("metrics = %+v", cfg.Metrics)
	}
}

func TestApplyEnv_BadValue(t *testing.T) {
	t.Setenv(EnvAdoptableThreads, "many")
	cfg := DefaultFileConfig()
	err := ApplyEnv(&cfg)
	if !errors.Is(err, ErrInvalidValue) || !strings.Contains(err.Error(), EnvAdoptableThreads) {
		t.Errorf("err = %v, want ErrInvalidValue naming the variable", err)
	}
}
