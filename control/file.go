// control/file.go
// Author: momentics <momentics@gmail.com>
//
// Config file model and loading. YAML and TOML are selected by extension;
// unknown keys are rejected in both.

package control

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	yaml "go.yaml.in/yaml/v3"
)

var (
	// ErrUnsupportedFormat indicates a config file extension with no decoder.
	ErrUnsupportedFormat = errors.New("unsupported config format")

	// ErrInvalidValue indicates a config value out of range.
	ErrInvalidValue = errors.New("invalid config value")
)

// FileConfig is the on-disk configuration.
type FileConfig struct {
	Jobs    JobsSection    `yaml:"jobs" toml:"jobs"`
	Log     LogSection     `yaml:"log" toml:"log"`
	Metrics MetricsSection `yaml:"metrics" toml:"metrics"`
}

// JobsSection configures the job system. Changes need a restart.
type JobsSection struct {
	Threads              int    `yaml:"threads" toml:"threads"`
	AdoptableThreads     int    `yaml:"adoptable_threads" toml:"adoptable_threads"`
	AssumeHyperThreading bool   `yaml:"assume_hyperthreading" toml:"assume_hyperthreading"`
	PinThreads           bool   `yaml:"pin_threads" toml:"pin_threads"`
	Seed                 uint64 `yaml:"seed" toml:"seed"`
}

// LogSection configures logging. Level is hot-reloadable.
type LogSection struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsSection configures metric export.
type MetricsSection struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Namespace string `yaml:"namespace" toml:"namespace"`
	Addr      string `yaml:"addr" toml:"addr"`
}

// DefaultFileConfig returns the values used for keys a file leaves out.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Jobs: JobsSection{
			AdoptableThreads:     1,
			AssumeHyperThreading: true,
		},
		Log:     LogSection{Level: "info", Format: "console"},
		Metrics: MetricsSection{Namespace: "hioload_jobs", Addr: ":9102"},
	}
}

// LoadFile reads path over the defaults.
func LoadFile(path string) (FileConfig, error) {
	cfg := DefaultFileConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("%s: yaml: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, fmt.Errorf("%s: toml: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return cfg, fmt.Errorf("%s: toml: unknown keys %s", path, strings.Join(keys, ", "))
		}
	default:
		return cfg, fmt.Errorf("%s: %q: %w", path, ext, ErrUnsupportedFormat)
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges.
func (c FileConfig) Validate() error {
	if c.Jobs.Threads < 0 {
		return fmt.Errorf("jobs.threads %d: %w", c.Jobs.Threads, ErrInvalidValue)
	}
	if c.Jobs.AdoptableThreads < 0 {
		return fmt.Errorf("jobs.adoptable_threads %d: %w", c.Jobs.AdoptableThreads, ErrInvalidValue)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format %q: %w", c.Log.Format, ErrInvalidValue)
	}
	return nil
}

// Flatten returns the dotted key/value form stored in a ConfigStore.
func (c FileConfig) Flatten() map[string]any {
	return map[string]any{
		"jobs.threads":               c.Jobs.Threads,
		"jobs.adoptable_threads":     c.Jobs.AdoptableThreads,
		"jobs.assume_hyperthreading": c.Jobs.AssumeHyperThreading,
		"jobs.pin_threads":           c.Jobs.PinThreads,
		"jobs.seed":                  c.Jobs.Seed,
		"log.level":                  c.Log.Level,
		"log.format":                 c.Log.Format,
		"metrics.enabled":            c.Metrics.Enabled,
		"metrics.namespace":          c.Metrics.Namespace,
		"metrics.addr":               c.Metrics.Addr,
	}
}
