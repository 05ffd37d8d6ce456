// control/env.go
// Author: momentics <momentics@gmail.com>
//
// Environment overrides applied on top of a loaded FileConfig.

package control

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvThreads          = "HIOLOAD_JOBS_THREADS"
	EnvAdoptableThreads = "HIOLOAD_JOBS_ADOPTABLE_THREADS"
	EnvHyperThreading   = "HIOLOAD_JOBS_HYPERTHREADING"
	EnvPinThreads       = "HIOLOAD_JOBS_PIN_THREADS"
	EnvLogLevel         = "HIOLOAD_JOBS_LOG_LEVEL"
	EnvLogFormat        = "HIOLOAD_JOBS_LOG_FORMAT"
	EnvMetricsAddr      = "HIOLOAD_JOBS_METRICS_ADDR"
)

// ApplyEnv overrides cfg fields from HIOLOAD_JOBS_* variables that are set.
func ApplyEnv(cfg *FileConfig) error {
	if err := envInt(EnvThreads, &cfg.Jobs.Threads); err != nil {
		return err
	}
	if err := envInt(EnvAdoptableThreads, &cfg.Jobs.AdoptableThreads); err != nil {
		return err
	}
	if err := envBool(EnvHyperThreading, &cfg.Jobs.AssumeHyperThreading); err != nil {
		return err
	}
	if err := envBool(EnvPinThreads, &cfg.Jobs.PinThreads); err != nil {
		return err
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		cfg.Metrics.Addr = v
		cfg.Metrics.Enabled = true
	}
	return cfg.Validate()
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, v, ErrInvalidValue)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, v, ErrInvalidValue)
	}
	*dst = b
	return nil
}
