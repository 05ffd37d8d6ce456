// File: core/jobs/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Job system configuration and thread count derivation.

package jobs

import (
	"fmt"
	"math/bits"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

const (
	// MaxThreadCount caps the number of pool worker threads.
	MaxThreadCount = 32

	// MaxAdoptableThreads caps the number of reserved adoptable thread states.
	MaxAdoptableThreads = 64
)

// Config holds settings for a JobSystem.
type Config struct {
	ThreadCount           int             // Pool workers; 0 derives from hardware
	AdoptableThreads      int             // Thread states reserved for Adopt
	AssumeHyperThreading  bool            // Halve the CPU count when deriving ThreadCount
	PinThreads            bool            // Pin worker i to allowed CPU i
	Seed                  uint64          // Steal PRNG seed; 0 picks a random one
	Logger                *zerolog.Logger // nil disables logging
	ExhaustionLogInterval time.Duration   // Minimum gap between pool exhaustion warnings
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		AdoptableThreads:      1,
		AssumeHyperThreading:  true,
		ExhaustionLogInterval: time.Second,
	}
}

func (c Config) validate() error {
	if c.ThreadCount < 0 || c.ThreadCount > MaxThreadCount {
		return fmt.Errorf("thread count %d not in [0, %d]: %w", c.ThreadCount, MaxThreadCount, ErrInvalidConfig)
	}
	if c.AdoptableThreads < 0 || c.AdoptableThreads > MaxAdoptableThreads {
		return fmt.Errorf("adoptable threads %d not in [0, %d]: %w", c.AdoptableThreads, MaxAdoptableThreads, ErrInvalidConfig)
	}
	if c.ExhaustionLogInterval < 0 {
		return fmt.Errorf("negative exhaustion log interval: %w", ErrInvalidConfig)
	}
	return nil
}

// resolveThreadCount leaves one CPU to the calling thread.
func resolveThreadCount(c Config) int {
	if c.ThreadCount > 0 {
		return c.ThreadCount
	}
	return defaultThreadCount(runtime.NumCPU(), c.AssumeHyperThreading)
}

func defaultThreadCount(cpus int, hyperThreading bool) int {
	if hyperThreading {
		cpus /= 2
	}
	return min(max(cpus-1, 1), MaxThreadCount)
}

// splitCount is ceil(log2(n)), 0 for n <= 1.
func splitCount(n int) uint8 {
	if n <= 1 {
		return 0
	}
	return uint8(bits.Len(uint(n - 1)))
}
