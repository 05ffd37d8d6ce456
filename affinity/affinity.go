// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity and thread identity. Platform-specific
// implementations are located in separate files guarded by build tags.

package affinity

import (
	"fmt"
	"runtime"

	"github.com/petermattis/goid"
)

// SetAffinity pins the current OS thread to the cpuID-th CPU the process may
// run on, wrapping around. The caller must hold runtime.LockOSThread for the
// pin to stick to the goroutine. On unsupported platforms returns an error.
func SetAffinity(cpuID int) error {
	if cpuID < 0 {
		return fmt.Errorf("affinity: invalid cpu %d", cpuID)
	}
	return setAffinityPlatform(cpuID)
}

// ResetAffinity restores the affinity the process started with.
func ResetAffinity() error {
	return resetAffinityPlatform()
}

// NumCPU returns the number of logical CPUs usable by the process.
func NumCPU() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}

// CurrentThreadID identifies the calling goroutine. Goroutine ids are never
// reused, unlike OS thread ids.
func CurrentThreadID() int64 {
	return goid.Get()
}
