//go:build windows

// control/platform_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows platform probes.

package control

import (
	"runtime"

	"golang.org/x/sys/windows"
)

// RegisterPlatformProbes adds CPU topology probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.gomaxprocs", func() any {
		return runtime.GOMAXPROCS(0)
	})
	dp.RegisterProbe("platform.active_processors", func() any {
		return windows.GetActiveProcessorCount(windows.ALL_PROCESSOR_GROUPS)
	})
}
