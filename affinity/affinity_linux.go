//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific implementation for setting thread CPU affinity.

package affinity

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	initialOnce sync.Once
	initialSet  unix.CPUSet
	allowedCPUs []int
)

// loadInitialSet records the affinity the process started with, so pins stay
// inside a restricted cpuset and reset restores it.
func loadInitialSet() {
	initialOnce.Do(func() {
		if err := unix.SchedGetaffinity(0, &initialSet); err != nil {
			initialSet.Zero()
			for i := 0; i < NumCPU(); i++ {
				initialSet.Set(i)
			}
		}
		for i := 0; i < len(initialSet)*64; i++ {
			if initialSet.IsSet(i) {
				allowedCPUs = append(allowedCPUs, i)
			}
		}
	})
}

// setAffinityPlatform sets thread affinity to a given CPU for Linux.
func setAffinityPlatform(cpuID int) error {
	loadInitialSet()
	if len(allowedCPUs) == 0 {
		return fmt.Errorf("affinity: no usable cpu")
	}
	cpu := allowedCPUs[cpuID%len(allowedCPUs)]
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	// pid 0 is the calling thread
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity(cpu %d): %w", cpu, err)
	}
	return nil
}

func resetAffinityPlatform() error {
	loadInitialSet()
	set := initialSet
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity(reset): %w", err)
	}
	return nil
}
