// File: core/jobs/stats.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package jobs

import "github.com/momentics/hioload-jobs/pool"

// Stats is a point-in-time snapshot of scheduler counters.
type Stats struct {
	Threads          int
	AdoptableThreads int
	AdoptedThreads   int
	ActiveTasks      int
	QueuedTasks      int

	Executed      uint64
	Stolen        uint64
	StealMisses   uint64
	Injected      uint64
	Sleeps        uint64
	PoolInUse     int
	PoolExhausted uint64

	Pool pool.SlotPoolStats
}

// Stats aggregates per-thread counters. Values are read without a global lock
// and may be mutually inconsistent under load.
func (js *JobSystem) Stats() Stats {
	ps := js.tasks.Stats()
	st := Stats{
		Threads:          js.threadCount,
		AdoptableThreads: js.adoptable,
		AdoptedThreads:   int(js.adoptedNow.Load()),
		ActiveTasks:      max(int(js.activeJobs.Load()), 0),
		QueuedTasks:      js.queued(),
		Injected:         js.injectedTotal.Load(),
		PoolInUse:        ps.InUse,
		PoolExhausted:    ps.Exhausted,
		Pool:             ps,
	}
	for i := range js.states {
		s := &js.states[i]
		st.Executed += s.executed.Load()
		st.Stolen += s.stolen.Load()
		st.StealMisses += s.misses.Load()
		st.Sleeps += s.sleeps.Load()
	}
	return st
}
