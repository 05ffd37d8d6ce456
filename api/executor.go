// Package api
// Author: momentics
//
// Executor contract for fire-and-forget closures on top of the job system.

package api

// Executor abstracts parallel dispatch of plain closures.
type Executor interface {
	// Submit schedules task for execution.
	Submit(task func()) error

	// NumWorkers returns the number of pool threads.
	NumWorkers() int

	// Wait blocks until every closure submitted so far has finished.
	Wait()
}
