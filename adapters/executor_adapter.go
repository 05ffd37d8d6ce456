// File: adapters/executor_adapter.go
// Package adapters provides glue between the job system and api contracts.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ExecutorAdapter implements api.Executor on top of a JobSystem. Each closure
// becomes a child of a group task, so Wait covers everything submitted since
// the previous Wait. When the task pool is exhausted the closure runs inline.

package adapters

import (
	"sync"

	"github.com/momentics/hioload-jobs/api"
	"github.com/momentics/hioload-jobs/core/jobs"
)

// ExecutorAdapter dispatches plain closures as job system tasks.
type ExecutorAdapter struct {
	js *jobs.JobSystem

	mu     sync.Mutex
	group  jobs.Task
	closed bool
}

var _ api.Executor = (*ExecutorAdapter)(nil)

// NewExecutorAdapter wraps js. The adapter does not own js.
func NewExecutorAdapter(js *jobs.JobSystem) *ExecutorAdapter {
	return &ExecutorAdapter{js: js, group: jobs.NoTask}
}

// Submit schedules task. Closures must not panic.
func (ea *ExecutorAdapter) Submit(task func()) error {
	if task == nil {
		return api.NewError(api.ErrCodeInvalidArgument, "nil task").Wrap(api.ErrInvalidArgument)
	}

	ea.mu.Lock()
	if ea.closed {
		ea.mu.Unlock()
		return api.NewError(api.ErrCodeClosed, "executor closed").Wrap(api.ErrClosed)
	}
	if ea.group == jobs.NoTask {
		ea.group = ea.js.Create(jobs.NoTask, nil)
	}
	t := jobs.NoTask
	if ea.group != jobs.NoTask {
		t = ea.js.Create(ea.group, func(*jobs.JobSystem, jobs.Task) { task() })
	}
	ea.mu.Unlock()

	if t == jobs.NoTask {
		task()
		return nil
	}
	ea.js.Run(t)
	return nil
}

// NumWorkers returns the number of pool threads.
func (ea *ExecutorAdapter) NumWorkers() int {
	return ea.js.ThreadCount()
}

// Wait blocks until every closure submitted before the call has finished.
func (ea *ExecutorAdapter) Wait() {
	ea.mu.Lock()
	g := ea.group
	ea.group = jobs.NoTask
	ea.mu.Unlock()

	if g != jobs.NoTask {
		ea.js.RunAndWait(g)
	}
}

// Close waits for pending closures and rejects further submissions.
func (ea *ExecutorAdapter) Close() error {
	ea.mu.Lock()
	ea.closed = true
	ea.mu.Unlock()
	ea.Wait()
	return nil
}
