// File: core/jobs/task.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Task handles, task records and the packed running counter.

package jobs

import (
	"strconv"
	"sync/atomic"
)

// MaxTaskCount is the capacity of the task arena.
const MaxTaskCount = 16384

// Task is a 16-bit handle to a task record in the arena.
type Task uint16

// NoTask is the null handle.
const NoTask Task = 0xFFFF

// Valid reports whether t is not NoTask.
func (t Task) Valid() bool { return t != NoTask }

func (t Task) String() string {
	if t == NoTask {
		return "task(none)"
	}
	return "task(" + strconv.Itoa(int(t)) + ")"
}

// TaskFunc is the body of a task created with Create.
type TaskFunc func(js *JobSystem, t Task)

type invokeFunc func(js *JobSystem, t Task, rec *taskRecord)

// runningCount layout: low 24 bits count the task itself plus its unfinished
// children, high 8 bits count goroutines blocked waiting on it.
const (
	runningCountBits = 24
	runningCountMask = 1<<runningCountBits - 1
	waiterCountShift = runningCountBits
	waiterCountOne   = 1 << waiterCountShift
)

const invalidThread = -1

type taskRecord struct {
	invoke  invokeFunc
	ctx     any
	storage Storage
	parent  Task

	ownerThread  atomic.Int32
	refCount     atomic.Int32
	runningCount atomic.Uint32
}

func runningTasks(v uint32) uint32 { return v & runningCountMask }

func waiterCount(v uint32) uint32 { return v >> waiterCountShift }

func (r *taskRecord) completed() bool {
	return runningTasks(r.runningCount.Load()) == 0
}

// addChild counts one more unfinished child. It refuses once the task
// completed, leaving the counter untouched.
func (r *taskRecord) addChild() bool {
	for {
		v := r.runningCount.Load()
		if runningTasks(v) == 0 {
			return false
		}
		if r.runningCount.CompareAndSwap(v, v+1) {
			return true
		}
	}
}

func (r *taskRecord) addWaiter() {
	r.runningCount.Add(waiterCountOne)
}

func (r *taskRecord) removeWaiter() {
	r.runningCount.Add(^uint32(waiterCountOne - 1))
}

func (r *taskRecord) reset(invoke invokeFunc, ctx any, parent Task) {
	r.invoke = invoke
	r.ctx = ctx
	r.parent = parent
	r.ownerThread.Store(invalidThread)
	r.refCount.Store(1)
	r.runningCount.Store(1)
}

func invokeTaskFunc(js *JobSystem, t Task, rec *taskRecord) {
	rec.ctx.(TaskFunc)(js, t)
}
