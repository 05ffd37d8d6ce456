// File: core/jobs/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package jobs implements a work-stealing job system for short, CPU-bound
// engine work.
//
// Tasks live in a fixed arena and are addressed by a 16-bit Task handle. Every
// pool thread owns a lock-free deque: it pushes and pops its own work LIFO,
// idle threads steal the oldest work of a random peer. A task completes only
// after its function returned and every child it spawned completed; waiting on
// a task keeps the waiting thread busy with other work until then.
//
// Goroutines that are not pool threads can Adopt a reserved thread state and
// then participate exactly like pool threads. Goroutines that did neither may
// still Run tasks (they are injected through a shared queue) and wait on them
// passively.
//
// Typical use:
//
//	js, err := jobs.New(jobs.DefaultConfig())
//	if err != nil { ... }
//	defer js.Close()
//	js.Adopt()
//	defer js.Emancipate()
//
//	parent := js.Create(jobs.NoTask, nil)
//	for i := 0; i < 1000; i++ {
//		js.Run(js.Create(parent, func(js *jobs.JobSystem, t jobs.Task) { work(i) }))
//	}
//	js.RunAndWait(parent)
package jobs
