// File: core/jobs/parallel_for.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Recursive range splitting on top of Create and Run.

package jobs

import "github.com/momentics/hioload-jobs/api"

// DefaultMaxSplits is the split depth limit used by NewCountSplitter.
const DefaultMaxSplits = 12

// CountSplitter splits while each half keeps at least Count items and the
// split depth stays below MaxSplits.
type CountSplitter struct {
	Count     uint32
	MaxSplits uint8
}

// NewCountSplitter returns a CountSplitter with DefaultMaxSplits.
func NewCountSplitter(count uint32) CountSplitter {
	return CountSplitter{Count: count, MaxSplits: DefaultMaxSplits}
}

// Split implements api.Splitter.
func (s CountSplitter) Split(depth uint8, count uint32) bool {
	return depth < s.MaxSplits && uint64(count) >= 2*uint64(s.Count)
}

var (
	// AlwaysSplit splits down to single items.
	AlwaysSplit api.Splitter = api.SplitterFunc(func(uint8, uint32) bool { return true })

	// NeverSplit runs the whole range in one call.
	NeverSplit api.Splitter = api.SplitterFunc(func(uint8, uint32) bool { return false })
)

// parallelFor is shared by every task of one ParallelFor call.
type parallelFor struct {
	fn       func(start, count uint32)
	splitter api.Splitter
}

// parallelRange is the inline state of one ParallelFor task.
type parallelRange struct {
	start uint32
	count uint32
	depth uint8
}

// ParallelFor returns a task that calls fn over [start, start+count) in
// sub-ranges chosen by splitter. Sub-ranges are children of the returned task,
// so waiting on it waits for the whole range. The caller runs the task.
// Returns NoTask if the task could not be created.
func ParallelFor(js *JobSystem, parent Task, start, count uint32, splitter api.Splitter, fn func(start, count uint32)) Task {
	p := &parallelFor{fn: fn, splitter: splitter}
	return p.create(js, parent, parallelRange{start: start, count: count})
}

// ParallelForSlice is ParallelFor over the elements of data. fn receives a
// sub-slice and the offset of its first element.
func ParallelForSlice[T any](js *JobSystem, parent Task, data []T, splitter api.Splitter, fn func(chunk []T, offset uint32)) Task {
	return ParallelFor(js, parent, 0, uint32(len(data)), splitter, func(start, count uint32) {
		fn(data[start:start+count], start)
	})
}

func (p *parallelFor) create(js *JobSystem, parent Task, r parallelRange) Task {
	t, rec := js.create(parent, invokeParallelFor, p)
	if t == NoTask {
		return NoTask
	}
	*storageAs[parallelRange](&rec.storage) = r
	return t
}

func invokeParallelFor(js *JobSystem, self Task, rec *taskRecord) {
	rec.ctx.(*parallelFor).run(js, self, *storageAs[parallelRange](&rec.storage))
}

// run hands the left half to a child task and keeps the right half, until the
// splitter stops or no task can be created.
func (p *parallelFor) run(js *JobSystem, self Task, r parallelRange) {
	for r.count >= 2 && p.splitter.Split(r.depth, r.count) {
		left := r.count / 2
		child := p.create(js, self, parallelRange{start: r.start, count: left, depth: r.depth + 1})
		if child == NoTask {
			break
		}
		js.Run(child)
		r.start += left
		r.count -= left
		r.depth++
	}
	if r.count > 0 {
		p.fn(r.start, r.count)
	}
}
