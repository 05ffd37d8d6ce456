// File: core/jobs/adopt.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Goroutine identity and adoption of external goroutines into the pool.

package jobs

import (
	"maps"
	"sync"

	"github.com/momentics/hioload-jobs/affinity"
)

// owners records which JobSystem each bound goroutine belongs to, across all
// job systems of the process.
var owners = struct {
	sync.Mutex
	m map[int64]*JobSystem
}{m: make(map[int64]*JobSystem)}

// bind registers a worker goroutine.
func (js *JobSystem) bind(id int64, s *threadState) {
	owners.Lock()
	owners.m[id] = js
	js.identityMu.Lock()
	js.setIdentity(id, s)
	js.identityMu.Unlock()
	owners.Unlock()
}

func (js *JobSystem) unbind(id int64) {
	owners.Lock()
	if owners.m[id] == js {
		delete(owners.m, id)
	}
	js.identityMu.Lock()
	js.setIdentity(id, nil)
	js.identityMu.Unlock()
	owners.Unlock()
}

// setIdentity publishes a new identity snapshot. Caller holds identityMu.
func (js *JobSystem) setIdentity(id int64, s *threadState) {
	next := maps.Clone(*js.identity.Load())
	if s == nil {
		delete(next, id)
	} else {
		next[id] = s
	}
	js.identity.Store(&next)
}

// Adopt binds the calling goroutine to a free adoptable thread state. From
// then on Run pushes to that state's deque and WaitAndRelease executes tasks
// while waiting. Adopting twice is a no-op. Panics if the goroutine belongs to
// another JobSystem.
func (js *JobSystem) Adopt() error {
	if js.closed.Load() {
		return ErrClosed
	}
	id := affinity.CurrentThreadID()

	owners.Lock()
	defer owners.Unlock()
	if o, ok := owners.m[id]; ok {
		if o != js {
			panic("jobs: Adopt: goroutine already belongs to another job system")
		}
		return nil
	}

	js.identityMu.Lock()
	n := len(js.freeAdoptable)
	if n == 0 {
		js.identityMu.Unlock()
		return ErrNoAdoptableThreads
	}
	idx := js.freeAdoptable[n-1]
	js.freeAdoptable = js.freeAdoptable[:n-1]
	if used := int32(idx - js.threadCount + 1); used > js.adoptedHigh.Load() {
		js.adoptedHigh.Store(used)
	}
	js.setIdentity(id, &js.states[idx])
	js.identityMu.Unlock()

	owners.m[id] = js
	js.adoptedNow.Add(1)
	js.log.Debug().Int("thread", idx).Int64("goroutine", id).Msg("goroutine adopted")
	return nil
}

// Emancipate unbinds a goroutine previously adopted by this JobSystem. Tasks
// left in its deque stay reachable by thieves. Panics if the goroutine was not
// adopted here.
func (js *JobSystem) Emancipate() {
	id := affinity.CurrentThreadID()

	owners.Lock()
	defer owners.Unlock()
	if owners.m[id] != js {
		panic("jobs: Emancipate: goroutine not adopted by this job system")
	}
	s := (*js.identity.Load())[id]
	if s == nil || s.index < js.threadCount {
		panic("jobs: Emancipate: pool workers cannot be emancipated")
	}

	js.identityMu.Lock()
	js.setIdentity(id, nil)
	js.freeAdoptable = append(js.freeAdoptable, s.index)
	js.identityMu.Unlock()

	delete(owners.m, id)
	js.adoptedNow.Add(-1)
	js.log.Debug().Int("thread", s.index).Int64("goroutine", id).Msg("goroutine emancipated")
}
