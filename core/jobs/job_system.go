// File: core/jobs/job_system.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// JobSystem: worker pool, task submission, execution, completion propagation
// and waiting.

package jobs

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-jobs/affinity"
	"github.com/momentics/hioload-jobs/core/concurrency"
	"github.com/momentics/hioload-jobs/pool"
	"github.com/rs/zerolog"
	"golang.org/x/sys/cpu"
	"golang.org/x/time/rate"
)

// threadState is the per-thread scheduling context: one deque, one PRNG.
// Only the goroutine bound to the state pops its deque and draws from rnd.
type threadState struct {
	queue *concurrency.WorkStealingDeque
	rnd   *rand.Rand
	js    *JobSystem
	index int

	executed atomic.Uint64
	stolen   atomic.Uint64
	misses   atomic.Uint64
	sleeps   atomic.Uint64
	_        cpu.CacheLinePad
}

// JobSystem schedules tasks over a fixed pool of worker goroutines.
type JobSystem struct {
	tasks       *pool.SlotPool[taskRecord]
	states      []threadState
	threadCount int
	adoptable   int
	splitCount  uint8

	// identity maps goroutine ids to thread states. Readers load the
	// snapshot without locking; writers copy it under identityMu.
	identity      atomic.Pointer[map[int64]*threadState]
	identityMu    sync.Mutex
	freeAdoptable []int // guarded by identityMu
	adoptedHigh   atomic.Int32
	adoptedNow    atomic.Int32

	injected *concurrency.LockFreeQueue[uint16]

	activeJobs atomic.Int32
	exit       atomic.Bool
	closed     atomic.Bool

	// waiterCond parks workers and active waiters; submissions Signal it.
	// passiveCond parks non-member waiters and is only broadcast on
	// completion or exit.
	waiterMu    sync.Mutex
	waiterCond  *sync.Cond
	passiveCond *sync.Cond

	root atomic.Uint32

	injectedTotal atomic.Uint64

	log       zerolog.Logger
	exhausted *rate.Limiter
	pin       bool
	wg        sync.WaitGroup
}

// New builds a JobSystem and starts its workers.
func New(cfg Config) (*JobSystem, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	tasks, err := pool.NewSlotPool[taskRecord](MaxTaskCount)
	if err != nil {
		return nil, fmt.Errorf("task pool: %w", err)
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "jobs").Logger()
	}
	interval := cfg.ExhaustionLogInterval
	if interval == 0 {
		interval = time.Second
	}

	threads := resolveThreadCount(cfg)
	js := &JobSystem{
		tasks:       tasks,
		states:      make([]threadState, threads+cfg.AdoptableThreads),
		threadCount: threads,
		adoptable:   cfg.AdoptableThreads,
		splitCount:  splitCount(threads + cfg.AdoptableThreads),
		injected:    concurrency.NewLockFreeQueue[uint16](MaxTaskCount),
		log:         logger,
		exhausted:   rate.NewLimiter(rate.Every(interval), 1),
		pin:         cfg.PinThreads,
	}
	js.waiterCond = sync.NewCond(&js.waiterMu)
	js.passiveCond = sync.NewCond(&js.waiterMu)
	js.root.Store(uint32(NoTask))
	empty := make(map[int64]*threadState)
	js.identity.Store(&empty)

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	for i := range js.states {
		q, err := concurrency.NewWorkStealingDeque(MaxTaskCount)
		if err != nil {
			return nil, fmt.Errorf("thread %d deque: %w", i, err)
		}
		js.states[i] = threadState{
			queue: q,
			rnd:   rand.New(rand.NewPCG(seed, uint64(i))),
			js:    js,
			index: i,
		}
	}
	// Lowest adoptable index is handed out first.
	for i := len(js.states) - 1; i >= threads; i-- {
		js.freeAdoptable = append(js.freeAdoptable, i)
	}

	started := make(chan struct{}, threads)
	for i := 0; i < threads; i++ {
		js.wg.Add(1)
		go js.loop(&js.states[i], started)
	}
	for i := 0; i < threads; i++ {
		<-started
	}
	js.log.Debug().Int("threads", threads).Int("adoptable", cfg.AdoptableThreads).Msg("job system started")
	return js, nil
}

// ThreadCount returns the number of pool worker threads.
func (js *JobSystem) ThreadCount() int { return js.threadCount }

// AdoptableThreadCount returns the number of thread states reserved for Adopt.
func (js *JobSystem) AdoptableThreadCount() int { return js.adoptable }

// ParallelSplitCount returns ceil(log2(threads + adoptable)), a sensible
// split depth for work that should spread once over every thread.
func (js *JobSystem) ParallelSplitCount() uint8 { return js.splitCount }

// Create allocates a task running fn. A NoTask parent means the root task, if
// one is set. fn may be nil to create a pure grouping task. Returns NoTask when
// the task arena is exhausted or the job system is closed.
func (js *JobSystem) Create(parent Task, fn TaskFunc) Task {
	var invoke invokeFunc
	var ctx any
	if fn != nil {
		invoke = invokeTaskFunc
		ctx = fn
	}
	t, _ := js.create(parent, invoke, ctx)
	return t
}

func (js *JobSystem) create(parent Task, invoke invokeFunc, ctx any) (Task, *taskRecord) {
	if js.closed.Load() {
		return NoTask, nil
	}
	if parent == NoTask {
		parent = Task(js.root.Load())
	}
	idx, ok := js.tasks.Allocate()
	if !ok {
		if js.exhausted.Allow() {
			js.log.Warn().Int("capacity", MaxTaskCount).Msg("task pool exhausted")
		}
		return NoTask, nil
	}
	if parent != NoTask && !js.record(parent).addChild() {
		js.tasks.Release(idx)
		panic(fmt.Sprintf("jobs: create: parent %v already completed", parent))
	}
	rec := js.tasks.At(idx)
	rec.reset(invoke, ctx, parent)
	return Task(idx), rec
}

func (js *JobSystem) record(t Task) *taskRecord {
	if debugChecks {
		if t == NoTask || !js.tasks.IsAllocated(uint16(t)) {
			panic(fmt.Sprintf("jobs: invalid task handle %v", t))
		}
	}
	return js.tasks.At(uint16(t))
}

// Run submits t. Ownership of the handle passes to the job system; the caller
// must not use t afterwards unless it retained it.
func (js *JobSystem) Run(t Task) {
	js.record(t)
	if s := js.currentState(); s != nil {
		js.put(s, t)
		return
	}
	js.inject(t)
}

// RunAndRetain submits t and keeps a reference for the caller, who must later
// Release or WaitAndRelease it.
func (js *JobSystem) RunAndRetain(t Task) Task {
	js.Retain(t)
	js.Run(t)
	return t
}

// RunAndWait submits t and waits for it and all its descendants.
func (js *JobSystem) RunAndWait(t Task) {
	js.WaitAndRelease(js.RunAndRetain(t))
}

// Retain adds a reference to t.
func (js *JobSystem) Retain(t Task) Task {
	js.record(t).refCount.Add(1)
	return t
}

// Release drops a reference obtained from Retain or RunAndRetain.
func (js *JobSystem) Release(t Task) {
	js.decRef(t)
}

// Cancel completes a task that was created but never run, detaching it from
// its parent. Calling it on a submitted task is a misuse.
func (js *JobSystem) Cancel(t Task) {
	js.finish(t)
}

// SetRootJob makes t the default parent of new tasks and returns the previous root.
func (js *JobSystem) SetRootJob(t Task) Task {
	return Task(js.root.Swap(uint32(t)))
}

// RootJob returns the current root task or NoTask.
func (js *JobSystem) RootJob() Task {
	return Task(js.root.Load())
}

// HasCompleted reports whether t and all its descendants finished. Valid only
// while the caller holds a reference to t.
func (js *JobSystem) HasCompleted(t Task) bool {
	return js.record(t).completed()
}

// ExecutingThread returns the index of the thread currently running t, or -1.
func (js *JobSystem) ExecutingThread(t Task) int {
	return int(js.record(t).ownerThread.Load())
}

// CurrentThreadIndex returns the thread state index of the caller, or -1 if
// the caller is neither a worker nor adopted.
func (js *JobSystem) CurrentThreadIndex() int {
	if s := js.currentState(); s != nil {
		return s.index
	}
	return invalidThread
}

func (js *JobSystem) currentState() *threadState {
	return (*js.identity.Load())[affinity.CurrentThreadID()]
}

func (js *JobSystem) hasActiveJobs() bool {
	return js.activeJobs.Load() > 0
}

func (js *JobSystem) wakeOne() {
	js.waiterMu.Lock()
	js.waiterCond.Signal()
	js.waiterMu.Unlock()
}

func (js *JobSystem) wakeAll() {
	js.waiterMu.Lock()
	js.waiterCond.Broadcast()
	js.passiveCond.Broadcast()
	js.waiterMu.Unlock()
}

func (js *JobSystem) put(s *threadState, t Task) {
	if !s.queue.Push(uint16(t)) {
		panic(fmt.Errorf("jobs: thread %d: %w", s.index, concurrency.ErrQueueFull))
	}
	js.activated()
}

func (js *JobSystem) inject(t Task) {
	if !js.injected.Enqueue(uint16(t)) {
		panic(fmt.Errorf("jobs: injection queue: %w", concurrency.ErrQueueFull))
	}
	js.injectedTotal.Add(1)
	js.activated()
}

func (js *JobSystem) activated() {
	if js.activeJobs.Add(1)-1 >= 0 {
		js.wakeOne()
	}
}

// take claims one active job before touching a queue and gives the claim back
// on failure, waking a peer if other jobs are still pending.
func (js *JobSystem) take(from func() (uint16, bool)) Task {
	js.activeJobs.Add(-1)
	idx, ok := from()
	if !ok {
		if js.activeJobs.Add(1)-1 >= 0 {
			js.wakeOne()
		}
		return NoTask
	}
	return Task(idx)
}

func (js *JobSystem) pop(s *threadState) Task {
	return js.take(s.queue.Pop)
}

func (js *JobSystem) dequeueInjected() Task {
	if js.injected.Len() == 0 {
		return NoTask
	}
	return js.take(js.injected.Dequeue)
}

func (js *JobSystem) steal(s *threadState) Task {
	for {
		if t := js.dequeueInjected(); t != NoTask {
			return t
		}
		victim := js.victim(s)
		if victim == nil {
			return NoTask
		}
		if t := js.take(victim.queue.Steal); t != NoTask {
			s.stolen.Add(1)
			return t
		}
		s.misses.Add(1)
		if !js.hasActiveJobs() || js.exit.Load() {
			return NoTask
		}
	}
}

// victim picks a random thread state other than s among workers and adoptable
// states handed out at least once.
func (js *JobSystem) victim(s *threadState) *threadState {
	n := js.threadCount + int(js.adoptedHigh.Load())
	if n < 2 {
		return nil
	}
	for {
		v := &js.states[s.rnd.IntN(n)]
		if v != s {
			return v
		}
	}
}

func (js *JobSystem) execute(s *threadState) bool {
	t := js.pop(s)
	if t == NoTask {
		t = js.steal(s)
	}
	if t == NoTask {
		return false
	}
	rec := js.tasks.At(uint16(t))
	if debugChecks && runningTasks(rec.runningCount.Load()) == 0 {
		panic(fmt.Sprintf("jobs: executing completed task %v", t))
	}
	if rec.invoke != nil {
		rec.ownerThread.Store(int32(s.index))
		rec.invoke(js, t, rec)
		rec.ownerThread.Store(invalidThread)
	}
	js.finish(t)
	s.executed.Add(1)
	return true
}

func (js *JobSystem) loop(s *threadState, started chan<- struct{}) {
	defer js.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if js.pin {
		if err := affinity.SetAffinity(s.index); err != nil {
			js.log.Warn().Err(err).Int("thread", s.index).Msg("cpu pinning failed")
		}
	}
	id := affinity.CurrentThreadID()
	js.bind(id, s)
	defer js.unbind(id)
	started <- struct{}{}
	js.log.Debug().Int("thread", s.index).Msg("worker started")

	for {
		if !js.execute(s) {
			js.waiterMu.Lock()
			for !js.exit.Load() && !js.hasActiveJobs() {
				s.sleeps.Add(1)
				js.waiterCond.Wait()
			}
			js.waiterMu.Unlock()
		}
		if js.exit.Load() {
			break
		}
	}
	js.log.Debug().Int("thread", s.index).Msg("worker stopped")
}

// finish walks up the parent chain while counts drop to zero.
func (js *JobSystem) finish(t Task) {
	notify := false
	for t != NoTask {
		rec := js.tasks.At(uint16(t))
		prev := rec.runningCount.Add(^uint32(0)) + 1
		switch runningTasks(prev) {
		case 0:
			panic(fmt.Sprintf("jobs: running count underflow on %v", t))
		case 1:
		default:
			t = NoTask
			continue
		}
		if waiterCount(prev) > 0 {
			notify = true
		}
		parent := rec.parent
		js.decRef(t)
		t = parent
	}
	if notify {
		js.wakeAll()
	}
}

func (js *JobSystem) decRef(t Task) {
	rec := js.record(t)
	switch n := rec.refCount.Add(-1); {
	case n == 0:
		rec.invoke = nil
		rec.ctx = nil
		js.tasks.Release(uint16(t))
	case n < 0:
		panic(fmt.Sprintf("jobs: %v released more often than retained", t))
	}
}

// WaitAndRelease blocks until t and all its descendants completed, then
// releases the caller's reference. Worker and adopted goroutines execute other
// tasks while waiting; other goroutines sleep.
func (js *JobSystem) WaitAndRelease(t Task) {
	rec := js.record(t)
	if rec.refCount.Load() < 1 {
		panic(fmt.Sprintf("jobs: wait on released %v", t))
	}
	if s := js.currentState(); s != nil {
		js.waitActive(s, rec)
	} else {
		js.waitPassive(rec)
	}
	js.root.CompareAndSwap(uint32(t), uint32(NoTask))
	js.Release(t)
}

func (js *JobSystem) waitActive(s *threadState, rec *taskRecord) {
	for {
		if !js.execute(s) {
			if rec.completed() {
				return
			}
			js.waiterMu.Lock()
			rec.addWaiter()
			if !rec.completed() && !js.hasActiveJobs() && !js.exit.Load() {
				s.sleeps.Add(1)
				js.waiterCond.Wait()
			}
			rec.removeWaiter()
			js.waiterMu.Unlock()
		}
		if rec.completed() || js.exit.Load() {
			return
		}
	}
}

func (js *JobSystem) waitPassive(rec *taskRecord) {
	js.waiterMu.Lock()
	rec.addWaiter()
	for !rec.completed() && !js.exit.Load() {
		js.passiveCond.Wait()
	}
	rec.removeWaiter()
	js.waiterMu.Unlock()
}

// Close stops the workers and waits for them to exit. Tasks still queued are
// not run; their count is reported through an error wrapping
// ErrTasksAbandoned. Must not be called from a task.
func (js *JobSystem) Close() error {
	if !js.closed.CompareAndSwap(false, true) {
		return nil
	}
	js.exit.Store(true)
	js.wakeAll()
	js.wg.Wait()

	if pending := js.queued(); pending > 0 {
		js.log.Warn().Int("tasks", pending).Msg("closing with queued tasks")
		return fmt.Errorf("jobs: %d tasks: %w", pending, ErrTasksAbandoned)
	}
	js.log.Debug().Msg("job system closed")
	return nil
}

func (js *JobSystem) queued() int {
	n := js.injected.Len()
	for i := range js.states {
		n += js.states[i].queue.Len()
	}
	return n
}
