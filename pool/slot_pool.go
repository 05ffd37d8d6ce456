// File: pool/slot_pool.go
// Package pool implements fixed-capacity arenas addressed by 16-bit slot index.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// MaxSlots is the largest capacity a SlotPool supports. Index 0xFFFF is kept
// free so callers can use it as a "no slot" sentinel.
const MaxSlots = 1<<16 - 1

// SlotPool is an arena of T records with a stable base address. Records are
// handed out by index; the free list is FIFO so a just-released slot is the
// last one to be handed out again.
type SlotPool[T any] struct {
	mu    sync.Mutex
	slots []T
	live  []bool
	free  *queue.Queue
	boxed []any // pre-boxed indices, so Add never allocates

	totalAlloc atomic.Uint64
	totalFree  atomic.Uint64
	exhausted  atomic.Uint64
}

// SlotPoolStats aggregates allocation counters.
type SlotPoolStats struct {
	Capacity   int
	InUse      int
	TotalAlloc uint64
	TotalFree  uint64
	Exhausted  uint64
}

// NewSlotPool allocates capacity records up front.
func NewSlotPool[T any](capacity int) (*SlotPool[T], error) {
	if capacity <= 0 || capacity > MaxSlots {
		return nil, fmt.Errorf("slot pool capacity %d out of range (1..%d)", capacity, MaxSlots)
	}
	sp := &SlotPool[T]{
		slots: make([]T, capacity),
		live:  make([]bool, capacity),
		free:  queue.New(),
		boxed: make([]any, capacity),
	}
	for i := range sp.boxed {
		sp.boxed[i] = uint16(i)
		sp.free.Add(sp.boxed[i])
	}
	return sp, nil
}

// Allocate returns a free slot index, or false when the pool is exhausted.
// The record at the returned index keeps whatever state Release left in it.
func (sp *SlotPool[T]) Allocate() (uint16, bool) {
	sp.mu.Lock()
	if sp.free.Length() == 0 {
		sp.mu.Unlock()
		sp.exhausted.Add(1)
		return 0, false
	}
	idx := sp.free.Remove().(uint16)
	sp.live[idx] = true
	sp.mu.Unlock()
	sp.totalAlloc.Add(1)
	return idx, true
}

// Release returns idx to the pool. Releasing a slot that is not allocated is a
// programming error and panics.
func (sp *SlotPool[T]) Release(idx uint16) {
	sp.mu.Lock()
	if int(idx) >= len(sp.slots) || !sp.live[idx] {
		sp.mu.Unlock()
		panic(fmt.Sprintf("pool: release of unallocated slot %d", idx))
	}
	sp.live[idx] = false
	sp.free.Add(sp.boxed[idx])
	sp.mu.Unlock()
	sp.totalFree.Add(1)
}

// At returns the record stored at idx. The address is stable for the lifetime
// of the pool.
func (sp *SlotPool[T]) At(idx uint16) *T {
	return &sp.slots[idx]
}

// IsAllocated reports whether idx is currently handed out.
func (sp *SlotPool[T]) IsAllocated(idx uint16) bool {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return int(idx) < len(sp.live) && sp.live[idx]
}

// Cap returns the fixed capacity.
func (sp *SlotPool[T]) Cap() int {
	return len(sp.slots)
}

// Stats returns a snapshot of the allocation counters.
func (sp *SlotPool[T]) Stats() SlotPoolStats {
	// frees never outnumber allocations loaded after them
	freed := sp.totalFree.Load()
	alloc := sp.totalAlloc.Load()
	return SlotPoolStats{
		Capacity:   len(sp.slots),
		InUse:      int(alloc - freed),
		TotalAlloc: alloc,
		TotalFree:  freed,
		Exhausted:  sp.exhausted.Load(),
	}
}
