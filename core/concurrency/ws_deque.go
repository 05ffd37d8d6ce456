// File: core/concurrency/ws_deque.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed-capacity Chase-Lev work-stealing deque of 16-bit items. The owner pushes
// and pops at the bottom (LIFO), thieves steal from the top (FIFO).

package concurrency

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// MaxDequeCapacity bounds a deque to what 16-bit items can address.
const MaxDequeCapacity = 1 << 16

// WorkStealingDeque is a lock-free single-owner, multi-thief deque.
//
// Push and Pop must only be called by the owning goroutine. Steal may be
// called by any goroutine. Items are stored in atomic cells so a thief reading
// a slot never races with the owner writing it.
type WorkStealingDeque struct {
	top    atomic.Int64 // read/written by Pop and Steal
	_      cpu.CacheLinePad
	bottom atomic.Int64 // written only by Push and Pop
	_      cpu.CacheLinePad
	mask   int64
	items  []atomic.Uint32
}

// NewWorkStealingDeque allocates a deque whose capacity is rounded up to a
// power of two.
func NewWorkStealingDeque(capacity int) (*WorkStealingDeque, error) {
	if capacity <= 0 || capacity > MaxDequeCapacity {
		return nil, fmt.Errorf("deque capacity %d: %w", capacity, ErrInvalidCapacity)
	}
	size := nextPowerOfTwo(capacity)
	return &WorkStealingDeque{
		mask:  int64(size - 1),
		items: make([]atomic.Uint32, size),
	}, nil
}

// Push adds item at the bottom. Returns false if the deque is full.
func (d *WorkStealingDeque) Push(item uint16) bool {
	b := d.bottom.Load()
	t := d.top.Load()
	if b-t > d.mask {
		return false
	}
	d.items[b&d.mask].Store(uint32(item))
	d.bottom.Store(b + 1)
	return true
}

// Pop removes the most recently pushed item.
func (d *WorkStealingDeque) Pop() (uint16, bool) {
	b := d.bottom.Add(-1)
	t := d.top.Load()
	if t < b {
		// more than one item left, no thief can reach this one
		return uint16(d.items[b&d.mask].Load()), true
	}

	if t == b {
		// last item: race the thieves for it
		item := uint16(d.items[b&d.mask].Load())
		ok := d.top.CompareAndSwap(t, t+1)
		d.bottom.Store(t + 1)
		return item, ok
	}
	// already empty
	d.bottom.Store(b + 1)
	return 0, false
}

// Steal removes the oldest item. It only gives up when the deque is observed
// empty; losing a CAS against another thief retries.
func (d *WorkStealingDeque) Steal() (uint16, bool) {
	for {
		t := d.top.Load()
		b := d.bottom.Load()
		if t >= b {
			return 0, false
		}
		item := uint16(d.items[t&d.mask].Load())
		if d.top.CompareAndSwap(t, t+1) {
			return item, true
		}
	}
}

// Len returns the approximate number of items.
func (d *WorkStealingDeque) Len() int {
	n := d.bottom.Load() - d.top.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

// Cap returns the fixed capacity.
func (d *WorkStealingDeque) Cap() int {
	return len(d.items)
}
