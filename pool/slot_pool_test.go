package pool

import (
	"sync"
	"testing"
)

type record struct {
	value int
}

func TestSlotPool_CapacityRange(t *testing.T) {
	if _, err := NewSlotPool[record](0); err == nil {
		t.Error("Expected error for zero capacity")
	}
	if _, err := NewSlotPool[record](MaxSlots + 1); err == nil {
		t.Error("Expected error for capacity above MaxSlots")
	}
}

func TestSlotPool_AllocateUntilExhausted(t *testing.T) {
	sp, err := NewSlotPool[record](4)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[uint16]bool{}
	for i := 0; i < 4; i++ {
		idx, ok := sp.Allocate()
		if !ok {
			t.Fatalf("Allocate %d failed", i)
		}
		if seen[idx] {
			t.Fatalf("slot %d handed out twice", idx)
		}
		seen[idx] = true
	}
	if _, ok := sp.Allocate(); ok {
		t.Error("Expected Allocate to fail when exhausted")
	}
	st := sp.Stats()
	if st.InUse != 4 || st.Exhausted != 1 || st.Capacity != 4 {
		t.Errorf("Stats = %+v, want InUse 4, Exhausted 1, Capacity 4", st)
	}
}

func TestSlotPool_ReleaseRecycles(t *testing.T) {
	sp, _ := NewSlotPool[record](2)
	a, _ := sp.Allocate()
	sp.At(a).value = 7
	sp.Release(a)
	if sp.IsAllocated(a) {
		t.Error("slot still marked allocated after Release")
	}
	b, _ := sp.Allocate()
	c, _ := sp.Allocate()
	if b == a {
		t.Error("FIFO free list handed the released slot out first")
	}
	if c != a {
		t.Errorf("second Allocate = %d, want recycled slot %d", c, a)
	}
	if sp.At(c) != sp.At(a) {
		t.Error("At is not stable for the same index")
	}
}

func TestSlotPool_DoubleReleasePanics(t *testing.T) {
	sp, _ := NewSlotPool[record](2)
	idx, _ := sp.Allocate()
	sp.Release(idx)
	defer func() {
		if recover() == nil {
			t.Error("Expected panic on double release")
		}
	}()
	sp.Release(idx)
}

func TestSlotPool_Concurrent(t *testing.T) {
	sp, _ := NewSlotPool[record](64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10000; i++ {
				idx, ok := sp.Allocate()
				if !ok {
					continue
				}
				sp.At(idx).value++
				sp.Release(idx)
			}
		}()
	}
	wg.Wait()
	st := sp.Stats()
	if st.InUse != 0 {
		t.Errorf("InUse = %d after all releases, want 0", st.InUse)
	}
	if st.TotalAlloc != st.TotalFree {
		t.Errorf("TotalAlloc %d != TotalFree %d", st.TotalAlloc, st.TotalFree)
	}
}
