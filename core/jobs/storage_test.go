package jobs

import (
	"errors"
	"testing"
)

type vec3 struct{ X, Y, Z float32 }

type bounds struct {
	Min, Max vec3
	Layer    uint16
	Visible  bool
}

func TestCheckStorable(t *testing.T) {
	if err := CheckStorable[bounds](); err != nil {
		t.Errorf("bounds: %v", err)
	}
	if err := CheckStorable[[StorageSize / 8]uint64](); err != nil {
		t.Errorf("full storage: %v", err)
	}
	if err := CheckStorable[[StorageSize/8 + 1]uint64](); !errors.Is(err, ErrStateTooLarge) {
		t.Errorf("oversized err = %v, want ErrStateTooLarge", err)
	}
	if err := CheckStorable[struct{ P *int }](); !errors.Is(err, ErrStateHasPointers) {
		t.Errorf("pointer err = %v, want ErrStateHasPointers", err)
	}
	if err := CheckStorable[string](); !errors.Is(err, ErrStateHasPointers) {
		t.Errorf("string err = %v, want ErrStateHasPointers", err)
	}
	// Cached result.
	if err := CheckStorable[string](); !errors.Is(err, ErrStateHasPointers) {
		t.Errorf("cached string err = %v, want ErrStateHasPointers", err)
	}
}

func TestCreateWith_CopiesState(t *testing.T) {
	js := newTestSystem(t, 2, 0)

	results := make([]float32, 8)
	parent := js.Create(NoTask, nil)
	for i := range results {
		b := bounds{Min: vec3{0, 0, 0}, Max: vec3{float32(i), 2, 3}, Layer: uint16(i)}
		js.Run(CreateWith(js, parent, b, func(b *bounds, _ *JobSystem, _ Task) {
			results[b.Layer] = (b.Max.X - b.Min.X) * (b.Max.Y - b.Min.Y) * (b.Max.Z - b.Min.Z)
		}))
	}
	js.RunAndWait(parent)

	for i, got := range results {
		if want := float32(i * 6); got != want {
			t.Errorf("volume[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestCreateWith_RejectsPointers(t *testing.T) {
	js := newTestSystem(t, 1, 0)
	mustPanic(t, "CreateWith(*int)", func() {
		CreateWith(js, NoTask, new(int), func(**int, *JobSystem, Task) {})
	})
	if st := js.Stats(); st.PoolInUse != 0 {
		t.Errorf("PoolInUse = %d after rejected CreateWith", st.PoolInUse)
	}
}
