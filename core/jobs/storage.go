// File: core/jobs/storage.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Inline task state. Small pointer-free values are copied into the task record
// so creating a task does not allocate.

package jobs

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

// StorageSize is the number of bytes of inline state a task can carry.
const StorageSize = 48

// Storage is 8-byte aligned so any storable value can be overlaid on it.
type Storage [StorageSize / 8]uint64

func storageAs[T any](s *Storage) *T {
	return (*T)(unsafe.Pointer(s))
}

type storableResult struct{ err error }

var storableCache sync.Map // reflect.Type -> storableResult

// CheckStorable reports whether values of type T can be passed to CreateWith.
func CheckStorable[T any]() error {
	typ := reflect.TypeFor[T]()
	if v, ok := storableCache.Load(typ); ok {
		return v.(storableResult).err
	}
	err := storable(typ)
	storableCache.Store(typ, storableResult{err: err})
	return err
}

func storable(typ reflect.Type) error {
	if typ.Size() > StorageSize {
		return fmt.Errorf("%s is %d bytes, limit %d: %w", typ, typ.Size(), StorageSize, ErrStateTooLarge)
	}
	if hasPointers(typ) {
		return fmt.Errorf("%s: %w", typ, ErrStateHasPointers)
	}
	return nil
}

func hasPointers(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return typ.Len() > 0 && hasPointers(typ.Elem())
	case reflect.Struct:
		for i := range typ.NumField() {
			if hasPointers(typ.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func mustStorable[T any]() {
	if err := CheckStorable[T](); err != nil {
		panic("jobs: CreateWith: " + err.Error())
	}
}

func invokeWith[T any](js *JobSystem, t Task, rec *taskRecord) {
	rec.ctx.(func(*T, *JobSystem, Task))(storageAs[T](&rec.storage), js, t)
}

// CreateWith creates a task whose state is copied into the task record.
// T must be pointer-free and at most StorageSize bytes; state needing pointers
// belongs in a closure passed to Create. Panics on an unstorable T.
func CreateWith[T any](js *JobSystem, parent Task, state T, fn func(state *T, js *JobSystem, t Task)) Task {
	mustStorable[T]()
	var invoke invokeFunc
	if fn != nil {
		invoke = invokeWith[T]
	}
	t, rec := js.create(parent, invoke, fn)
	if t == NoTask {
		return NoTask
	}
	*storageAs[T](&rec.storage) = state
	return t
}
