// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module.

package concurrency

import "errors"

var (
	// ErrQueueFull indicates a bounded queue or deque has no free cell left.
	ErrQueueFull = errors.New("queue is full")

	// ErrInvalidCapacity indicates a capacity that cannot be represented.
	ErrInvalidCapacity = errors.New("invalid queue capacity")
)
