// File: core/jobs/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for the job system.

package jobs

import "errors"

var (
	// ErrInvalidConfig indicates a configuration that cannot be started.
	ErrInvalidConfig = errors.New("invalid job system config")

	// ErrClosed indicates the job system has been shut down.
	ErrClosed = errors.New("job system is closed")

	// ErrNoAdoptableThreads indicates every adoptable thread state is in use.
	ErrNoAdoptableThreads = errors.New("no adoptable thread state left")

	// ErrTasksAbandoned indicates tasks were still queued when the job system closed.
	ErrTasksAbandoned = errors.New("queued tasks abandoned at close")

	// ErrStateTooLarge indicates inline task state exceeding StorageSize.
	ErrStateTooLarge = errors.New("task state does not fit inline storage")

	// ErrStateHasPointers indicates inline task state containing Go pointers.
	ErrStateHasPointers = errors.New("task state contains pointers")
)
