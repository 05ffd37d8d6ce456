// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown is implemented by components that stop background work and
// release resources on Shutdown.
type GracefulShutdown interface {
	// Shutdown stops the component. Tasks it could not finish are reported
	// through the returned error.
	Shutdown() error
}
