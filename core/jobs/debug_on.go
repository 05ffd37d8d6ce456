//go:build jobsdebug

package jobs

// debugChecks enables handle validation on the hot path.
const debugChecks = true
