//go:build !jobsdebug

package jobs

const debugChecks = false
