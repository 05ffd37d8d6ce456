// Package pool
// Author: momentics <momentics@gmail.com>
//
// Fixed-capacity arenas addressed by 16-bit slot index. Records never move, so
// a slot index stays valid as a handle for as long as it is allocated.
// See slot_pool.go.
package pool
