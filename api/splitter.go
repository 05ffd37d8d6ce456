// Package api
// Author: momentics <momentics@gmail.com>
//
// Split policy contract for recursive range decomposition.

package api

// Splitter decides whether a range of count elements, already split depth
// times, should be halved again. Splitting only affects performance, never
// results.
type Splitter interface {
	Split(depth uint8, count uint32) bool
}

// SplitterFunc adapts a plain function to Splitter.
type SplitterFunc func(depth uint8, count uint32) bool

// Split calls f.
func (f SplitterFunc) Split(depth uint8, count uint32) bool {
	return f(depth, count)
}
