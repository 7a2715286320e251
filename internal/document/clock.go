package document

import "sync/atomic"

// Clock is a monotonic logical counter stamping document versions.
//
// Every replacement of the live value tree advances the clock. Derived
// computations (hide/disable predicates, hidden-enumeration sets) record
// the version they were computed at and recompute only when the clock has
// advanced past their stamp. This gives the memoization contract without
// a reactive-programming dependency: staleness is decided by comparing
// two integers.
//
// Thread-safety: atomic, though the form core itself is single-threaded.
type Clock struct {
	version atomic.Int64
}

// NewClock creates a clock starting at version 1, so that a zero-valued
// cache stamp is always stale.
func NewClock() *Clock {
	c := &Clock{}
	c.version.Store(1)
	return c
}

// Advance moves to the next version and returns it.
func (c *Clock) Advance() int64 {
	return c.version.Add(1)
}

// Version returns the current version without advancing.
func (c *Clock) Version() int64 {
	return c.version.Load()
}
