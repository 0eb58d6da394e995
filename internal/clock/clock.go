// Package clock supplies the logical time stamped on archived records.
//
// Production code injects a Sequence or Unix clock; tests inject Fixed to get
// deterministic created_at values.
package clock

import (
	"sync/atomic"
	"time"
)

// Logical returns a monotonically non-decreasing sequence marker.
type Logical interface {
	Now() uint64
}

// Sequence is a counter that advances by one on every reading.
type Sequence struct {
	last atomic.Uint64
}

// NewSequence returns a Sequence whose first reading is after+1. Seeding it
// with the highest created_at already stored keeps time monotonic across
// restarts.
func NewSequence(after uint64) *Sequence {
	s := &Sequence{}
	s.last.Store(after)
	return s
}

// Now implements Logical.
func (s *Sequence) Now() uint64 {
	return s.last.Add(1)
}

// Unix reports wall-clock seconds, clamped so that it never goes backwards
// and never drops below the seed.
type Unix struct {
	now  func() time.Time
	last atomic.Uint64
}

// NewUnix returns a Unix clock that never reports less than floor.
func NewUnix(floor uint64) *Unix {
	u := &Unix{now: time.Now}
	u.last.Store(floor)
	return u
}

// Now implements Logical.
func (u *Unix) Now() uint64 {
	wall := uint64(u.now().Unix())
	for {
		last := u.last.Load()
		if wall <= last {
			return last
		}
		if u.last.CompareAndSwap(last, wall) {
			return wall
		}
	}
}

// Fixed always reports the same value.
type Fixed uint64

// Now implements Logical.
func (f Fixed) Now() uint64 { return uint64(f) }

// Func adapts a plain function to Logical.
type Func func() uint64

// Now implements Logical.
func (f Func) Now() uint64 { return f() }
