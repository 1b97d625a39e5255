// Package refcell provides a goroutine-safe cell with runtime-checked borrows.
//
// A Cell admits either any number of shared borrows or a single exclusive borrow.
// A borrow that conflicts with one already outstanding never waits: Borrow and
// BorrowMut panic with a *BorrowError, TryBorrow and TryBorrowMut return it.
// Conflicts mean two call paths disagree about who owns the value right now,
// which is a bug in the caller and not contention to be waited out.
package refcell

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrBorrowConflict is matched by every *BorrowError.
var ErrBorrowConflict = errors.New("refcell: borrow conflict")

// Access names the kind of borrow.
type Access uint8

const (
	Shared Access = iota + 1
	Exclusive
)

func (a Access) String() string {
	switch a {
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	default:
		return "none"
	}
}

// BorrowError reports a borrow that was refused.
type BorrowError struct {
	Want Access
	// Held is the access already outstanding when the borrow was attempted.
	Held Access
	// Readers is the number of shared borrows observed (0 when Held is Exclusive).
	Readers int64
}

func (e *BorrowError) Error() string {
	if e.Held == Exclusive {
		return fmt.Sprintf("refcell: %s borrow while exclusively borrowed", e.Want)
	}
	return fmt.Sprintf("refcell: %s borrow while %d shared borrow(s) outstanding", e.Want, e.Readers)
}

func (e *BorrowError) Unwrap() error { return ErrBorrowConflict }

// writing marks an outstanding exclusive borrow. Non-negative values count readers.
const writing int64 = -1

// Cell holds a T behind runtime borrow tracking. The zero value holds the zero T
// and is ready to use. A Cell must not be copied after first use.
type Cell[T any] struct {
	state atomic.Int64
	value T
}

// New returns a cell holding v.
func New[T any](v T) *Cell[T] {
	return &Cell[T]{value: v}
}

// Ref is an outstanding shared borrow.
type Ref[T any] struct {
	cell *Cell[T]
}

// RefMut is an outstanding exclusive borrow.
type RefMut[T any] struct {
	cell *Cell[T]
}

// TryBorrow takes a shared borrow, or reports why it cannot.
func (c *Cell[T]) TryBorrow() (*Ref[T], error) {
	for {
		s := c.state.Load()
		if s == writing {
			return nil, &BorrowError{Want: Shared, Held: Exclusive}
		}
		if c.state.CompareAndSwap(s, s+1) {
			return &Ref[T]{cell: c}, nil
		}
	}
}

// TryBorrowMut takes the exclusive borrow, or reports why it cannot.
func (c *Cell[T]) TryBorrowMut() (*RefMut[T], error) {
	for {
		s := c.state.Load()
		switch {
		case s == writing:
			return nil, &BorrowError{Want: Exclusive, Held: Exclusive}
		case s > 0:
			return nil, &BorrowError{Want: Exclusive, Held: Shared, Readers: s}
		}
		// s was 0; a reader may slip in before the swap, so look again.
		if c.state.CompareAndSwap(0, writing) {
			return &RefMut[T]{cell: c}, nil
		}
	}
}

// Borrow takes a shared borrow. It panics with a *BorrowError if the cell is
// exclusively borrowed.
func (c *Cell[T]) Borrow() *Ref[T] {
	r, err := c.TryBorrow()
	if err != nil {
		panic(err)
	}
	return r
}

// BorrowMut takes the exclusive borrow. It panics with a *BorrowError if any
// other borrow is outstanding.
func (c *Cell[T]) BorrowMut() *RefMut[T] {
	r, err := c.TryBorrowMut()
	if err != nil {
		panic(err)
	}
	return r
}

// View runs fn under a shared borrow that is released when fn returns or panics.
func (c *Cell[T]) View(fn func(v *T)) {
	r := c.Borrow()
	defer r.Release()
	fn(r.Get())
}

// Update runs fn under the exclusive borrow that is released when fn returns or panics.
func (c *Cell[T]) Update(fn func(v *T)) {
	r := c.BorrowMut()
	defer r.Release()
	fn(r.Get())
}

// IsBorrowed reports whether any borrow is outstanding.
func (c *Cell[T]) IsBorrowed() bool { return c.state.Load() != 0 }

// IsBorrowedMut reports whether the exclusive borrow is outstanding.
func (c *Cell[T]) IsBorrowedMut() bool { return c.state.Load() == writing }

// Get returns the borrowed value. The pointer must not outlive the guard and
// must not be written through.
func (r *Ref[T]) Get() *T {
	if r.cell == nil {
		panic("refcell: use of released Ref")
	}
	return &r.cell.value
}

// Release ends the shared borrow. Releasing twice panics.
func (r *Ref[T]) Release() {
	if r.cell == nil {
		panic("refcell: Ref released twice")
	}
	r.cell.state.Add(-1)
	r.cell = nil
}

// Get returns the borrowed value. The pointer must not outlive the guard.
func (r *RefMut[T]) Get() *T {
	if r.cell == nil {
		panic("refcell: use of released RefMut")
	}
	return &r.cell.value
}

// Release ends the exclusive borrow. Releasing twice panics.
func (r *RefMut[T]) Release() {
	if r.cell == nil {
		panic("refcell: RefMut released twice")
	}
	r.cell.state.Store(0)
	r.cell = nil
}

