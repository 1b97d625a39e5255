package player

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"mk48.io/internal/sim/refcell"
)

type fakeBoat struct{ owner *Tuple }

func (b *fakeBoat) Owner() *Tuple { return b.owner }

func TestTuple_IdentityEquality(t *testing.T) {
	a := NewTuple(7)
	b := NewTuple(7)
	if a.Equal(b) || a == b {
		t.Fatalf("distinct tuples with the same id must not be equal")
	}
	if !a.Equal(a) {
		t.Fatalf("tuple must equal itself")
	}
}

func TestTuple_BorrowDiscipline(t *testing.T) {
	tp := NewTuple(1)
	r1 := tp.Borrow()
	r2 := tp.Borrow()
	if r1.Get() != r2.Get() {
		t.Fatalf("readers should see the same player")
	}

	var got any
	func() {
		defer func() { got = recover() }()
		tp.BorrowMut()
	}()
	if err, _ := got.(error); !errors.Is(err, refcell.ErrBorrowConflict) {
		t.Fatalf("BorrowMut while reading: got %v", got)
	}
	r1.Release()
	r2.Release()

	tp.Update(func(p *Player) { p.Score = 10 })
	tp.View(func(p *Player) {
		if p.Score != 10 {
			t.Fatalf("score: %d", p.Score)
		}
	})
}

func TestTuple_ConcurrentBorrowFailsFast(t *testing.T) {
	tp := NewTuple(1)
	w := tp.BorrowMut()
	w.Get().Score = 42

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, mut := range []bool{false, true} {
		wg.Add(1)
		go func(mut bool) {
			defer wg.Done()
			defer func() {
				p := recover()
				err, _ := p.(error)
				errs <- err
			}()
			if mut {
				tp.BorrowMut()
			} else {
				tp.Borrow()
			}
		}(mut)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		var be *refcell.BorrowError
		if !errors.As(err, &be) || be.Held != refcell.Exclusive {
			t.Fatalf("want exclusive-held borrow error, got %v", err)
		}
	}
	w.Release()

	r := tp.Borrow()
	defer r.Release()
	if r.Get().Score != 42 {
		t.Fatalf("writer's update lost")
	}
}

func TestTuple_ExtensionRequiresOwningAvatar(t *testing.T) {
	tp := NewTuple(1)
	boat := &fakeBoat{owner: tp}

	ext := tp.UnsafeExtensionMut(boat)
	ext.Reset(3, 10)
	ext.Reloads[1] = 2

	if got := tp.UnsafeExtension(boat); got != ext || got.ClaimedTick != 10 || len(got.Reloads) != 3 {
		t.Fatalf("read accessor should see the same extension: %+v", got)
	}

	other := &fakeBoat{owner: NewTuple(2)}
	defer func() {
		p := recover()
		if p == nil {
			t.Fatalf("expected panic for foreign avatar")
		}
		if s, _ := p.(string); !strings.Contains(s, "avatar owned by") {
			t.Fatalf("unexpected panic: %v", p)
		}
	}()
	tp.UnsafeExtension(other)
}

func TestTuple_ExtensionDoesNotTouchBorrowState(t *testing.T) {
	tp := NewTuple(1)
	boat := &fakeBoat{owner: tp}
	w := tp.BorrowMut()
	defer w.Release()
	// Extension access is independent of the player's borrow.
	tp.UnsafeExtensionMut(boat).AltitudeTarget = -5
	if tp.UnsafeExtension(boat).AltitudeTarget != -5 {
		t.Fatalf("altitude not stored")
	}
}

func TestTuple_StringWhileBorrowed(t *testing.T) {
	tp := NewTuple(3)
	if s := tp.String(); !strings.Contains(s, "P3") {
		t.Fatalf("String: %q", s)
	}
	w := tp.BorrowMut()
	defer w.Release()
	if s := tp.String(); s != "Player{<borrowed>}" {
		t.Fatalf("String while borrowed: %q", s)
	}
}
