package player

import (
	"fmt"

	"mk48.io/internal/protocol"
	"mk48.io/internal/sim/refcell"
)

// Avatar is the capability to touch a player's Extension. It is implemented by
// the world's boat entity; holding an Avatar means holding that boat exclusively.
type Avatar interface {
	// Owner is the tuple of the player controlling the boat.
	Owner() *Tuple
}

// Tuple pairs a Player with its Extension.
//
// The Player half sits in a refcell.Cell: the tick loop and session code
// serialize their access to it, and the cell turns any overlap into an
// immediate panic instead of a silent race.
//
// The Extension half has no synchronization at all. It is logically owned by
// the player's boat, and only code that holds that boat exclusively may reach
// it, through UnsafeExtension or UnsafeExtensionMut. The world gives at most one
// call path exclusive hold of a boat at any time, which is what makes sharing a
// *Tuple between goroutines sound.
//
// Tuples compare by identity: use Equal or ==, never compare contents.
type Tuple struct {
	player    *refcell.Cell[Player]
	extension Extension
}

// NewTuple allocates a tuple for a fresh player.
func NewTuple(id protocol.PlayerID) *Tuple {
	return NewTupleFrom(New(id))
}

// NewTupleFrom allocates a tuple around p and a default Extension.
func NewTupleFrom(p Player) *Tuple {
	return &Tuple{player: refcell.New(p)}
}

// Borrow borrows the player. It panics with a *refcell.BorrowError while the
// player is mutably borrowed. Release the guard when done.
func (t *Tuple) Borrow() *refcell.Ref[Player] { return t.player.Borrow() }

// BorrowMut mutably borrows the player. It panics with a *refcell.BorrowError
// while any other borrow is outstanding. Release the guard when done.
func (t *Tuple) BorrowMut() *refcell.RefMut[Player] { return t.player.BorrowMut() }

// View runs fn with the player borrowed.
func (t *Tuple) View(fn func(p *Player)) { t.player.View(fn) }

// Update runs fn with the player mutably borrowed.
func (t *Tuple) Update(fn func(p *Player)) { t.player.Update(fn) }

// UnsafeExtension returns the extension for reading.
//
// Proof obligation: the caller holds boat exclusively for as long as it uses the
// pointer, and does not write through it. No lock is taken; the only check is
// that boat belongs to this tuple.
func (t *Tuple) UnsafeExtension(boat Avatar) *Extension {
	t.checkAvatar(boat)
	return &t.extension
}

// UnsafeExtensionMut returns the extension for writing.
//
// Proof obligation: as for UnsafeExtension, and no other call path on any
// goroutine may be reading or writing the extension at the same time. Holding
// boat exclusively guarantees that, since every access goes through it.
func (t *Tuple) UnsafeExtensionMut(boat Avatar) *Extension {
	t.checkAvatar(boat)
	return &t.extension
}

func (t *Tuple) checkAvatar(boat Avatar) {
	if boat == nil {
		panic("player: extension access without an avatar")
	}
	if owner := boat.Owner(); owner != t {
		panic(fmt.Sprintf("player: extension of %s accessed through avatar owned by %s", t, owner))
	}
}

// Equal reports whether t and o are the same allocation.
func (t *Tuple) Equal(o *Tuple) bool { return t == o }

// String formats the player without panicking while it is mutably borrowed.
func (t *Tuple) String() string {
	if t == nil {
		return "<nil>"
	}
	r, err := t.player.TryBorrow()
	if err != nil {
		return "Player{<borrowed>}"
	}
	defer r.Release()
	return r.Get().String()
}
