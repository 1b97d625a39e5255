package player

import (
	"errors"
	"testing"

	"mk48.io/internal/protocol"
)

func expectInvalidState(t *testing.T, fn func()) *InvalidStateError {
	t.Helper()
	var got any
	func() {
		defer func() { got = recover() }()
		fn()
	}()
	err, ok := got.(error)
	if !ok {
		t.Fatalf("expected *InvalidStateError panic, got %v", got)
	}
	var ise *InvalidStateError
	if !errors.As(err, &ise) || !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected *InvalidStateError, got %v", err)
	}
	return ise
}

func TestNewAlive(t *testing.T) {
	s := NewAlive(3)
	if !s.IsAlive() || s.Kind() != Alive {
		t.Fatalf("NewAlive should be alive: %s", s)
	}
	idx, ok := s.EntityIndex()
	if !ok || idx != 3 {
		t.Fatalf("EntityIndex: got %v,%v want 3,true", idx, ok)
	}
	if _, ok := s.AimTarget(); ok {
		t.Fatalf("fresh alive status should have no aim target")
	}
	if s.Since().IsZero() {
		t.Fatalf("since should be stamped")
	}
}

func TestSetEntityIndex_PreservesAimAndSince(t *testing.T) {
	s := NewAlive(1)
	since := s.Since()
	if !s.SetAimTarget(&protocol.Vec2{X: 4, Y: 5}) {
		t.Fatalf("SetAimTarget on alive should apply")
	}
	s.SetEntityIndex(9)
	if idx := s.MustEntityIndex(); idx != 9 {
		t.Fatalf("index: got %v want 9", idx)
	}
	aim, ok := s.AimTarget()
	if !ok || aim != (protocol.Vec2{X: 4, Y: 5}) {
		t.Fatalf("aim lost: %v %v", aim, ok)
	}
	if !s.Since().Equal(since) {
		t.Fatalf("since changed")
	}
}

func TestSetEntityIndex_NonAlivePanics(t *testing.T) {
	cases := map[string]Status{
		"spawning": NewSpawning(),
		"dead":     NewDead(protocol.DeathReason{Kind: protocol.DeathBorder}, protocol.Vec2{X: 1}, 500),
		"zero":     {},
	}
	for name, s := range cases {
		before := s
		ise := expectInvalidState(t, func() { s.SetEntityIndex(5) })
		if ise.Op != "SetEntityIndex" {
			t.Fatalf("%s: op=%q", name, ise.Op)
		}
		if s != before {
			t.Fatalf("%s: status mutated by failed SetEntityIndex", name)
		}
		if _, ok := s.EntityIndex(); ok {
			t.Fatalf("%s: non-alive status reported an index", name)
		}
	}
}

func TestSetAimTarget_IgnoredUnlessAlive(t *testing.T) {
	s := NewSpawning()
	if s.SetAimTarget(&protocol.Vec2{X: 1}) {
		t.Fatalf("spawning status accepted aim target")
	}
	a := NewAlive(0)
	target := protocol.Vec2{X: 1, Y: 1}
	a.SetAimTarget(&target)
	target.X = 100
	if got, _ := a.AimTarget(); got.X != 1 {
		t.Fatalf("aim target must be copied, got %v", got)
	}
	a.SetAimTarget(nil)
	if _, ok := a.AimTarget(); ok {
		t.Fatalf("nil should clear aim target")
	}
}

func TestNewDead(t *testing.T) {
	reason := protocol.DeathReason{Kind: protocol.DeathWeapon, Killer: "P2"}
	s := NewDead(reason, protocol.Vec2{X: 7, Y: -3}, 640)
	if s.IsAlive() || s.Kind() != Dead {
		t.Fatalf("dead status reported alive")
	}
	d, ok := s.Death()
	if !ok || d.Reason != reason || d.Position != (protocol.Vec2{X: 7, Y: -3}) || d.VisualRange != 640 {
		t.Fatalf("death info: %+v %v", d, ok)
	}
	if _, ok := NewAlive(0).Death(); ok {
		t.Fatalf("alive status reported death info")
	}
}

func TestStatusKindStrings(t *testing.T) {
	if Spawning.String() != protocol.StatusSpawning || Alive.String() != protocol.StatusAlive || Dead.String() != protocol.StatusDead {
		t.Fatalf("status names must match wire names")
	}
	var zero Status
	if zero.Kind() != Spawning {
		t.Fatalf("zero status should be spawning")
	}
}
