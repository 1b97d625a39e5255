package main

import (
	"math/rand"
	"testing"

	"mk48.io/internal/protocol"
)

func TestBrain_SpawnsThenJoinsTeamThenAims(t *testing.T) {
	b := &brain{r: rand.New(rand.NewSource(1)), team: protocol.TeamPtr(4)}

	in := b.decide(protocol.StatusMsg{Tick: 1, Status: protocol.StatusSpawning})
	if in == nil || !in.Spawn {
		t.Fatalf("expected spawn, got %+v", in)
	}
	if in := b.decide(protocol.StatusMsg{Tick: 2, Status: protocol.StatusSpawning}); in != nil {
		t.Fatalf("spawn should not repeat every tick: %+v", in)
	}

	cam := protocol.CameraV1{Center: protocol.Vec2{X: 100, Y: 100}, Radius: 400}
	in = b.decide(protocol.StatusMsg{Tick: 3, Status: protocol.StatusAlive, Camera: cam})
	if in == nil || in.Team == nil || *in.Team != 4 {
		t.Fatalf("expected team join, got %+v", in)
	}
	in = b.decide(protocol.StatusMsg{Tick: 50, Status: protocol.StatusAlive, Camera: cam})
	if in == nil || in.Aim == nil {
		t.Fatalf("expected aim, got %+v", in)
	}
	if d := in.Aim.Distance(cam.Center); d > cam.Radius {
		t.Fatalf("aim outside camera: %v", d)
	}
	if in := b.decide(protocol.StatusMsg{Tick: 51, Status: protocol.StatusAlive, Camera: cam}); in != nil {
		t.Fatalf("aim should hold between turns: %+v", in)
	}

	in = b.decide(protocol.StatusMsg{Tick: 53, Status: protocol.StatusDead})
	if in == nil || !in.Spawn {
		t.Fatalf("expected respawn after death, got %+v", in)
	}
}
