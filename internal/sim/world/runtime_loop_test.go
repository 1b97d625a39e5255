package world

import (
	"context"
	"testing"
	"time"

	"mk48.io/internal/protocol"
)

func TestRun_JoinQueryAndStatusPush(t *testing.T) {
	w := newTestWorld(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	out := make(chan []byte, 16)
	resp := make(chan JoinResponse, 1)
	w.Join() <- JoinRequest{Name: "alice", Out: out, Resp: resp}

	var r JoinResponse
	select {
	case r = <-resp:
	case <-ctx.Done():
		t.Fatalf("join timed out")
	}
	if r.Code != "" || r.Welcome.PlayerID == 0 || r.Welcome.TickRateHz != 10 {
		t.Fatalf("welcome: %+v", r)
	}
	id := r.Welcome.PlayerID

	select {
	case b := <-out:
		base, err := protocol.DecodeBase(b)
		if err != nil || base.Type != protocol.TypeStatus {
			t.Fatalf("first push: %s (%v)", b, err)
		}
	case <-ctx.Done():
		t.Fatalf("status push timed out")
	}

	board, err := w.RequestLeaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 1 || board[0].Name != "alice" {
		t.Fatalf("board: %+v", board)
	}

	w.Inbox() <- InputEnvelope{PlayerID: id, Input: protocol.InputMsg{Type: protocol.TypeInput, Spawn: true}}
	deadline := time.Now().Add(3 * time.Second)
	for {
		st, err := w.RequestPlayerStatus(ctx, id)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if st.Status == protocol.StatusAlive {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("player never spawned: %+v", st)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if _, err := w.RequestPlayerStatus(ctx, 999); err == nil {
		t.Fatalf("expected unknown player error")
	}

	w.Stop()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestStepOnce_ReturnsTick(t *testing.T) {
	w := newTestWorld(t)
	if got := w.StepOnce(nil, nil, nil); got != 0 {
		t.Fatalf("first tick: %d", got)
	}
	if got := w.StepOnce(nil, nil, nil); got != 1 {
		t.Fatalf("second tick: %d", got)
	}
	if w.CurrentTick() != 2 {
		t.Fatalf("current: %d", w.CurrentTick())
	}
}
