package world

import (
	"context"
	"time"

	"mk48.io/internal/protocol"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingInputs []InputEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []protocol.PlayerID

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-w.leave:
			pendingLeaves = append(pendingLeaves, id)
		case req := <-w.boardQ:
			w.handleLeaderboardReq(req)
		case req := <-w.playerQ:
			w.handlePlayerReq(req)
		case env := <-w.inbox:
			pendingInputs = append(pendingInputs, env)
		case <-ticker.C:
			w.step(pendingJoins, pendingLeaves, pendingInputs)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingInputs = pendingInputs[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick using the same ordering semantics as the server.
// It is primarily intended for replays and tests.
func (w *World) StepOnce(joins []JoinRequest, leaves []protocol.PlayerID, inputs []InputEnvelope) (tick uint64) {
	tick = w.tick.Load()
	w.step(joins, leaves, inputs)
	return tick
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
