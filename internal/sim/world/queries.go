package world

import (
	"context"
	"errors"
	"sort"

	"mk48.io/internal/protocol"
	"mk48.io/internal/sim/player"
)

// LeaderboardEntry is one row of the score table.
type LeaderboardEntry struct {
	PlayerID protocol.PlayerID `json:"player_id"`
	Name     string            `json:"name"`
	Score    uint32            `json:"score"`
	Level    uint8             `json:"level"`
	TeamID   *protocol.TeamID  `json:"team_id,omitempty"`
	Status   string            `json:"status"`
}

type leaderboardReq struct {
	Limit int
	Resp  chan []LeaderboardEntry
}

type playerReq struct {
	PlayerID protocol.PlayerID
	Resp     chan playerResp
}

type playerResp struct {
	Status protocol.StatusMsg
	Err    string
}

// Leaderboard returns up to limit players ordered by score, highest first.
// limit <= 0 returns everyone. Must be called on the world loop goroutine.
func (w *World) Leaderboard(limit int) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(w.players))
	for _, id := range w.playerIDs() {
		e := LeaderboardEntry{PlayerID: id, Name: w.names[id]}
		w.players[id].View(func(p *player.Player) {
			e.Score = p.Score
			e.Level = p.Level()
			e.Status = p.Status.Kind().String()
			if p.TeamID != nil {
				team := *p.TeamID
				e.TeamID = &team
			}
		})
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RequestLeaderboard returns the leaderboard from the world loop goroutine.
func (w *World) RequestLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if w == nil || w.boardQ == nil {
		return nil, errors.New("leaderboard query not available")
	}
	req := leaderboardReq{
		Limit: limit,
		Resp:  make(chan []LeaderboardEntry, 1),
	}
	select {
	case w.boardQ <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-req.Resp:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (w *World) handleLeaderboardReq(req leaderboardReq) {
	if req.Resp == nil {
		return
	}
	select {
	case req.Resp <- w.Leaderboard(req.Limit):
	default:
	}
}

// RequestPlayerStatus returns a player's current STATUS from the world loop goroutine.
func (w *World) RequestPlayerStatus(ctx context.Context, id protocol.PlayerID) (protocol.StatusMsg, error) {
	if w == nil || w.playerQ == nil {
		return protocol.StatusMsg{}, errors.New("player query not available")
	}
	req := playerReq{
		PlayerID: id,
		Resp:     make(chan playerResp, 1),
	}
	select {
	case w.playerQ <- req:
	case <-ctx.Done():
		return protocol.StatusMsg{}, ctx.Err()
	}
	select {
	case resp := <-req.Resp:
		if resp.Err != "" {
			return protocol.StatusMsg{}, errors.New(resp.Err)
		}
		return resp.Status, nil
	case <-ctx.Done():
		return protocol.StatusMsg{}, ctx.Err()
	}
}

func (w *World) handlePlayerReq(req playerReq) {
	resp := playerResp{}
	defer func() {
		if req.Resp == nil {
			return
		}
		select {
		case req.Resp <- resp:
		default:
		}
	}()
	msg, ok := w.statusMsg(req.PlayerID, w.tick.Load())
	if !ok {
		resp.Err = "player not found"
		return
	}
	resp.Status = msg
}
