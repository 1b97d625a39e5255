package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mk48.io/internal/persistence/indexdb"
	"mk48.io/internal/protocol"
	"mk48.io/internal/sim/world"
)

type fakeWorld struct {
	board []world.LeaderboardEntry
	limit int
}

func (f *fakeWorld) ID() string          { return "w1" }
func (f *fakeWorld) CurrentTick() uint64 { return 42 }

func (f *fakeWorld) RequestLeaderboard(ctx context.Context, limit int) ([]world.LeaderboardEntry, error) {
	f.limit = limit
	return f.board, nil
}

func (f *fakeWorld) RequestPlayerStatus(ctx context.Context, id protocol.PlayerID) (protocol.StatusMsg, error) {
	if id != 1 {
		return protocol.StatusMsg{}, errors.New("player not found")
	}
	return protocol.StatusMsg{Type: protocol.TypeStatus, PlayerID: 1, Status: protocol.StatusDead}, nil
}

type fakeIndex struct{}

func (fakeIndex) Deaths(ctx context.Context, id protocol.PlayerID, limit int) ([]indexdb.DeathRow, error) {
	return []indexdb.DeathRow{{Tick: 9, Kind: protocol.DeathBorder}}, nil
}

func (fakeIndex) Stats() indexdb.Stats { return indexdb.Stats{QueueDepth: 3, DropTickTotal: 1} }

func newTestMux(idx deathIndex) (*http.ServeMux, *fakeWorld) {
	w := &fakeWorld{board: []world.LeaderboardEntry{{PlayerID: 2, Name: "bob", Score: 30}}}
	mux := http.NewServeMux()
	registerAPI(mux, w, idx)
	return mux, w
}

func get(mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestAPI_Leaderboard(t *testing.T) {
	mux, w := newTestMux(nil)
	rec := get(mux, "/v1/leaderboard?limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if w.limit != 5 {
		t.Fatalf("limit=%d", w.limit)
	}
	var resp struct {
		WorldID string                   `json:"world_id"`
		Players []world.LeaderboardEntry `json:"players"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.WorldID != "w1" || len(resp.Players) != 1 || resp.Players[0].Name != "bob" {
		t.Fatalf("resp: %+v", resp)
	}

	if rec := get(mux, "/v1/leaderboard?limit=x"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status=%d", rec.Code)
	}
}

func TestAPI_PlayerStatus(t *testing.T) {
	mux, _ := newTestMux(nil)
	rec := get(mux, "/v1/players/1")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"DEAD"`) {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec := get(mux, "/v1/players/7"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown status=%d", rec.Code)
	}
	if rec := get(mux, "/v1/players/abc"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", rec.Code)
	}
}

func TestAPI_Deaths(t *testing.T) {
	mux, _ := newTestMux(nil)
	if rec := get(mux, "/v1/players/1/deaths"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("disabled index status=%d", rec.Code)
	}

	mux, _ = newTestMux(fakeIndex{})
	rec := get(mux, "/v1/players/1/deaths")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"BORDER"`) {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestAPI_Metrics(t *testing.T) {
	mux, _ := newTestMux(fakeIndex{})
	body := get(mux, "/metrics").Body.String()
	for _, want := range []string{
		`mk48_world_tick{world="w1"} 42`,
		`mk48_index_queue_depth{world="w1"} 3`,
		`mk48_index_dropped_total{world="w1",kind="tick"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestConsoleLifecycle(t *testing.T) {
	var sb strings.Builder
	c := consoleLifecycle{log: log.New(&sb, "", 0)}
	_ = c.WriteLifecycle(world.LifecycleEntry{Tick: 3, PlayerID: 4, Event: world.EventDeath,
		Reason: &protocol.DeathReason{Kind: protocol.DeathWeapon, Killer: "P2", Entity: "torpedo"}})
	_ = c.WriteLifecycle(world.LifecycleEntry{Tick: 3, PlayerID: 4, Event: world.EventSpawn})
	out := sb.String()
	if !strings.Contains(out, "tick=3 P4 sunk: WEAPON by P2 (torpedo)") {
		t.Fatalf("log: %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("spawn should not be logged: %q", out)
	}
}
