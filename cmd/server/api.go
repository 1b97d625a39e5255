package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"mk48.io/internal/persistence/indexdb"
	"mk48.io/internal/protocol"
	"mk48.io/internal/sim/world"
)

// worldQueries is what the read API asks of the running world.
type worldQueries interface {
	ID() string
	CurrentTick() uint64
	RequestLeaderboard(ctx context.Context, limit int) ([]world.LeaderboardEntry, error)
	RequestPlayerStatus(ctx context.Context, id protocol.PlayerID) (protocol.StatusMsg, error)
}

type deathIndex interface {
	Deaths(ctx context.Context, id protocol.PlayerID, limit int) ([]indexdb.DeathRow, error)
	Stats() indexdb.Stats
}

func registerAPI(mux *http.ServeMux, w worldQueries, idx deathIndex) {
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP mk48_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE mk48_world_tick gauge\n")
		fmt.Fprintf(rw, "mk48_world_tick{world=%q} %d\n", w.ID(), w.CurrentTick())

		if idx == nil {
			return
		}
		s := idx.Stats()
		fmt.Fprintf(rw, "# HELP mk48_index_queue_depth Index writer queue depth.\n")
		fmt.Fprintf(rw, "# TYPE mk48_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "mk48_index_queue_depth{world=%q} %d\n", w.ID(), s.QueueDepth)

		fmt.Fprintf(rw, "# HELP mk48_index_dropped_total Index writes dropped under backpressure.\n")
		fmt.Fprintf(rw, "# TYPE mk48_index_dropped_total counter\n")
		fmt.Fprintf(rw, "mk48_index_dropped_total{world=%q,kind=%q} %d\n", w.ID(), "tick", s.DropTickTotal)
		fmt.Fprintf(rw, "mk48_index_dropped_total{world=%q,kind=%q} %d\n", w.ID(), "lifecycle", s.DropLifecycleTotal)
	})
	mux.HandleFunc("GET /v1/leaderboard", func(rw http.ResponseWriter, r *http.Request) {
		limit := 10
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				http.Error(rw, "bad limit", http.StatusBadRequest)
				return
			}
			limit = n
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		board, err := w.RequestLeaderboard(ctx, limit)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(rw, map[string]any{"world_id": w.ID(), "players": board})
	})
	mux.HandleFunc("GET /v1/players/{id}", func(rw http.ResponseWriter, r *http.Request) {
		id, ok := playerIDParam(rw, r)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		st, err := w.RequestPlayerStatus(ctx, id)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(rw, st)
	})
	mux.HandleFunc("GET /v1/players/{id}/deaths", func(rw http.ResponseWriter, r *http.Request) {
		if idx == nil {
			http.Error(rw, "index disabled", http.StatusServiceUnavailable)
			return
		}
		id, ok := playerIDParam(rw, r)
		if !ok {
			return
		}
		rows, err := idx.Deaths(r.Context(), id, 50)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		if rows == nil {
			rows = []indexdb.DeathRow{}
		}
		writeJSON(rw, map[string]any{"player_id": id, "deaths": rows})
	})
}

func playerIDParam(rw http.ResponseWriter, r *http.Request) (protocol.PlayerID, bool) {
	n, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil || n == 0 {
		http.Error(rw, "bad player id", http.StatusBadRequest)
		return 0, false
	}
	return protocol.PlayerID(n), true
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(v)
}
