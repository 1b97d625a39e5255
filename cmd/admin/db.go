package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const dbUsage = "usage: admin db [-data ./data] [-world WORLD|-db PATH] [-limit N] [-player ID] sessions|deaths|killers|teams|ticks"

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	playerID := fs.Int64("player", 0, "player_id filter (deaths, teams)")
	_ = fs.Parse(args)

	q := "sessions"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := runQuery(db, q, *limit, *playerID, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if strings.HasPrefix(err.Error(), "unknown query") {
			fmt.Fprintln(os.Stderr, dbUsage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// runQuery prints one JSON object per row of the named index query.
func runQuery(db *sql.DB, q string, limit int, playerID int64, out io.Writer) error {
	if limit <= 0 {
		limit = 20
	}
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	switch q {
	case "sessions":
		rows, err := db.Query(`SELECT player_id,name,joined_tick,left_tick,final_score FROM sessions ORDER BY joined_tick DESC, player_id DESC LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				PlayerID   int64         `json:"player_id"`
				Name       string        `json:"name"`
				JoinedTick int64         `json:"joined_tick"`
				LeftTick   sql.NullInt64 `json:"-"`
				FinalScore sql.NullInt64 `json:"-"`
				Left       *int64        `json:"left_tick,omitempty"`
				Score      *int64        `json:"final_score,omitempty"`
			}
			if err := rows.Scan(&r.PlayerID, &r.Name, &r.JoinedTick, &r.LeftTick, &r.FinalScore); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			if r.LeftTick.Valid {
				r.Left = &r.LeftTick.Int64
			}
			if r.FinalScore.Valid {
				r.Score = &r.FinalScore.Int64
			}
			_ = enc.Encode(r)
		}
		return rows.Err()

	case "deaths":
		query := `SELECT tick,player_id,kind,COALESCE(killer,''),COALESCE(entity,''),x,y,score,level FROM deaths ORDER BY tick DESC LIMIT ?`
		args := []any{limit}
		if playerID != 0 {
			query = `SELECT tick,player_id,kind,COALESCE(killer,''),COALESCE(entity,''),x,y,score,level FROM deaths WHERE player_id=? ORDER BY tick DESC LIMIT ?`
			args = []any{playerID, limit}
		}
		rows, err := db.Query(query, args...)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick     int64   `json:"tick"`
				PlayerID int64   `json:"player_id"`
				Kind     string  `json:"kind"`
				Killer   string  `json:"killer,omitempty"`
				Entity   string  `json:"entity,omitempty"`
				X        float64 `json:"x"`
				Y        float64 `json:"y"`
				Score    int64   `json:"score"`
				Level    int     `json:"level"`
			}
			if err := rows.Scan(&r.Tick, &r.PlayerID, &r.Kind, &r.Killer, &r.Entity, &r.X, &r.Y, &r.Score, &r.Level); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			_ = enc.Encode(r)
		}
		return rows.Err()

	case "killers":
		rows, err := db.Query(`SELECT killer,COUNT(*) AS kills FROM deaths WHERE killer IS NOT NULL GROUP BY killer ORDER BY kills DESC, killer LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Killer string `json:"killer"`
				Kills  int    `json:"kills"`
			}
			if err := rows.Scan(&r.Killer, &r.Kills); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			_ = enc.Encode(r)
		}
		return rows.Err()

	case "teams":
		query := `SELECT tick,player_id,team_id FROM team_changes ORDER BY tick DESC LIMIT ?`
		args := []any{limit}
		if playerID != 0 {
			query = `SELECT tick,player_id,team_id FROM team_changes WHERE player_id=? ORDER BY tick DESC LIMIT ?`
			args = []any{playerID, limit}
		}
		rows, err := db.Query(query, args...)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				r struct {
					Tick     int64  `json:"tick"`
					PlayerID int64  `json:"player_id"`
					TeamID   *int64 `json:"team_id"`
				}
				team sql.NullInt64
			)
			if err := rows.Scan(&r.Tick, &r.PlayerID, &team); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			if team.Valid {
				r.TeamID = &team.Int64
			}
			_ = enc.Encode(r)
		}
		return rows.Err()

	case "ticks":
		rows, err := db.Query(`SELECT tick,joins,leaves,inputs,players,alive,entities FROM ticks ORDER BY tick DESC LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick     int64 `json:"tick"`
				Joins    int   `json:"joins"`
				Leaves   int   `json:"leaves"`
				Inputs   int   `json:"inputs"`
				Players  int   `json:"players"`
				Alive    int   `json:"alive"`
				Entities int   `json:"entities"`
			}
			if err := rows.Scan(&r.Tick, &r.Joins, &r.Leaves, &r.Inputs, &r.Players, &r.Alive, &r.Entities); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			_ = enc.Encode(r)
		}
		return rows.Err()

	default:
		return fmt.Errorf("unknown query: %s", q)
	}
}
