package main

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"mk48.io/internal/persistence/indexdb"
)

func seededDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "world.sqlite")
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close index: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	for _, stmt := range []string{
		`INSERT INTO sessions(player_id,name,joined_tick,left_tick,final_score) VALUES (1,'ann',1,90,40),(2,'bob',3,NULL,NULL)`,
		`INSERT INTO deaths(tick,player_id,kind,killer,entity,x,y,score,level) VALUES
			(10,2,'WEAPON','P1','torpedo',0,0,5,1),
			(20,2,'RAMMING','P1',NULL,0,0,5,1),
			(30,1,'BORDER',NULL,NULL,2100,0,40,2)`,
		`INSERT INTO team_changes(tick,player_id,team_id) VALUES (5,1,7),(6,1,NULL)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return db
}

func TestRunQuery(t *testing.T) {
	db := seededDB(t)
	cases := []struct {
		query  string
		player int64
		want   []string
		lines  int
	}{
		{"sessions", 0, []string{`"name":"bob"`, `"left_tick":90`}, 2},
		{"deaths", 2, []string{`"kind":"RAMMING"`, `"entity":"torpedo"`}, 2},
		{"killers", 0, []string{`{"killer":"P1","kills":2}`}, 1},
		{"teams", 1, []string{`"team_id":null`, `"team_id":7`}, 2},
		{"ticks", 0, nil, 0},
	}
	for _, tc := range cases {
		var sb strings.Builder
		if err := runQuery(db, tc.query, 10, tc.player, &sb); err != nil {
			t.Fatalf("%s: %v", tc.query, err)
		}
		out := sb.String()
		if got := strings.Count(out, "\n"); got != tc.lines {
			t.Fatalf("%s: %d lines:\n%s", tc.query, got, out)
		}
		for _, w := range tc.want {
			if !strings.Contains(out, w) {
				t.Fatalf("%s: missing %s:\n%s", tc.query, w, out)
			}
		}
	}
}

func TestRunQuery_Unknown(t *testing.T) {
	db := seededDB(t)
	var sb strings.Builder
	err := runQuery(db, "trades", 10, 0, &sb)
	if err == nil || !strings.HasPrefix(err.Error(), "unknown query") {
		t.Fatalf("expected unknown query error, got %v", err)
	}
}
