package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"mk48.io/internal/sim/tuning"
	"mk48.io/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index of the world's JSONL logs.
// Writes are queued to a single writer goroutine and dropped when it falls behind.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick      atomic.Uint64
	dropLifecycle atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqLifecycle
)

type req struct {
	kind reqKind

	tick      world.TickLogEntry
	lifecycle world.LifecycleEntry
}

// Stats reports the writer queue state.
type Stats struct {
	QueueDepth         int    `json:"queue_depth"`
	QueueCapacity      int    `json:"queue_capacity"`
	DropTickTotal      uint64 `json:"drop_tick_total"`
	DropLifecycleTotal uint64 `json:"drop_lifecycle_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragmas: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tuning (
			digest TEXT PRIMARY KEY,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			joins INTEGER NOT NULL,
			leaves INTEGER NOT NULL,
			inputs INTEGER NOT NULL,
			players INTEGER NOT NULL,
			alive INTEGER NOT NULL,
			entities INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			player_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			joined_tick INTEGER NOT NULL,
			left_tick INTEGER,
			final_score INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS lifecycle (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			player_id INTEGER NOT NULL,
			event TEXT NOT NULL,
			score INTEGER NOT NULL,
			level INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_lifecycle_player_tick ON lifecycle(player_id, tick);`,
		`CREATE TABLE IF NOT EXISTS deaths (
			tick INTEGER NOT NULL,
			player_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			killer TEXT,
			entity TEXT,
			x REAL NOT NULL,
			y REAL NOT NULL,
			score INTEGER NOT NULL,
			level INTEGER NOT NULL,
			PRIMARY KEY (tick, player_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_deaths_killer ON deaths(killer);`,
		`CREATE TABLE IF NOT EXISTS team_changes (
			tick INTEGER NOT NULL,
			player_id INTEGER NOT NULL,
			team_id INTEGER,
			PRIMARY KEY (tick, player_id)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:         len(s.ch),
		QueueCapacity:      cap(s.ch),
		DropTickTotal:      s.dropTick.Load(),
		DropLifecycleTotal: s.dropLifecycle.Load(),
	}
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		// Drop if the indexer falls behind; JSONL logs remain the source of truth.
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteLifecycle(entry world.LifecycleEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqLifecycle, lifecycle: entry}:
	default:
		s.dropLifecycle.Add(1)
	}
	return nil
}

// UpsertTuning records the tuning values the server runs with.
func (s *SQLiteIndex) UpsertTuning(tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tune)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	digest := hex.EncodeToString(sum[:])
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('tuning_digest',?)`, digest); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO tuning(digest,json,updated_at) VALUES(?,?,?)`, digest, string(b), now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,joins,leaves,inputs,players,alive,entities,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertLifecycle, _ := s.db.Prepare(`INSERT OR REPLACE INTO lifecycle(tick,seq,player_id,event,score,level,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertSession, _ := s.db.Prepare(`INSERT OR REPLACE INTO sessions(player_id,name,joined_tick) VALUES(?,?,?)`)
	closeSession, _ := s.db.Prepare(`UPDATE sessions SET left_tick=?, final_score=? WHERE player_id=?`)
	insertDeath, _ := s.db.Prepare(`INSERT OR REPLACE INTO deaths(tick,player_id,kind,killer,entity,x,y,score,level) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertTeam, _ := s.db.Prepare(`INSERT OR REPLACE INTO team_changes(tick,player_id,team_id) VALUES(?,?,?)`)
	stmts := []*sql.Stmt{insertTick, insertLifecycle, insertSession, closeSession, insertDeath, insertTeam}
	defer func() {
		for _, st := range stmts {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		lastLifecycleTick uint64
		lifecycleSeq      int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			t := r.tick
			b, _ := json.Marshal(t)
			exec(insertTick,
				int64(t.Tick),
				len(t.Joins),
				len(t.Leaves),
				t.Inputs,
				t.Players,
				t.Alive,
				t.Entities,
				string(b),
			)

		case reqLifecycle:
			e := r.lifecycle
			if e.Tick != lastLifecycleTick {
				lastLifecycleTick = e.Tick
				lifecycleSeq = 0
			}
			seq := lifecycleSeq
			lifecycleSeq++
			raw, _ := json.Marshal(e)
			if !exec(insertLifecycle, int64(e.Tick), seq, int64(e.PlayerID), e.Event, int64(e.Score), int(e.Level), string(raw)) {
				continue
			}
			switch e.Event {
			case world.EventJoin:
				exec(insertSession, int64(e.PlayerID), e.Name, int64(e.Tick))
			case world.EventLeave:
				exec(closeSession, int64(e.Tick), int64(e.Score), int64(e.PlayerID))
			case world.EventDeath:
				var (
					kind, killer, entity string
					x, y                 float64
				)
				if e.Reason != nil {
					kind, killer, entity = string(e.Reason.Kind), e.Reason.Killer, e.Reason.Entity
				}
				if e.Position != nil {
					x, y = float64(e.Position.X), float64(e.Position.Y)
				}
				exec(insertDeath, int64(e.Tick), int64(e.PlayerID), kind, nullString(killer), nullString(entity), x, y, int64(e.Score), int(e.Level))
			case world.EventTeam:
				var team any
				if e.TeamID != nil {
					team = int64(*e.TeamID)
				}
				exec(insertTeam, int64(e.Tick), int64(e.PlayerID), team)
			}
		}
		flushIfNeeded()
	}

	commit()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
