package log

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mk48.io/internal/protocol"
	"mk48.io/internal/sim/world"
)

func TestWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2024, 3, 1, 10, 59, 0, 0, time.UTC)
	w := NewWriter(dir, "x", WithClock(func() time.Time { return at }))

	if err := w.Write(map[string]int{"n": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	at = at.Add(2 * time.Minute)
	if err := w.Write(map[string]int{"n": 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := Files(dir, "x")
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files: %v", files)
	}
	if filepath.Base(files[0]) != "x-2024-03-01-10.jsonl.zst" || filepath.Base(files[1]) != "x-2024-03-01-11.jsonl.zst" {
		t.Fatalf("names: %v", files)
	}
}

func TestWriter_MinuteRotationAndReopen(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2024, 3, 1, 10, 7, 30, 0, time.FixedZone("x", 3600))
	clock := WithClock(func() time.Time { return at })

	w := NewWriter(dir, "x", clock, WithRotation(15*time.Minute))
	for i := 0; i < 3; i++ {
		if err := w.Write(map[string]int{"n": i}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if w.Entries() != 3 {
		t.Fatalf("entries: got %d want 3", w.Entries())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// A second writer appends to the same segment.
	w = NewWriter(dir, "x", clock, WithRotation(15*time.Minute))
	if err := w.Write(map[string]int{"n": 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := Files(dir, "x")
	if err != nil || len(files) != 1 {
		t.Fatalf("files: %v %v", files, err)
	}
	if got := filepath.Base(files[0]); got != "x-2024-03-01-0900.jsonl.zst" {
		t.Fatalf("name: %s", got)
	}
	lines := 0
	if err := ReadJSONLZstd(files[0], func([]byte) error { lines++; return nil }); err != nil {
		t.Fatalf("read: %v", err)
	}
	if lines != 4 {
		t.Fatalf("lines: got %d want 4", lines)
	}
}

func TestWriter_CloseWithoutWrites(t *testing.T) {
	dir := t.TempDir()
	if err := NewWriter(dir, "x").Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if files, _ := Files(dir, "x"); len(files) != 0 {
		t.Fatalf("unexpected files %v", files)
	}
}

func TestLifecycleLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewLifecycleLogger(dir)
	pos := protocol.Vec2{X: 1, Y: 2}
	entries := []world.LifecycleEntry{
		{Tick: 1, PlayerID: 3, Event: world.EventJoin, Name: "ann"},
		{Tick: 9, PlayerID: 3, Event: world.EventDeath, Score: 40, Level: 1, Position: &pos,
			Reason: &protocol.DeathReason{Kind: protocol.DeathWeapon, Killer: "P4"}},
	}
	for _, e := range entries {
		if err := l.WriteLifecycle(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := Files(filepath.Join(dir, "lifecycle"), "lifecycle")
	if err != nil || len(files) != 1 {
		t.Fatalf("files: %v %v", files, err)
	}
	var got []world.LifecycleEntry
	err = ReadJSONLZstd(files[0], func(b []byte) error {
		var e world.LifecycleEntry
		if err := json.Unmarshal(b, &e); err != nil {
			return err
		}
		got = append(got, e)
		return nil
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("entries: %+v", got)
	}
	if got[1].Reason == nil || got[1].Reason.Killer != "P4" || got[1].Position == nil || *got[1].Position != pos {
		t.Fatalf("death entry: %+v", got[1])
	}
}

func TestTickLogger_WritesUnderTicksDir(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	if err := l.WriteTick(world.TickLogEntry{Tick: 5, Players: 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	ents, err := os.ReadDir(filepath.Join(dir, "ticks"))
	if err != nil || len(ents) != 1 {
		t.Fatalf("ticks dir: %v %v", ents, err)
	}
}

func TestReadJSONLZstd_Missing(t *testing.T) {
	err := ReadJSONLZstd(filepath.Join(t.TempDir(), "nope.jsonl.zst"), func([]byte) error { return nil })
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}
