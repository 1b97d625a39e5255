package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	persistlog "mk48.io/internal/persistence/log"
	"mk48.io/internal/protocol"
	"mk48.io/internal/sim/world"
)

func main() {
	var (
		lifecycleDir = flag.String("lifecycle", "", "dir containing lifecycle-*.jsonl.zst")
		fromTick     = flag.Uint64("from_tick", 0, "first tick to include (inclusive, optional)")
		toTick       = flag.Uint64("to_tick", 0, "last tick to include (inclusive, optional)")
		playerID     = flag.Uint("player", 0, "only summarize this player (optional)")
	)
	flag.Parse()

	if *lifecycleDir == "" {
		fmt.Fprintln(os.Stderr, "missing -lifecycle")
		os.Exit(2)
	}

	files, err := persistlog.Files(*lifecycleDir, "lifecycle")
	if err != nil {
		fmt.Fprintln(os.Stderr, "list lifecycle files:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no lifecycle files in", *lifecycleDir)
		os.Exit(1)
	}

	sum := newSummary()
	for _, path := range files {
		err := persistlog.ReadJSONLZstd(path, func(line []byte) error {
			var e world.LifecycleEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return err
			}
			if e.Tick < *fromTick || (*toTick != 0 && e.Tick > *toTick) {
				return nil
			}
			if *playerID != 0 && e.PlayerID != protocol.PlayerID(*playerID) {
				// Kills still need to be credited from other players' deaths.
				if e.Event != world.EventDeath {
					return nil
				}
			}
			sum.add(e)
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
	}

	rows := sum.rows()
	if *playerID != 0 {
		rows = filterRows(rows, protocol.PlayerID(*playerID))
	}
	fmt.Printf("files=%d events=%d players=%d\n", len(files), sum.events, len(rows))
	for _, r := range rows {
		fmt.Println(r)
	}
}
