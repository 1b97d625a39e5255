package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	persistlog "mk48.io/internal/persistence/log"
	"mk48.io/internal/sim/tuning"
	"mk48.io/internal/sim/world"
	"mk48.io/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (tick and lifecycle rows)")
		debugScore = flag.Bool("debug_max_score", false, "start every player at the maximum boat level")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if *debugScore {
		tune.DebugMaxScore = true
	}

	// Optional: read-model index backend (does not affect the simulation).
	idx, err := openRuntimeIndex(worldDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index backend: upsert tuning: %v", err)
		}
	}

	w, err := world.New(world.ConfigFromTuning(*worldID, tune))
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	tickLog := persistlog.NewTickLogger(worldDir)
	lifeLog := persistlog.NewLifecycleLogger(worldDir)
	defer tickLog.Close()
	defer lifeLog.Close()
	if tune.LogEveryTick {
		w.SetTickLogger(multiTickLogger{a: tickLog, b: idx})
	} else if idx != nil {
		w.SetTickLogger(idx)
	}
	w.AddLifecycleLogger(lifeLog)
	if idx != nil {
		w.AddLifecycleLogger(idx)
	}
	w.AddLifecycleLogger(consoleLifecycle{log: logger})

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	var deaths deathIndex
	if idx != nil {
		deaths = idx
	}
	registerAPI(mux, w, deaths)
	if envBool("MK48_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (MK48_ENABLE_PPROF_HTTP=false)")
	}
	wsLogger := log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds)
	mux.HandleFunc("/v1/ws", ws.NewServer(w, wsLogger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("world=%s tick_rate=%dHz radius=%.0f max_players=%d", *worldID, tune.TickRateHz, tune.WorldRadius, tune.MaxPlayers)
	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

// consoleLifecycle prints session boundaries and deaths.
type consoleLifecycle struct{ log *log.Logger }

func (c consoleLifecycle) WriteLifecycle(e world.LifecycleEntry) error {
	switch e.Event {
	case world.EventJoin:
		c.log.Printf("tick=%d %s joined as %q", e.Tick, e.PlayerID, e.Name)
	case world.EventLeave:
		c.log.Printf("tick=%d %s left with score %d", e.Tick, e.PlayerID, e.Score)
	case world.EventDeath:
		reason := "UNKNOWN"
		if e.Reason != nil {
			reason = e.Reason.String()
		}
		c.log.Printf("tick=%d %s sunk: %s", e.Tick, e.PlayerID, reason)
	}
	return nil
}
