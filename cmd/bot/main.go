package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"mk48.io/internal/protocol"
)

func main() {
	var (
		url  = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name = flag.String("name", "bot", "player name")
		team = flag.Uint("team", 0, "team to join once spawned (0 for none)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Name:            *name,
		MaxQueue:        8,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	b := &brain{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
	if *team != 0 {
		b.team = protocol.TeamPtr(protocol.TeamID(*team))
	}
	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME player_id=%s tick_rate=%d", w.PlayerID, w.TickRateHz)

		case protocol.TypeStatus:
			var st protocol.StatusMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			if st.DeathReason != nil && st.Status == protocol.StatusDead && b.last != protocol.StatusDead {
				logger.Printf("sunk at tick %d: %s", st.Tick, st.DeathReason)
			}
			if in := b.decide(st); in != nil {
				_ = conn.WriteJSON(in)
			}

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err == nil {
				logger.Printf("ERROR %s: %s", e.Code, e.Message)
			}
		}
	}
}
