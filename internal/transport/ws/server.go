package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"mk48.io/internal/protocol"
	"mk48.io/internal/sim/world"
)

// joinAbandonWait bounds how long a dropped handshake waits for its join answer.
var joinAbandonWait = 30 * time.Second

// World is the part of the simulation the transport talks to.
type World interface {
	Inbox() chan<- world.InputEnvelope
	Join() chan<- world.JoinRequest
	Leave() chan<- protocol.PlayerID
}

type Server struct {
	world World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w World, logger *log.Logger) *Server {
	s := &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		playerID, out := s.handshake(r.Context(), conn)
		if playerID == 0 {
			return
		}
		s.logf("player %s connected from %s", playerID, r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			in, code, reason := decodeInput(msg)
			if code != "" {
				queueError(out, code, reason)
				continue
			}
			select {
			case s.world.Inbox() <- world.InputEnvelope{PlayerID: playerID, Input: in}:
			case <-ctx.Done():
			}
		}

		s.leave(playerID)
		s.logf("player %s disconnected", playerID)
	}
}

func (s *Server) leave(id protocol.PlayerID) {
	select {
	case s.world.Leave() <- id:
	case <-time.After(5 * time.Second):
		s.logf("player %s: leave not delivered", id)
	}
}

// abandonJoin waits for the answer to a join whose connection went away and
// ends the session if the world accepted it.
func (s *Server) abandonJoin(respCh <-chan world.JoinResponse) {
	select {
	case resp := <-respCh:
		if id := resp.Welcome.PlayerID; id != 0 && resp.Code == "" {
			s.leave(id)
		}
	case <-time.After(joinAbandonWait):
		s.logf("abandoned join got no answer")
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (playerID protocol.PlayerID, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return 0, nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return 0, nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return 0, nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return 0, nil
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}
	out = make(chan []byte, maxQ)

	respCh := make(chan world.JoinResponse, 1)
	select {
	case s.world.Join() <- world.JoinRequest{Name: hello.Name, Out: out, Resp: respCh}:
	case <-ctx.Done():
		return 0, nil
	}
	var resp world.JoinResponse
	select {
	case resp = <-respCh:
	case <-ctx.Done():
		// The world may still add the player; it must not keep the slot.
		go s.abandonJoin(respCh)
		return 0, nil
	}

	if resp.Code != "" {
		_ = writeJSON(conn, errorMsg(resp.Code, "join refused"))
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, resp.Code), time.Now().Add(time.Second))
		return 0, nil
	}
	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.leave(resp.Welcome.PlayerID)
		return 0, nil
	}
	return resp.Welcome.PlayerID, out
}

// decodeInput parses a client INPUT. On failure it returns a protocol error
// code and reason instead.
func decodeInput(msg []byte) (protocol.InputMsg, string, string) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.InputMsg{}, protocol.ErrProtoBadRequest, "malformed message"
	}
	if base.Type != protocol.TypeInput {
		return protocol.InputMsg{}, protocol.ErrProtoBadRequest, "unexpected type " + base.Type
	}
	var in protocol.InputMsg
	if err := json.Unmarshal(msg, &in); err != nil {
		return protocol.InputMsg{}, protocol.ErrProtoBadRequest, "malformed INPUT"
	}
	if in.ProtocolVersion != protocol.Version {
		return protocol.InputMsg{}, protocol.ErrProtoBadRequest, "bad protocol_version"
	}
	if in.LeaveTeam && in.Team != nil {
		return protocol.InputMsg{}, protocol.ErrBadRequest, "team and leave_team are exclusive"
	}
	return in, "", ""
}

func errorMsg(code, message string) protocol.ErrorMsg {
	return protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: code, Message: message}
}

// queueError hands an ERROR to the writer goroutine, dropping it if the queue is full.
func queueError(out chan []byte, code, message string) {
	b, err := json.Marshal(errorMsg(code, message))
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
