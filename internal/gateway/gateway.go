// Package gateway is the WebSocket transport: it upgrades HTTP
// connections, runs the read/write pump pair per client, and hands
// parsed frames to the orchestrator. Grounded on moonhole-HoldemIJ's
// apps/server/internal/gateway.Gateway, with the protobuf envelope
// replaced by JSON text frames matching the wire protocol's STATE/EVENT/
// ERROR/MOVE/CONTINUE messages.
package gateway

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"riverdeal/internal/orchestrator"
	"riverdeal/internal/poker"
	"riverdeal/internal/session"
)

const (
	readLimit  = 65536
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Gateway bridges HTTP websocket upgrades to the Orchestrator.
type Gateway struct {
	Orchestrator *orchestrator.Orchestrator
	Store        *session.Store
	Log          *log.Logger
}

// New builds a Gateway over an already-configured Orchestrator.
func New(o *orchestrator.Orchestrator, store *session.Store) *Gateway {
	return &Gateway{Orchestrator: o, Store: store, Log: o.Log}
}

// HandleWebSocket upgrades the request and runs the connection's
// handshake, then its read/write pumps, until it disconnects. Query
// parameters: sessionId, seatId, mode ("single" or "multi").
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	connID := uuid.NewString()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.Log.Error("websocket upgrade failed", "conn", connID, "err", err)
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	seatID := r.URL.Query().Get("seatId")
	mode := session.Mode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = session.ModeSingle
	}

	send := make(chan []byte, sendBuffer)

	sess, seat, err := g.Orchestrator.Connect(sessionID, seatID, mode, send)
	if err != nil {
		code, ok := orchestrator.HandshakeCode(err)
		if !ok {
			code = orchestrator.ErrValidationError
		}
		g.Log.Warn("handshake rejected", "conn", connID, "code", code, "err", err)
		g.writeOnce(conn, orchestrator.ErrorFrame(code, err.Error()))
		conn.Close()
		return
	}

	g.Log.Info("client connected", "conn", connID, "session", sess.ID, "seat", seat)

	done := make(chan struct{})
	go g.writePump(conn, send, done)
	g.readPump(conn, sess, seat)
	close(done)
	g.Store.RemoveSocket(sess.ID, seat)
	g.Log.Info("client disconnected", "conn", connID, "session", sess.ID, "seat", seat)
}

func (g *Gateway) writeOnce(conn *websocket.Conn, data []byte) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

// readPump blocks reading frames off conn and dispatching them to the
// orchestrator until the connection errors or closes.
func (g *Gateway) readPump(conn *websocket.Conn, sess *session.Session, seat poker.SeatId) {
	defer conn.Close()
	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				g.Log.Warn("read error", "session", sess.ID, "seat", seat, "err", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		g.Orchestrator.HandleInbound(sess, seat, data)
	}
}

// writePump serializes writes to conn: queued outbound frames first,
// falling back to a periodic ping to keep the connection alive.
func (g *Gateway) writePump(conn *websocket.Conn, send <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
