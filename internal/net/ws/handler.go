package ws

import (
	"log"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/GhostDragonAlpha/Alexander-sub009/internal/consensus"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/net/proto"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/physics"
	"github.com/GhostDragonAlpha/Alexander-sub009/internal/sim"
)

// HandlerConfig tunes connection handling for the websocket gateway.
type HandlerConfig struct {
	Logger           *log.Logger
	Bodies           *physics.BodyStore
	ReportsPerSecond float64
	ReportBurst      int
}

// Handler terminates websocket sessions and feeds decoded commands into the
// simulation loop.
type Handler struct {
	loop      *sim.Loop
	manager   *physics.Manager
	validator *consensus.Validator
	logger    *log.Logger
	config    HandlerConfig
	upgrader  websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHandler constructs the gateway over the given loop and simulation state.
func NewHandler(loop *sim.Loop, manager *physics.Manager, validator *consensus.Validator, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}
	return &Handler{
		loop:      loop,
		manager:   manager,
		validator: validator,
		logger:    logger,
		config:    cfg,
		upgrader:  upgrader,
	}
}

// SessionCount reports the number of live sessions.
func (h *Handler) SessionCount() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Broadcast sends a frame to every live session, dropping sessions whose
// writes fail.
func (h *Handler) Broadcast(data []byte) {
	if h == nil {
		return
	}
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for _, session := range h.sessions {
		targets = append(targets, session)
	}
	h.mu.RUnlock()

	for _, session := range targets {
		if err := session.WriteMessage(websocket.TextMessage, data); err != nil {
			h.drop(session)
		}
	}
}

// SendTo delivers a frame to one session if it is still connected.
func (h *Handler) SendTo(id string, data []byte) bool {
	if h == nil {
		return false
	}
	h.mu.RLock()
	session := h.sessions[id]
	h.mu.RUnlock()
	if session == nil {
		return false
	}
	if err := session.WriteMessage(websocket.TextMessage, data); err != nil {
		h.drop(session)
		return false
	}
	return true
}

// Disconnect force-closes the named session, unregistering its entity and
// player records. It reports whether a session was found.
func (h *Handler) Disconnect(id string) bool {
	if h == nil {
		return false
	}
	h.mu.RLock()
	session := h.sessions[id]
	h.mu.RUnlock()
	if session == nil {
		return false
	}
	message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "kicked")
	session.WriteMessage(websocket.CloseMessage, message)
	h.drop(session)
	return true
}

// Handle upgrades the request and runs the session read loop until the client
// disconnects.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	playerID := r.URL.Query().Get("id")
	if playerID == "" {
		playerID = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", playerID, err)
		return
	}

	session, ok := h.subscribe(playerID, conn)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "duplicate session")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	ack, err := proto.EncodeJoinAck(proto.JoinAck{EntityID: playerID, Tick: h.manager.Tick()})
	if err != nil {
		h.logger.Printf("failed to marshal join ack for %s: %v", playerID, err)
		h.drop(session)
		return
	}
	if err := session.WriteMessage(websocket.TextMessage, ack); err != nil {
		h.drop(session)
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.drop(session)
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", playerID, err)
			continue
		}

		switch msg.Type {
		case proto.TypeHeartbeat:
			if !h.handleHeartbeat(session, msg) {
				return
			}
		case proto.TypeReport:
			if !h.handleReport(session, msg) {
				return
			}
		case proto.TypeInput, proto.TypeVote:
			cmd, ok := proto.ClientCommand(msg, playerID)
			if !ok {
				continue
			}
			h.enqueue(session, cmd, msg.Sequence)
		default:
			h.logger.Printf("unknown message type %q from %s", msg.Type, playerID)
		}
	}
}

func (h *Handler) handleHeartbeat(session *Session, msg proto.ClientMessage) bool {
	now := time.Now()
	rtt := time.Duration(0)
	if msg.SentAt > 0 {
		rtt = now.Sub(time.UnixMilli(msg.SentAt))
		if rtt < 0 {
			rtt = 0
		}
	}

	cmd := sim.Command{
		Type:    sim.CommandHeartbeat,
		ActorID: session.ID(),
		Heartbeat: &sim.HeartbeatCommand{
			ReceivedAt: now,
			ClientSent: msg.SentAt,
			RTT:        rtt,
		},
	}
	h.loop.Enqueue(cmd)

	data, err := proto.EncodeHeartbeat(proto.Heartbeat{
		ServerTime: now.UnixMilli(),
		ClientTime: msg.SentAt,
		RTTMillis:  rtt.Milliseconds(),
	})
	if err != nil {
		h.logger.Printf("failed to marshal heartbeat ack for %s: %v", session.ID(), err)
		return true
	}
	if err := session.WriteMessage(websocket.TextMessage, data); err != nil {
		h.drop(session)
		return false
	}
	return true
}

func (h *Handler) handleReport(session *Session, msg proto.ClientMessage) bool {
	if last := session.LastReportSeq(); last > 0 && msg.Sequence <= last {
		return true
	}
	if !session.AllowReport() {
		return h.reject(session, msg.Sequence, "rate_limited", true)
	}
	cmd, ok := proto.ClientCommand(msg, session.ID())
	if !ok {
		return true
	}
	if h.enqueue(session, cmd, msg.Sequence) {
		session.StoreLastReportSeq(msg.Sequence)
	}
	return true
}

func (h *Handler) enqueue(session *Session, cmd sim.Command, seq uint64) bool {
	cmd.ActorID = session.ID()
	cmd.IssuedAt = time.Now()
	accepted, reason := h.loop.Enqueue(cmd)
	if !accepted {
		retry := reason == sim.CommandRejectQueueLimit
		h.reject(session, seq, reason, retry)
	}
	return accepted
}

func (h *Handler) reject(session *Session, seq uint64, reason string, retry bool) bool {
	data, err := proto.EncodeCommandReject(proto.CommandReject{Seq: seq, Reason: reason, Retry: retry})
	if err != nil {
		h.logger.Printf("failed to marshal reject for %s: %v", session.ID(), err)
		return true
	}
	if err := session.WriteMessage(websocket.TextMessage, data); err != nil {
		h.drop(session)
		return false
	}
	return true
}

func (h *Handler) subscribe(playerID string, conn *websocket.Conn) (*Session, bool) {
	h.mu.Lock()
	if h.sessions == nil {
		h.sessions = make(map[string]*Session)
	}
	if _, exists := h.sessions[playerID]; exists {
		h.mu.Unlock()
		return nil, false
	}
	session := newSession(playerID, conn, h.config.ReportsPerSecond, h.config.ReportBurst)
	h.sessions[playerID] = session
	h.mu.Unlock()

	h.config.Bodies.Spawn(physics.EntityID(playerID))
	h.manager.RegisterEntity(physics.EntityID(playerID), physics.ModeAuthority)
	h.validator.RegisterPlayer(playerID)
	h.logger.Printf("session joined id=%s", playerID)
	return session, true
}

func (h *Handler) drop(session *Session) {
	if session == nil {
		return
	}
	id := session.ID()
	h.mu.Lock()
	current, exists := h.sessions[id]
	if exists && current == session {
		delete(h.sessions, id)
	}
	h.mu.Unlock()
	session.Close()
	if exists && current == session {
		h.manager.UnregisterEntity(physics.EntityID(id))
		h.config.Bodies.Remove(physics.EntityID(id))
		h.validator.UnregisterPlayer(id)
		h.logger.Printf("session left id=%s", id)
	}
}
