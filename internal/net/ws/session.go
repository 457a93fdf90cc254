package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const sessionWriteTimeout = 10 * time.Second

// Session wraps a single websocket connection with serialized writes and a
// per-client intake limiter for validation traffic.
type Session struct {
	id      string
	conn    *websocket.Conn
	limiter *rate.Limiter

	writeMu sync.Mutex
	closed  atomic.Bool

	lastSeq atomic.Uint64
	joined  time.Time
}

func newSession(id string, conn *websocket.Conn, reportsPerSecond float64, burst int) *Session {
	if reportsPerSecond <= 0 {
		reportsPerSecond = 60
	}
	if burst <= 0 {
		burst = int(reportsPerSecond)
	}
	return &Session{
		id:      id,
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(reportsPerSecond), burst),
		joined:  time.Now(),
	}
}

// ID returns the entity identifier assigned at join time.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// AllowReport consumes one token from the intake limiter.
func (s *Session) AllowReport() bool {
	if s == nil {
		return false
	}
	return s.limiter.Allow()
}

// LastReportSeq returns the highest report sequence seen on this session.
func (s *Session) LastReportSeq() uint64 {
	if s == nil {
		return 0
	}
	return s.lastSeq.Load()
}

// StoreLastReportSeq records the highest report sequence seen so far.
func (s *Session) StoreLastReportSeq(seq uint64) {
	if s == nil {
		return
	}
	for {
		current := s.lastSeq.Load()
		if seq <= current {
			return
		}
		if s.lastSeq.CompareAndSwap(current, seq) {
			return
		}
	}
}

// WriteMessage sends a frame to the client, serializing concurrent writers.
func (s *Session) WriteMessage(messageType int, data []byte) error {
	if s == nil || s.closed.Load() {
		return websocket.ErrCloseSent
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(sessionWriteTimeout))
	return s.conn.WriteMessage(messageType, data)
}

// Close tears down the underlying connection once.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.conn.Close()
}
