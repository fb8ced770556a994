// Package session implements the per-connection lifecycle: a serialized
// write queue/strand, the read loop that feeds frames to the dispatcher,
// and the application-level heartbeat. Grounded on the canonical
// gorilla/websocket hub idiom seen across the retrieval pack (readPump/
// writePump goroutines over a buffered send channel, e.g.
// other_examples' Web3AirdropOS and strongdm-leash websocket hubs) and
// on the teacher's own Session/User split (persistent identity vs. the
// live connection), adapted so the connection type is a small interface
// rather than *websocket.Conn directly — the same testability seam the
// teacher draws with handlers/interfaces.go's Broadcaster/SessionProvider.
package session

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arjunxplorer/sketch/internal/config"
	"github.com/arjunxplorer/sketch/internal/dispatch"
)

// sendQueueSize bounds each session's outbound backlog. It has no wire
// meaning; a peer that can't drain this many pending frames is treated
// as unresponsive rather than left to grow the queue without bound.
const sendQueueSize = 64

// wsConn is the slice of *websocket.Conn a Session depends on, so tests
// can exercise the read/write/heartbeat logic without a real socket.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	Close() error
}

// Session is one WebSocket connection's Handshake->Reading->Closed
// lifecycle. Writes are serialized through send so TrySend is safe to
// call from any goroutine, including another session's read loop during
// a broadcast.
type Session struct {
	conn       wsConn
	dispatcher *dispatch.Dispatcher
	state      dispatch.ConnState

	send   chan []byte
	done   chan struct{}
	closed atomic.Bool

	lastFrameMs atomic.Int64
}

// New wraps conn in a Session that will route inbound frames through
// dispatcher. Call Run to start its goroutines; it returns once the
// connection closes.
func New(conn wsConn, dispatcher *dispatch.Dispatcher) *Session {
	s := &Session{
		conn:       conn,
		dispatcher: dispatcher,
		send:       make(chan []byte, sendQueueSize),
		done:       make(chan struct{}),
	}
	s.lastFrameMs.Store(time.Now().UnixMilli())
	return s
}

// TrySend implements wbroom.SessionHandle: a non-blocking enqueue onto
// this session's write strand. A full queue is treated the same as a
// dead peer — the session is closed and the send reported as failed —
// so one slow reader can never back up a broadcaster indefinitely.
func (s *Session) TrySend(msg []byte) bool {
	if s.closed.Load() {
		return false
	}
	select {
	case s.send <- msg:
		return true
	default:
		s.Close()
		return false
	}
}

// Run drives the session until the connection closes: it starts the
// write strand and heartbeat monitor, then reads frames on the calling
// goroutine until ReadMessage fails or Close is called concurrently.
// Callers typically invoke Run directly on the goroutine that accepted
// the connection.
func (s *Session) Run() {
	s.conn.SetReadLimit(config.MaxMessageSize)
	go s.writeLoop()
	go s.heartbeatLoop()
	s.readLoop()
}

func (s *Session) readLoop() {
	defer s.Close()
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.lastFrameMs.Store(time.Now().UnixMilli())
		s.dispatcher.Dispatch(&s.state, s, msg)
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case msg := <-s.send:
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) heartbeatLoop() {
	ticker := time.NewTicker(time.Duration(config.HeartbeatIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	timeout := time.Duration(config.HeartbeatTimeoutMs) * time.Millisecond
	for {
		select {
		case <-ticker.C:
			last := time.UnixMilli(s.lastFrameMs.Load())
			if time.Since(last) > timeout {
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// Close is idempotent: it releases room membership (if any), stops the
// write and heartbeat goroutines, and closes the underlying connection.
// Safe to call concurrently and more than once.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.done)
	s.dispatcher.Leave(&s.state)
	if err := s.conn.Close(); err != nil {
		log.Printf("session: close error: %v", err)
	}
}
