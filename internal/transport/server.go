// Package transport implements the HTTP/WebSocket acceptor: the /health
// probe, CORS origin allowlisting, per-IP connection gating, and the
// upgrade-then-spawn-Session handoff. Grounded on the teacher's
// main.go/handleWebSocket and internal/websocket/websocket.go (CORS
// CheckOrigin via the DOMAINS env var, X-Forwarded-For-aware client IP
// extraction, per-IP rate limiting before upgrade), generalized from
// the teacher's room-code-in-query-string join to this spec's
// join_room-over-the-wire handshake, which needs no URL parameter.
package transport

import (
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arjunxplorer/sketch/internal/dispatch"
	"github.com/arjunxplorer/sketch/internal/ratelimit"
	"github.com/arjunxplorer/sketch/internal/session"
)

const healthBodyLimit = 1024

// Server is the HTTP entry point: it answers /health directly and
// upgrades every other request to a WebSocket, handing the connection
// off to a new Session.
type Server struct {
	dispatcher *dispatch.Dispatcher
	ipLimiter  *ratelimit.IPLimiter
	upgrader   websocket.Upgrader
}

// New builds a Server. Its upgrader's origin check reads the DOMAINS env
// var (comma-separated) on every upgrade, matching the teacher's
// upgrader.CheckOrigin; an empty DOMAINS allows any origin.
func New(dispatcher *dispatch.Dispatcher, ipLimiter *ratelimit.IPLimiter) *Server {
	s := &Server{dispatcher: dispatcher, ipLimiter: ipLimiter}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	domains := os.Getenv("DOMAINS")
	if domains == "" {
		return true
	}
	for _, allowed := range strings.Split(domains, ",") {
		if origin == strings.TrimSpace(allowed) {
			return true
		}
	}
	return false
}

// ServeHTTP implements http.Handler: GET /health short-circuits with a
// plain-text OK; everything else is treated as a WebSocket upgrade
// attempt, per spec §4.8.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, healthBodyLimit)
	io.Copy(io.Discard, io.LimitReader(r.Body, healthBodyLimit))

	if r.Method == http.MethodGet && r.URL.Path == "/health" {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
		return
	}

	s.handleUpgrade(w, r)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	clientIP := ClientIP(r)
	if !s.ipLimiter.Allow(clientIP) {
		log.Printf("transport: rejecting connection from %s: rate limited", clientIP)
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("transport: upgrade failed for %s: %v", clientIP, err)
		return
	}

	sess := session.New(conn, s.dispatcher)
	sess.Run()
}

// ClientIP extracts the caller's address, preferring proxy headers over
// the raw socket address, same precedence as the teacher's getClientIP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// IPConnectionRate and IPConnectionBurst size the acceptor's per-IP
// gate: one new connection every 6s steady-state, burst of 5, matching
// the teacher's middleware.IPRateLimit defaults.
const (
	IPConnectionRate  = 6 * time.Second
	IPConnectionBurst = 5
)
