// Package server exposes the quest engine over a WebSocket gateway.
// Game hosts push kill/item/location events in; authoring tools and
// other subsystems drive quest operations; every session receives the
// engine's committed events.
package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/stonelantern/questhall/internal/config"
	"github.com/stonelantern/questhall/internal/logger"
	"github.com/stonelantern/questhall/internal/quest"
)

// Server is the WebSocket gateway over the quest engine.
type Server struct {
	cfg       *config.ServerConfig
	engine    *quest.Engine
	tracker   *quest.Tracker
	scheduler *quest.Scheduler

	mu       sync.RWMutex
	sessions map[*session]bool
}

// New creates a gateway. The engine components are attached with Bind
// once they exist; the engine takes the gateway as its event publisher,
// so construction is two-phase.
func New(cfg *config.ServerConfig) *Server {
	return &Server{
		cfg:      cfg,
		sessions: make(map[*session]bool),
	}
}

// Bind attaches the engine components. Must be called before Start.
func (s *Server) Bind(engine *quest.Engine, tracker *quest.Tracker, scheduler *quest.Scheduler) {
	s.engine = engine
	s.tracker = tracker
	s.scheduler = scheduler
}

// Publish implements quest.Publisher: committed engine events fan out
// to every authenticated session.
func (s *Server) Publish(ev quest.Event) {
	frame := eventFrame{Type: "event", Event: ev.EventType(), Data: ev}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for sess := range s.sessions {
		sess.send(frame)
	}
}

// Start registers the /ws handler and serves until the listener fails.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	logger.Info("Gateway listening", "address", s.cfg.Listen)
	return http.ListenAndServe(s.cfg.Listen, mux)
}

// Handler returns the gateway's HTTP handler (tests).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	return mux
}

// handleUpgrade upgrades an HTTP connection to WebSocket.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // Non-browser client
			}
			allowed := s.cfg.WebSocket.IsOriginAllowed(origin)
			if !allowed {
				logger.Warning("Connection rejected, origin not allowed", "origin", origin, "remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	if s.cfg.WebSocket.MaxMessageSize > 0 {
		conn.SetReadLimit(s.cfg.WebSocket.MaxMessageSize)
	}

	go s.handleConnection(conn)
}

func (s *Server) handleConnection(conn *websocket.Conn) {
	sess := newSession(s, conn)
	defer func() {
		s.detach(sess)
		conn.Close()
	}()

	if !sess.authenticate() {
		return
	}

	s.attach(sess)
	logger.Info("Session authenticated", "remote_addr", conn.RemoteAddr().String())
	sess.readLoop()
}

func (s *Server) attach(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess] = true
}

func (s *Server) detach(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess)
}
