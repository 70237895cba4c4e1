package api

import (
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

var (
	errTooManySessions = errors.New("too many sessions")
	errSessionsClosed  = errors.New("server is shutting down")
)

// sessionManager tracks live websocket sessions
type sessionManager struct {
	server *Server
	max    int

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

func newSessionManager(srv *Server, max int) *sessionManager {
	return &sessionManager{
		server:   srv,
		max:      max,
		sessions: make(map[string]*session),
	}
}

func (m *sessionManager) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// admit reports why a new session would be refused, if it would
func (m *sessionManager) admit() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errSessionsClosed
	}
	if m.max > 0 && len(m.sessions) >= m.max {
		return errTooManySessions
	}
	return nil
}

func (m *sessionManager) add(s *session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errSessionsClosed
	}
	if m.max > 0 && len(m.sessions) >= m.max {
		return errTooManySessions
	}
	m.sessions[s.id] = s
	m.server.metrics.SessionOpened()
	return nil
}

func (m *sessionManager) remove(id string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		m.server.metrics.SessionClosed()
	}
}

func (m *sessionManager) list() []*session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// load hands a freshly loaded record set to every session
func (m *sessionManager) load(records []visualization.RelationRecord) {
	for _, s := range m.list() {
		s.load(records)
	}
}

// closeAll closes every session and refuses new ones
func (m *sessionManager) closeAll() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	for _, s := range m.list() {
		s.close()
	}
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin accepts same-host pages, non-browser clients that send no
// Origin, and the configured allowed origins
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	allowed := s.cfg.Server.AllowedOrigins
	if slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.admit(); err != nil {
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client
		s.logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}

	sess := newSession(s, conn)
	if err := s.sessions.add(sess); err != nil {
		s.logger.Warn("session refused", logging.Error(err))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
		sess.close()
		return
	}

	sess.logger.Info("session opened", logging.String("remote", r.RemoteAddr))
	sess.start(s.currentRecords())
}
