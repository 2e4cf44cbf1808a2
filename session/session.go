// session/session.go
package session

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wfunc/rhythmserver/network"
)

// Session is one websocket connection. Identity fields are filled in by the
// handshake before the session joins a room and are not changed afterwards.
type Session struct {
	ID         string
	Conn       network.Connection
	UserID     int64
	Username   string
	RoomID     int64
	Version    int
	Password   string
	Limiter    *rate.Limiter
	CreatedAt  time.Time
	LastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.Touch()
	return s.Conn.Send(msgID, data)
}

// Touch records activity on the session.
func (s *Session) Touch() {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) LastActiveAt() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.LastActive
}

// Allow reports whether a rate limited message may pass. Sessions without a
// limiter are never limited.
func (s *Session) Allow() bool {
	if s.Limiter == nil {
		return true
	}
	return s.Limiter.Allow()
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// Each calls fn for a snapshot of the current sessions.
func (m *Manager) Each(fn func(*Session)) {
	m.mutex.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mutex.RUnlock()

	for _, s := range sessions {
		fn(s)
	}
}
