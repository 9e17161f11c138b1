package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/example/ride-dispatch/internal/models"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var ErrNoSession = errors.New("no ws session")

// WSSession represents a connected driver session
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(ev models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(ev)
}

// WSRegistry holds one live session per driver name.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
}

func NewWSRegistry() *WSRegistry { return &WSRegistry{sessions: make(map[string]*WSSession)} }

// Add registers conn for driver, closing any session it replaces.
func (r *WSRegistry) Add(driver string, conn *websocket.Conn) {
	r.mu.Lock()
	old := r.sessions[driver]
	r.sessions[driver] = &WSSession{conn: conn}
	r.mu.Unlock()
	if old != nil {
		_ = old.conn.Close()
	}
}

// Remove drops the session for driver if it still wraps conn.
func (r *WSRegistry) Remove(driver string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[driver]; ok && s.conn == conn {
		delete(r.sessions, driver)
	}
}

func (r *WSRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Send writes ev to the driver's session.
func (r *WSRegistry) Send(driver string, ev models.Event) error {
	r.mu.RLock()
	s, ok := r.sessions[driver]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	if err := s.Send(ev); err != nil {
		r.Remove(driver, s.conn)
		_ = s.conn.Close()
		return err
	}
	return nil
}

// Notify forwards ev to the session of the driver it concerns. Drivers
// without a session are skipped.
func (r *WSRegistry) Notify(_ context.Context, ev models.Event) error {
	if err := r.Send(ev.Driver, ev); err != nil && !errors.Is(err, ErrNoSession) {
		return err
	}
	return nil
}
