// Package session almacenes de sesiones de conversación (memoria y Redis).
package session

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/cafe-bot/internal/application/conversation"
	"github.com/jhoicas/cafe-bot/pkg/metrics"
)

var _ conversation.SessionStore = (*MemoryStore)(nil)

// MemoryStore sesiones en memoria del proceso. Run elimina periódicamente las vencidas.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[int64]conversation.Session
	retention time.Duration
	now       func() time.Time
}

// NewMemoryStore crea el almacén.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  map[int64]conversation.Session{},
		retention: conversation.ExpiredRetention,
		now:       time.Now,
	}
}

// SetClock fija el reloj (tests).
func (m *MemoryStore) SetClock(now func() time.Time) { m.now = now }

func clone(s conversation.Session) *conversation.Session {
	data := make(map[string]string, len(s.Data))
	for k, v := range s.Data {
		data[k] = v
	}
	s.Data = data
	return &s
}

// Get devuelve una copia de la sesión del usuario.
func (m *MemoryStore) Get(_ context.Context, userID int64) (*conversation.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok || m.purgeable(s) {
		return nil, nil
	}
	return clone(s), nil
}

// Save guarda una copia de la sesión.
func (m *MemoryStore) Save(_ context.Context, s *conversation.Session) error {
	m.mu.Lock()
	m.sessions[s.UserID] = *clone(*s)
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
	return nil
}

// Delete borra la sesión del usuario (no falla si no existe).
func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
	return nil
}

func (m *MemoryStore) purgeable(s conversation.Session) bool {
	return !s.ExpiresAt.IsZero() && m.now().After(s.ExpiresAt.Add(m.retention))
}

// Cleanup elimina las sesiones vencidas hace más de ExpiredRetention. Devuelve cuántas borró.
func (m *MemoryStore) Cleanup() int {
	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if m.purgeable(s) {
			delete(m.sessions, id)
			removed++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
	return removed
}

// Len sesiones guardadas.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Run ejecuta Cleanup cada interval hasta que ctx se cancele.
func (m *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Cleanup()
		}
	}
}
