package backend

import (
	"sync"
	"time"

	"github.com/templui/taskboard/internal/model"
)

type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	User        model.Identity
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionStorage persists one client's session between calls.
type SessionStorage interface {
	Load() *Session
	Save(session *Session)
	Clear()
}

type MemoryStorage struct {
	mu      sync.RWMutex
	session *Session
}

// NewMemoryStorage returns storage seeded with initial, which may be nil.
func NewMemoryStorage(initial *Session) *MemoryStorage {
	return &MemoryStorage{session: initial}
}

func (m *MemoryStorage) Load() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

func (m *MemoryStorage) Save(session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *session
	m.session = &s
}

func (m *MemoryStorage) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
}
