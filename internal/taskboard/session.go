package taskboard

import (
	"context"
	"log/slog"

	"github.com/templui/taskboard/internal/backend"
	"github.com/templui/taskboard/internal/model"
)

// SessionStore holds the board's current identity. It loads the persisted
// session once and then follows every auth state change.
type SessionStore struct {
	b        *Board
	listener backend.Subscription
	// set once any auth event has been applied; a late initial load must not override it
	eventSeen bool
}

func (s *SessionStore) init() {
	b := s.b
	s.listener = b.client.Auth().OnAuthStateChange(func(event backend.AuthEvent, session *backend.Session) {
		b.post(func() { s.apply(event, session) })
	})

	call(b, func(ctx context.Context) (*backend.Session, error) {
		return b.client.Auth().GetSession(ctx)
	}, func(session *backend.Session, err error) {
		if s.eventSeen {
			return
		}
		if err != nil {
			slog.Warn("failed to load session", "error", err)
			session = nil
		}
		s.set(identityOf(session))
	})
}

func (s *SessionStore) apply(event backend.AuthEvent, session *backend.Session) {
	s.eventSeen = true
	if event == backend.SignedOut {
		session = nil
	}
	s.set(identityOf(session))
}

// set overwrites the identity and re-arms the realtime bridge when the user changes.
func (s *SessionStore) set(identity *model.Identity) {
	b := s.b
	previous := b.state.Identity
	b.state.Identity = identity
	b.changed()

	if sameUser(previous, identity) {
		return
	}
	b.bridge.identityChanged(identity)
}

func (s *SessionStore) release() {
	if s.listener != nil {
		_ = s.listener.Unsubscribe()
		s.listener = nil
	}
}

func identityOf(session *backend.Session) *model.Identity {
	if session == nil {
		return nil
	}
	identity := session.User
	return &identity
}

func sameUser(a, b *model.Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}
