package backend

import (
	"context"
	"sync"

	"github.com/templui/taskboard/internal/metrics"
)

// client implements Client for one view. The session and listener set are
// shared by the four facets.
type client struct {
	platform *Platform
	store    SessionStorage

	mu        sync.Mutex
	listeners map[int]AuthListener
	nextID    int
}

func (c *client) Auth() Auth         { return (*authClient)(c) }
func (c *client) Storage() Storage   { return (*storageClient)(c) }
func (c *client) Tasks() Tasks       { return (*tasksClient)(c) }
func (c *client) Realtime() Realtime { return (*realtimeClient)(c) }

type authClient client

func (a *authClient) GetSession(ctx context.Context) (*Session, error) {
	return (*client)(a).session()
}

func (a *authClient) OnAuthStateChange(fn AuthListener) Subscription {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextID
	a.nextID++
	a.listeners[id] = fn

	return &listenerSubscription{client: (*client)(a), id: id}
}

func (a *authClient) SignUp(ctx context.Context, email, password string) error {
	_, err := a.platform.auth.SignUp(email, password)
	a.platform.recorder.RecordBackendRequest("auth.sign_up", metrics.Outcome(err))
	return authError(err)
}

func (a *authClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	user, err := a.platform.auth.SignIn(email, password)
	a.platform.recorder.RecordBackendRequest("auth.sign_in", metrics.Outcome(err))
	if err != nil {
		return nil, authError(err)
	}

	session, err := a.platform.issue(user)
	if err != nil {
		return nil, authError(err)
	}

	a.store.Save(session)
	(*client)(a).notify(SignedIn, session)
	return session, nil
}

// SignOut drops the local session. Calling it without a session is not an error.
func (a *authClient) SignOut(ctx context.Context) error {
	a.store.Clear()
	a.platform.recorder.RecordBackendRequest("auth.sign_out", metrics.OutcomeOK)
	(*client)(a).notify(SignedOut, nil)
	return nil
}

// session returns the stored session, refreshing it when close to expiry and
// dropping it when it can no longer be used.
func (c *client) session() (*Session, error) {
	current := c.store.Load()
	if current == nil {
		return nil, nil
	}

	now := c.platform.now()
	if current.Expired(now) {
		c.store.Clear()
		c.notify(SignedOut, nil)
		return nil, nil
	}

	if current.ExpiresAt.Sub(now) > c.platform.refreshMargin {
		return current, nil
	}

	refreshed, err := c.platform.refresh(current)
	c.platform.recorder.RecordBackendRequest("auth.refresh", metrics.Outcome(err))
	if err != nil {
		c.store.Clear()
		c.notify(SignedOut, nil)
		return nil, authError(err)
	}

	c.store.Save(refreshed)
	c.notify(TokenRefreshed, refreshed)
	return refreshed, nil
}

// requireSession is the authorization check for data calls.
func (c *client) requireSession() (*Session, error) {
	current, err := c.session()
	if err != nil {
		return nil, notAuthenticated(err)
	}
	if current == nil {
		return nil, ErrNotAuthenticated
	}

	_, err = c.platform.auth.VerifyJWT(current.AccessToken)
	if err != nil {
		return nil, notAuthenticated(err)
	}
	return current, nil
}

// notify calls listeners outside the lock so they may unsubscribe themselves.
func (c *client) notify(event AuthEvent, session *Session) {
	c.mu.Lock()
	listeners := make([]AuthListener, 0, len(c.listeners))
	for id := 0; id < c.nextID; id++ {
		if fn, ok := c.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		var s *Session
		if session != nil {
			copied := *session
			s = &copied
		}
		fn(event, s)
	}
}

type listenerSubscription struct {
	client *client
	id     int
}

func (l *listenerSubscription) Unsubscribe() error {
	l.client.mu.Lock()
	defer l.client.mu.Unlock()
	delete(l.client.listeners, l.id)
	return nil
}
