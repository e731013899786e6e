package taskboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/templui/taskboard/internal/backend"
	"github.com/templui/taskboard/internal/metrics"
)

// Connector builds the backend client for a new view. token is the access
// token the browser presented, possibly empty.
type Connector func(token string) (backend.Client, backend.SessionStorage)

type RegistryOptions struct {
	Connect  Connector
	Bucket   string
	Recorder metrics.Recorder
	// IdleTimeout closes views nobody has touched for this long.
	IdleTimeout time.Duration
	// DetachGrace closes views this long after their last live connection ends.
	DetachGrace time.Duration
	// FreshTimeout closes views that no request came back to after the one
	// that opened them, e.g. crawlers and health checks.
	FreshTimeout time.Duration
	// MaxViews caps mounted views. Opening past it evicts the least recently
	// seen view without a live connection. Zero means no cap.
	MaxViews int
	Now      func() time.Time
}

// View is one browser's board plus the session storage behind it.
type View struct {
	ID       string
	Board    *Board
	Sessions backend.SessionStorage

	lastSeen   time.Time
	revisited  bool
	attached   int
	detachedAt time.Time
}

// Registry maps browser view ids to boards.
type Registry struct {
	opts RegistryOptions

	mu    sync.Mutex
	views map[string]*View
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Recorder == nil {
		opts.Recorder = metrics.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		opts:  opts,
		views: make(map[string]*View),
	}
}

// Get returns the view for id and marks it as seen.
func (r *Registry) Get(id string) (*View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.views[id]
	if ok {
		v.lastSeen = r.opts.Now()
		v.revisited = true
	}
	return v, ok
}

// Open mounts a new view whose session is seeded from token.
func (r *Registry) Open(token string) *View {
	client, sessions := r.opts.Connect(token)
	board := New(Options{
		Client:   client,
		Bucket:   r.opts.Bucket,
		Recorder: r.opts.Recorder,
		Now:      r.opts.Now,
	})

	v := &View{
		ID:       uuid.New().String(),
		Board:    board,
		Sessions: sessions,
		lastSeen: r.opts.Now(),
	}

	r.mu.Lock()
	r.views[v.ID] = v
	var evicted *View
	if r.opts.MaxViews > 0 && len(r.views) > r.opts.MaxViews {
		evicted = r.evictionCandidate(v)
		if evicted != nil {
			delete(r.views, evicted.ID)
		}
	}
	r.mu.Unlock()

	r.opts.Recorder.ViewOpened()
	slog.Debug("view opened", "view_id", v.ID)

	if evicted != nil {
		r.opts.Recorder.ViewEvicted()
		slog.Debug("view evicted", "view_id", evicted.ID)
		r.close(evicted)
	}
	return v
}

// evictionCandidate prefers views nobody came back to, then the least
// recently seen. Views with a live connection are never evicted.
func (r *Registry) evictionCandidate(keep *View) *View {
	var victim *View
	for _, v := range r.views {
		if v == keep || v.attached > 0 {
			continue
		}
		if victim == nil ||
			(!v.revisited && victim.revisited) ||
			(v.revisited == victim.revisited && v.lastSeen.Before(victim.lastSeen)) {
			victim = v
		}
	}
	return victim
}

// Attach records a live connection to the view.
func (r *Registry) Attach(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.views[id]
	if !ok {
		return false
	}
	v.attached++
	v.lastSeen = r.opts.Now()
	v.revisited = true
	return true
}

// Detach ends a live connection. The view survives for DetachGrace so a page
// navigation can reattach.
func (r *Registry) Detach(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.views[id]
	if !ok || v.attached == 0 {
		return
	}
	v.attached--
	if v.attached == 0 {
		v.detachedAt = r.opts.Now()
	}
}

// Sweep closes expired views and reports how many it closed.
func (r *Registry) Sweep() int {
	now := r.opts.Now()

	r.mu.Lock()
	var expired []*View
	for id, v := range r.views {
		if r.expired(v, now) {
			expired = append(expired, v)
			delete(r.views, id)
		}
	}
	r.mu.Unlock()

	for _, v := range expired {
		r.close(v)
	}
	return len(expired)
}

func (r *Registry) expired(v *View, now time.Time) bool {
	if v.attached > 0 {
		return false
	}
	if r.opts.IdleTimeout > 0 && now.Sub(v.lastSeen) >= r.opts.IdleTimeout {
		return true
	}
	if !v.revisited && r.opts.FreshTimeout > 0 && now.Sub(v.lastSeen) >= r.opts.FreshTimeout {
		return true
	}
	// a request after the detach means the page is coming back
	detached := !v.detachedAt.IsZero() && !v.detachedAt.Before(v.lastSeen)
	return detached && r.opts.DetachGrace > 0 && now.Sub(v.detachedAt) >= r.opts.DetachGrace
}

// Run sweeps periodically until ctx ends.
func (r *Registry) Run(ctx context.Context) {
	interval := r.opts.DetachGrace / 2
	if fresh := r.opts.FreshTimeout / 2; fresh > 0 && (interval <= 0 || fresh < interval) {
		interval = fresh
	}
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				slog.Debug("closed expired views", "count", n)
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Close tears down every view.
func (r *Registry) Close() {
	r.mu.Lock()
	views := make([]*View, 0, len(r.views))
	for id, v := range r.views {
		views = append(views, v)
		delete(r.views, id)
	}
	r.mu.Unlock()

	for _, v := range views {
		r.close(v)
	}
}

func (r *Registry) close(v *View) {
	v.Board.Close()
	r.opts.Recorder.ViewClosed()
	slog.Debug("view closed", "view_id", v.ID)
}
