// Package taskboard runs one task board view: session, auth actions,
// attachment uploads, the task list and its realtime refresh.
//
// Every view state change happens on the board's own goroutine. Backend calls
// run off that goroutine and post their continuation back, so a slow call
// never blocks other commands.
package taskboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/templui/taskboard/internal/backend"
	"github.com/templui/taskboard/internal/metrics"
)

var (
	ErrBoardClosed = errors.New("board closed")
	ErrBusy        = errors.New("another sign-in or sign-up is in progress")
)

const commandQueueSize = 64

type Options struct {
	Client backend.Client
	// Bucket receives attachments. Defaults to notes-images.
	Bucket   string
	Recorder metrics.Recorder
	Now      func() time.Time
}

type Board struct {
	client   backend.Client
	recorder metrics.Recorder

	cmds     chan func()
	quit     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once

	// loop-owned
	state       Snapshot
	dirty       bool
	pending     int
	idleWaiters []chan struct{}
	sessions    *SessionStore
	auth        *AuthController
	uploader    *Uploader
	tasks       *TaskRepository
	bridge      *RealtimeBridge

	snapMu    sync.RWMutex
	published Snapshot
	watchers  map[int]chan struct{}
	nextWatch int
	closed    bool
}

// New starts the board loop and begins loading the persisted session.
func New(opts Options) *Board {
	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	bucket := opts.Bucket
	if bucket == "" {
		bucket = DefaultBucket
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	b := &Board{
		client:   opts.Client,
		recorder: recorder,
		cmds:     make(chan func(), commandQueueSize),
		quit:     make(chan struct{}),
		exited:   make(chan struct{}),
		watchers: make(map[int]chan struct{}),
	}
	b.sessions = &SessionStore{b: b}
	b.auth = &AuthController{b: b}
	b.uploader = &Uploader{storage: opts.Client.Storage(), bucket: bucket, recorder: recorder, now: now}
	b.tasks = &TaskRepository{b: b}
	b.bridge = &RealtimeBridge{b: b}

	go b.run()
	b.post(b.sessions.init)
	return b
}

func (b *Board) run() {
	defer close(b.exited)
	for {
		select {
		case cmd := <-b.cmds:
			cmd()
			b.flush()
		case <-b.quit:
			b.teardown()
			return
		}
	}
}

// post queues cmd on the loop. It reports false once the board is closed.
func (b *Board) post(cmd func()) bool {
	select {
	case <-b.quit:
		return false
	default:
	}

	select {
	case b.cmds <- cmd:
		return true
	case <-b.quit:
		return false
	}
}

// call runs fn off the loop, then hands its result to then on the loop.
// If the board closes first the continuation is dropped.
func call[T any](b *Board, fn func(ctx context.Context) (T, error), then func(T, error)) {
	b.pending++
	ctx := context.Background()
	go func() {
		v, err := fn(ctx)
		b.post(func() {
			b.pending--
			then(v, err)
			b.checkIdle()
		})
	}()
}

// do runs start on the loop and waits until it calls finish. The operation
// keeps running if ctx ends first; only the wait is abandoned.
func (b *Board) do(ctx context.Context, start func(finish func(error))) error {
	result := make(chan error, 1)
	ok := b.post(func() {
		var once sync.Once
		start(func(err error) {
			once.Do(func() { result <- err })
		})
	})
	if !ok {
		return ErrBoardClosed
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-b.quit:
		return ErrBoardClosed
	}
}

// changed marks the state for publication after the current command.
func (b *Board) changed() {
	b.dirty = true
}

func (b *Board) flush() {
	if !b.dirty {
		return
	}
	b.dirty = false
	b.state.Version++

	b.snapMu.Lock()
	b.published = b.state
	for _, ch := range b.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	b.snapMu.Unlock()
}

func (b *Board) checkIdle() {
	if b.pending > 0 {
		return
	}
	for _, ch := range b.idleWaiters {
		close(ch)
	}
	b.idleWaiters = nil
}

func (b *Board) teardown() {
	b.bridge.close()
	b.sessions.release()

	b.snapMu.Lock()
	b.closed = true
	for id, ch := range b.watchers {
		close(ch)
		delete(b.watchers, id)
	}
	b.snapMu.Unlock()
}

// Snapshot returns the state as of the last completed command.
func (b *Board) Snapshot() Snapshot {
	b.snapMu.RLock()
	defer b.snapMu.RUnlock()
	return b.published
}

// Watch signals on the returned channel after every state change. Signals
// coalesce; read Snapshot for the current state. The channel closes with the board.
func (b *Board) Watch() (<-chan struct{}, func()) {
	b.snapMu.Lock()
	defer b.snapMu.Unlock()

	ch := make(chan struct{}, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextWatch
	b.nextWatch++
	b.watchers[id] = ch

	return ch, func() {
		b.snapMu.Lock()
		defer b.snapMu.Unlock()
		if _, ok := b.watchers[id]; ok {
			delete(b.watchers, id)
			close(ch)
		}
	}
}

// WaitIdle blocks until no backend call is in flight.
func (b *Board) WaitIdle(ctx context.Context) error {
	idle := make(chan struct{})
	ok := b.post(func() {
		b.idleWaiters = append(b.idleWaiters, idle)
		b.checkIdle()
	})
	if !ok {
		return ErrBoardClosed
	}

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.quit:
		return ErrBoardClosed
	}
}

// Close releases the auth listener and realtime subscription and stops the
// loop. In-flight backend calls finish but their results are dropped.
func (b *Board) Close() {
	b.stopOnce.Do(func() {
		close(b.quit)
	})
	<-b.exited
	slog.Debug("board closed")
}
