package taskboard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/templui/taskboard/internal/backend"
	"github.com/templui/taskboard/internal/model"
	"github.com/templui/taskboard/internal/realtime"
)

// RealtimeBridge keeps exactly one tasks subscription while signed in. Every
// event re-fetches the list. There is no reconnect policy.
type RealtimeBridge struct {
	b *Board
	// loop-owned
	active     backend.Subscription
	generation uint64

	// Subscriptions that exist but have not reached the loop yet. Guarded by
	// mu so Close can release them even if their continuation never runs.
	mu       sync.Mutex
	closed   bool
	inflight map[uint64]backend.Subscription
}

func (r *RealtimeBridge) identityChanged(identity *model.Identity) {
	b := r.b
	r.release()
	r.generation++
	if identity == nil {
		return
	}

	generation := r.generation
	call(b, func(ctx context.Context) (struct{}, error) {
		sub, err := b.client.Realtime().Subscribe(ctx, backend.TasksFilter, func(realtime.Event) {
			b.post(func() { b.tasks.list(TriggerRealtime, func(error) {}) })
		})
		if err != nil {
			return struct{}{}, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			_ = sub.Unsubscribe()
			return struct{}{}, nil
		}
		if r.inflight == nil {
			r.inflight = make(map[uint64]backend.Subscription)
		}
		r.inflight[generation] = sub
		return struct{}{}, nil
	}, func(_ struct{}, err error) {
		if err != nil {
			slog.Error("failed to subscribe to task changes", "error", err)
			return
		}

		r.mu.Lock()
		sub := r.inflight[generation]
		delete(r.inflight, generation)
		r.mu.Unlock()

		if sub == nil {
			return
		}
		if generation != r.generation {
			_ = sub.Unsubscribe()
			return
		}
		r.active = sub
	})

	b.tasks.list(TriggerSignIn, func(error) {})
}

// release drops the active subscription. Runs on the loop.
func (r *RealtimeBridge) release() {
	if r.active == nil {
		return
	}
	err := r.active.Unsubscribe()
	if err != nil {
		slog.Warn("failed to release task subscription", "error", err)
	}
	r.active = nil
}

// close releases everything, including subscriptions still in flight.
func (r *RealtimeBridge) close() {
	r.release()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for generation, sub := range r.inflight {
		_ = sub.Unsubscribe()
		delete(r.inflight, generation)
	}
}
