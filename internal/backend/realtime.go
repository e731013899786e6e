package backend

import (
	"context"
	"errors"

	"github.com/templui/taskboard/internal/metrics"
	"github.com/templui/taskboard/internal/realtime"
)

var errNoFeed = errors.New("realtime feed not configured")

type realtimeClient client

func (r *realtimeClient) Subscribe(ctx context.Context, filter realtime.Filter, fn func(realtime.Event)) (Subscription, error) {
	sub, err := r.subscribe(filter, fn)
	r.platform.recorder.RecordBackendRequest("realtime.subscribe", metrics.Outcome(err))
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *realtimeClient) subscribe(filter realtime.Filter, fn func(realtime.Event)) (*realtime.Subscription, error) {
	_, err := (*client)(r).requireSession()
	if err != nil {
		return nil, err
	}

	if r.platform.feed == nil {
		return nil, errNoFeed
	}
	return r.platform.feed.Subscribe(filter, fn)
}
