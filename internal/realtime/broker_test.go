package realtime

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/taskboard/internal/metrics"
)

var tasksFilter = Filter{Event: EventAll, Schema: "public", Table: "tasks"}

func newTestBroker(t *testing.T) *Broker {
	t.Helper()
	b, err := Connect(Options{SubjectPrefix: "test"})
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestFilterSubject(t *testing.T) {
	assert.Equal(t, "realtime.public.tasks.*", tasksFilter.subject("realtime"))

	ev := Event{Type: EventDelete, Schema: "public", Table: "tasks"}
	assert.Equal(t, "realtime.public.tasks.DELETE", ev.subject("realtime"))
}

func TestFilterValidate(t *testing.T) {
	assert.NoError(t, tasksFilter.Validate())
	assert.ErrorIs(t, Filter{Event: "TRUNCATE", Schema: "public", Table: "tasks"}.Validate(), ErrInvalidFilter)
	assert.ErrorIs(t, Filter{Event: EventAll, Schema: "public", Table: "ta.sks"}.Validate(), ErrInvalidFilter)
	assert.ErrorIs(t, Filter{Event: EventAll, Table: "tasks"}.Validate(), ErrInvalidFilter)
}

func TestPublishSubscribe(t *testing.T) {
	b := newTestBroker(t)

	events := make(chan Event, 4)
	sub, err := b.Subscribe(tasksFilter, func(ev Event) { events <- ev })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, b.Publish(Event{
		Type:   EventInsert,
		Schema: "public",
		Table:  "tasks",
		New:    map[string]any{"id": 1, "title": "Buy milk"},
	}))

	ev := receive(t, events)
	assert.Equal(t, EventInsert, ev.Type)
	assert.Equal(t, "Buy milk", ev.New["title"])
	// JSON numbers decode as float64
	assert.Equal(t, float64(1), ev.New["id"])
	assert.False(t, ev.CommitTimestamp.IsZero())
}

func TestSubscribeSpecificEvent(t *testing.T) {
	b := newTestBroker(t)

	deletes := make(chan Event, 4)
	sub, err := b.Subscribe(Filter{Event: EventDelete, Schema: "public", Table: "tasks"}, func(ev Event) { deletes <- ev })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, b.Publish(Event{Type: EventInsert, Schema: "public", Table: "tasks"}))
	require.NoError(t, b.Publish(Event{Type: EventDelete, Schema: "public", Table: "tasks", Old: map[string]any{"id": 7}}))

	ev := receive(t, deletes)
	assert.Equal(t, EventDelete, ev.Type)
	assert.Empty(t, deletes)
}

func TestOtherTablesAreIgnored(t *testing.T) {
	b := newTestBroker(t)

	events := make(chan Event, 4)
	sub, err := b.Subscribe(tasksFilter, func(ev Event) { events <- ev })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, b.Publish(Event{Type: EventInsert, Schema: "public", Table: "users"}))
	require.NoError(t, b.Publish(Event{Type: EventUpdate, Schema: "public", Table: "tasks"}))

	ev := receive(t, events)
	assert.Equal(t, "tasks", ev.Table)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := newTestBroker(t)

	events := make(chan Event, 4)
	sub, err := b.Subscribe(tasksFilter, func(ev Event) { events <- ev })
	require.NoError(t, err)

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())

	require.NoError(t, b.Publish(Event{Type: EventInsert, Schema: "public", Table: "tasks"}))
	require.NoError(t, b.Flush())

	select {
	case ev := <-events:
		t.Fatalf("unexpected event after unsubscribe: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishRecordsMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	b, err := Connect(Options{SubjectPrefix: "test", Recorder: collector})
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Publish(Event{Type: EventInsert, Schema: "public", Table: "tasks"}))

	count, err := testutil.GatherAndCount(reg, "taskboard_realtime_events_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSubscribeRejectsInvalidFilter(t *testing.T) {
	b := newTestBroker(t)

	_, err := b.Subscribe(Filter{Event: "nope", Schema: "public", Table: "tasks"}, func(Event) {})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}
