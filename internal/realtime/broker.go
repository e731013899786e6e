package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/templui/taskboard/internal/metrics"
)

// Options configures Connect.
type Options struct {
	// URL of an external NATS server. Empty starts an embedded one.
	URL           string
	SubjectPrefix string
	Recorder      metrics.Recorder
}

// Broker fans table changes out to subscribers over NATS.
type Broker struct {
	conn     *nats.Conn
	embedded *server.Server
	prefix   string
	recorder metrics.Recorder
}

func Connect(opts Options) (*Broker, error) {
	b := &Broker{
		prefix:   opts.SubjectPrefix,
		recorder: opts.Recorder,
	}
	if b.prefix == "" {
		b.prefix = "realtime"
	}
	if b.recorder == nil {
		b.recorder = metrics.Nop{}
	}

	if opts.URL != "" {
		slog.Info("connecting to NATS", "url", opts.URL)
		conn, err := nats.Connect(opts.URL, nats.Name("taskboard"))
		if err != nil {
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		b.conn = conn
		return b, nil
	}

	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random available port
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server failed to start")
	}

	conn, err := nats.Connect(ns.ClientURL(), nats.Name("taskboard"))
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("connect to embedded NATS: %w", err)
	}

	slog.Info("embedded NATS server started", "url", ns.ClientURL())
	b.embedded = ns
	b.conn = conn
	return b, nil
}

// Publish sends ev to every matching subscription.
func (b *Broker) Publish(ev Event) error {
	if ev.CommitTimestamp.IsZero() {
		ev.CommitTimestamp = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	err = b.conn.Publish(ev.subject(b.prefix), data)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	b.recorder.RecordRealtimeEvent(string(ev.Type))
	return nil
}

// Subscribe delivers matching events to fn, one at a time, in publish order.
func (b *Broker) Subscribe(filter Filter, fn func(Event)) (*Subscription, error) {
	err := filter.Validate()
	if err != nil {
		return nil, err
	}

	sub, err := b.conn.Subscribe(filter.subject(b.prefix), func(msg *nats.Msg) {
		var ev Event
		err := json.Unmarshal(msg.Data, &ev)
		if err != nil {
			slog.Warn("dropping malformed realtime event", "subject", msg.Subject, "error", err)
			return
		}
		fn(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	// Make sure the server knows about the interest before returning, so a
	// publish that follows is not missed.
	err = b.conn.Flush()
	if err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	return &Subscription{sub: sub}, nil
}

// Flush waits until the server has processed everything published so far.
func (b *Broker) Flush() error {
	return b.conn.Flush()
}

func (b *Broker) Close() {
	if b.conn != nil {
		_ = b.conn.Drain()
		b.conn.Close()
	}

	if b.embedded != nil {
		b.embedded.Shutdown()
		b.embedded.WaitForShutdown()
	}
}

type Subscription struct {
	sub  *nats.Subscription
	once sync.Once
	err  error
}

// Unsubscribe stops delivery. Safe to call more than once.
func (s *Subscription) Unsubscribe() error {
	s.once.Do(func() {
		s.err = s.sub.Unsubscribe()
	})
	return s.err
}
