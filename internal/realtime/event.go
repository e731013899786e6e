package realtime

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	// EventAll matches every change type in a Filter.
	EventAll EventType = "*"
)

var ErrInvalidFilter = errors.New("invalid realtime filter")

// Event is one row change on a table.
type Event struct {
	Type            EventType      `json:"type"`
	Schema          string         `json:"schema"`
	Table           string         `json:"table"`
	New             map[string]any `json:"new,omitempty"`
	Old             map[string]any `json:"old,omitempty"`
	CommitTimestamp time.Time      `json:"commit_timestamp"`
}

// Filter selects the changes a subscription receives.
type Filter struct {
	Event  EventType
	Schema string
	Table  string
}

func (f Filter) Validate() error {
	switch f.Event {
	case EventAll, EventInsert, EventUpdate, EventDelete:
	default:
		return fmt.Errorf("%w: unknown event %q", ErrInvalidFilter, f.Event)
	}
	if !validToken(f.Schema) {
		return fmt.Errorf("%w: bad schema %q", ErrInvalidFilter, f.Schema)
	}
	if !validToken(f.Table) {
		return fmt.Errorf("%w: bad table %q", ErrInvalidFilter, f.Table)
	}
	return nil
}

// subject is <prefix>.<schema>.<table>.<EVENT>, with * as the NATS wildcard.
func (f Filter) subject(prefix string) string {
	return strings.Join([]string{prefix, f.Schema, f.Table, string(f.Event)}, ".")
}

func (e Event) subject(prefix string) string {
	return Filter{Event: e.Type, Schema: e.Schema, Table: e.Table}.subject(prefix)
}

func validToken(s string) bool {
	return s != "" && !strings.ContainsAny(s, ".*> \t")
}
