package engine

import (
	"time"

	"github.com/duetware/keepsake/pkg/types"
)

// Event types published by pipeline components.
const (
	EventMemoryCreated      = "memory_created"
	EventMemoryUpdated      = "memory_updated"
	EventMemoryDeactivated  = "memory_deactivated"
	EventConflictResolved   = "conflict_resolved"
	EventInsightCreated     = "insight_created"
	EventInsightDeactivated = "insight_deactivated"
	EventProfileMerged      = "profile_merged"
	EventSweepCompleted     = "sweep_completed"
)

// Event describes a lifecycle change in the memory subsystem. Events are
// advisory: sinks must never influence pipeline outcomes.
type Event struct {
	Type      string          `json:"type"`
	ScopeKind types.ScopeKind `json:"scope_kind,omitempty"`
	ScopeID   string          `json:"scope_id,omitempty"`
	RecordID  string          `json:"record_id,omitempty"`
	Detail    string          `json:"detail,omitempty"`
	At        time.Time       `json:"at"`
}

// EventSink receives pipeline events. Implementations must not block.
type EventSink interface {
	Publish(event Event)
}

// NullSink discards all events.
type NullSink struct{}

func (NullSink) Publish(Event) {}

// MultiSink fans an event out to several sinks.
type MultiSink []EventSink

func (m MultiSink) Publish(event Event) {
	for _, sink := range m {
		sink.Publish(event)
	}
}

var (
	_ EventSink = NullSink{}
	_ EventSink = MultiSink{}
)
