package engine

import (
	"context"
	"fmt"

	"github.com/duetware/keepsake/internal/storage"
	"github.com/duetware/keepsake/pkg/types"
)

// Action is a user-initiated correction on a memory record.
type Action string

const (
	// ActionConfirm reasserts a memory, restoring confidence and
	// reactivating the record.
	ActionConfirm Action = "confirm"
	// ActionWrong marks a memory incorrect, cutting confidence and
	// deactivating the record if it falls below the floor.
	ActionWrong Action = "wrong"
	// ActionDelete retires a memory outright.
	ActionDelete Action = "delete"
)

const (
	confirmBoost = 0.2
	wrongPenalty = 0.3
)

// ParseAction validates a wire action value.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionConfirm, ActionWrong, ActionDelete:
		return Action(s), nil
	default:
		return "", NewValidationError("action", "unrecognized action %q", s)
	}
}

// ActionResult reports the record's state after an action.
type ActionResult struct {
	ID          string  `json:"id"`
	Confidence  float64 `json:"confidence"`
	IsActive    bool    `json:"is_active"`
	Deactivated bool    `json:"deactivated"`
}

// UserActions applies confirm, wrong, and delete actions with ownership
// checks: personal memories belong to their user, shared memories to either
// member of the partnership.
type UserActions struct {
	memories     storage.MemoryStore
	partnerships storage.PartnershipStore
	locks        *scopeLocks
	cache        *PromptCache
	events       EventSink
}

// NewUserActions wires the action handler. cache may be nil.
func NewUserActions(memories storage.MemoryStore, partnerships storage.PartnershipStore, locks *scopeLocks, cache *PromptCache, events EventSink) *UserActions {
	if events == nil {
		events = NullSink{}
	}
	if locks == nil {
		locks = newScopeLocks()
	}
	return &UserActions{memories: memories, partnerships: partnerships, locks: locks, cache: cache, events: events}
}

// Apply performs action on the memory as userID. Unknown records, records
// outside the caller's scopes, and unrecognized actions return a
// ValidationError.
func (a *UserActions) Apply(ctx context.Context, memoryID, userID string, action Action) (*ActionResult, error) {
	if _, err := ParseAction(string(action)); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, NewValidationError("user_id", "user id is required")
	}

	record, err := a.memories.Get(ctx, memoryID)
	if err == storage.ErrNotFound {
		return nil, NewNotFoundError("memory_id", "no memory %q", memoryID)
	}
	if err != nil {
		return nil, fmt.Errorf("actions: loading memory %s: %w", memoryID, err)
	}
	if err := a.authorize(ctx, record, userID); err != nil {
		return nil, err
	}

	unlock := a.locks.Lock(scopeLockKey(record.Scope))
	defer unlock()

	confidence := record.Confidence
	active := record.IsActive
	switch action {
	case ActionConfirm:
		confidence = types.ClampConfidence(confidence + confirmBoost)
		active = true
	case ActionWrong:
		confidence = types.ClampConfidence(confidence - wrongPenalty)
		if types.BelowFloor(confidence) {
			active = false
		}
	case ActionDelete:
		active = false
	}

	update := storage.MemoryUpdate{
		Confidence: storage.Float64Ptr(confidence),
		IsActive:   storage.BoolPtr(active),
	}
	if err := a.memories.Update(ctx, record.ID, update); err != nil {
		return nil, fmt.Errorf("actions: updating memory %s: %w", record.ID, err)
	}
	if a.cache != nil {
		a.cache.Invalidate(scopeLockKey(record.Scope))
	}

	deactivated := record.IsActive && !active
	eventType := EventMemoryUpdated
	if deactivated {
		eventType = EventMemoryDeactivated
	}
	a.events.Publish(Event{
		Type:      eventType,
		ScopeKind: record.Scope.Kind,
		ScopeID:   record.Scope.ID,
		RecordID:  record.ID,
		Detail:    string(action),
	})

	return &ActionResult{
		ID:          record.ID,
		Confidence:  confidence,
		IsActive:    active,
		Deactivated: deactivated,
	}, nil
}

func (a *UserActions) authorize(ctx context.Context, record *types.MemoryRecord, userID string) error {
	switch record.Scope.Kind {
	case types.ScopePersonal:
		if record.Scope.ID != userID {
			return NewForbiddenError("memory_id", "memory does not belong to user")
		}
	case types.ScopeShared:
		partnership, err := a.partnerships.Get(ctx, record.Scope.ID)
		if err == storage.ErrNotFound {
			return NewForbiddenError("memory_id", "memory partnership not found")
		}
		if err != nil {
			return fmt.Errorf("actions: loading partnership %s: %w", record.Scope.ID, err)
		}
		if !partnership.HasMember(userID) {
			return NewForbiddenError("memory_id", "memory does not belong to user's partnership")
		}
	default:
		return NewValidationError("memory_id", "memory has unknown scope")
	}
	return nil
}

func scopeLockKey(scope types.Scope) string {
	if scope.Kind == types.ScopeShared {
		return cacheKeyShared(scope.ID)
	}
	return cacheKeyPersonal(scope.ID)
}
