// Package storage provides composable storage interfaces for the Keepsake
// memory system.
//
// The storage layer is designed with small, focused interfaces that can be
// implemented independently and composed as needed. Both the PostgreSQL and
// SQLite backends implement the full set; the engine depends only on the
// interfaces.
package storage

import (
	"context"

	"github.com/duetware/keepsake/pkg/types"
)

// MemoryStore provides persistence for personal and shared memory records.
// No hard-delete operation is exposed: records are only ever deactivated.
type MemoryStore interface {
	// FetchActive returns all active records for the given scope, ordered
	// by insertion (created_at ascending). The ordering is a contract:
	// conflict resolution picks the first match in this order.
	FetchActive(ctx context.Context, scope types.Scope) ([]*types.MemoryRecord, error)

	// Insert stores a new record. A missing ID is generated; CreatedAt and
	// UpdatedAt are set when zero. Returns the stored record.
	Insert(ctx context.Context, record *types.MemoryRecord) (*types.MemoryRecord, error)

	// Get retrieves a record by ID regardless of active state.
	// Returns ErrNotFound if the record doesn't exist.
	Get(ctx context.Context, id string) (*types.MemoryRecord, error)

	// Update applies the non-nil fields of upd and refreshes UpdatedAt.
	// Returns ErrNotFound if the record doesn't exist.
	Update(ctx context.Context, id string, upd MemoryUpdate) error

	// ListUserIDsWithActiveMemories returns the distinct owners of at
	// least one active personal record. Drives the maintenance sweep.
	ListUserIDsWithActiveMemories(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// InsightStore provides persistence for derived insights.
type InsightStore interface {
	// FetchActive returns all active insights for a partnership, ordered
	// by insertion.
	FetchActive(ctx context.Context, partnershipID string) ([]*types.Insight, error)

	// Insert stores a new insight, generating a missing ID.
	Insert(ctx context.Context, insight *types.Insight) (*types.Insight, error)

	// Update applies the non-nil fields of upd and refreshes UpdatedAt.
	// Returns ErrNotFound if the insight doesn't exist.
	Update(ctx context.Context, id string, upd InsightUpdate) error

	Close() error
}

// ProfileStore persists personality summaries and pre-partnership partner
// profiles. Both are merge-only aggregates, never decayed.
type ProfileStore interface {
	// GetPersonality returns the summary for a user, or an empty summary
	// (not ErrNotFound) when none has been written yet.
	GetPersonality(ctx context.Context, userID string) (*types.PersonalitySummary, error)

	// MergePersonality folds an observation into the stored summary,
	// creating it on first write.
	MergePersonality(ctx context.Context, userID string, obs types.PersonalityObservation) error

	// MergePartnerProfile folds partner observations into the stored
	// profile, creating it on first write.
	MergePartnerProfile(ctx context.Context, userID, name string, observations []string) error

	Close() error
}

// PartnershipStore reads partnership links. The linking flow itself belongs
// to the account system; this subsystem only resolves and enumerates links.
type PartnershipStore interface {
	// ActiveForUser returns the active partnership containing userID, or
	// ErrNotFound when the user has none.
	ActiveForUser(ctx context.Context, userID string) (*types.Partnership, error)

	// Get returns a partnership by ID. Returns ErrNotFound if missing.
	Get(ctx context.Context, id string) (*types.Partnership, error)

	// ListActive returns all partnerships with active status. Drives the
	// insight regeneration sweep.
	ListActive(ctx context.Context) ([]*types.Partnership, error)

	// Upsert stores a partnership link. Exposed for the account system
	// and for tests.
	Upsert(ctx context.Context, p *types.Partnership) error

	Close() error
}

// ConversationStore reads and appends conversation turns.
type ConversationStore interface {
	// AppendTurn stores a turn, generating a missing ID.
	AppendTurn(ctx context.Context, turn *types.Turn) (*types.Turn, error)

	// RecentTurns returns the last n turns of a conversation in
	// chronological order.
	RecentTurns(ctx context.Context, conversationID string, n int) ([]*types.Turn, error)

	// CountUserTurns returns the number of user-role turns in a
	// conversation.
	CountUserTurns(ctx context.Context, conversationID string) (int, error)

	Close() error
}
