package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/duetware/keepsake/internal/llm"
	"github.com/duetware/keepsake/internal/storage"
	"github.com/duetware/keepsake/pkg/types"
)

// contextWindowTurns bounds the conversation slice handed to extraction.
const contextWindowTurns = 15

// ExtractionContext carries everything a single extraction pass needs: the
// recent conversation, the active memory pools for both scopes, and the
// partnership (nil when the user has none).
type ExtractionContext struct {
	UserID       string
	Conversation string
	MemoryDigest string
	Personal     []*types.MemoryRecord
	Shared       []*types.MemoryRecord
	Partnership  *types.Partnership
}

// SharedWritable reports whether shared-scope writes are permitted: the
// user must belong to a partnership in active status.
func (ec *ExtractionContext) SharedWritable() bool {
	return ec.Partnership != nil && ec.Partnership.Status == types.PartnershipActive
}

// ContextAssembler builds ExtractionContexts from storage.
type ContextAssembler struct {
	conversations storage.ConversationStore
	memories      storage.MemoryStore
	partnerships  storage.PartnershipStore
	cache         *PromptCache
}

// NewContextAssembler wires an assembler. cache may be nil to disable
// digest caching.
func NewContextAssembler(conversations storage.ConversationStore, memories storage.MemoryStore, partnerships storage.PartnershipStore, cache *PromptCache) *ContextAssembler {
	return &ContextAssembler{
		conversations: conversations,
		memories:      memories,
		partnerships:  partnerships,
		cache:         cache,
	}
}

// Assemble loads the last contextWindowTurns turns of the conversation, the
// user's personal pool, and the shared pool of their active partnership.
func (a *ContextAssembler) Assemble(ctx context.Context, conversationID, userID string) (*ExtractionContext, error) {
	turns, err := a.conversations.RecentTurns(ctx, conversationID, contextWindowTurns)
	if err != nil {
		return nil, fmt.Errorf("context assembly: loading turns: %w", err)
	}

	ec := &ExtractionContext{
		UserID:       userID,
		Conversation: renderTurns(turns),
	}

	ec.Personal, err = a.memories.FetchActive(ctx, types.PersonalScope(userID))
	if err != nil {
		return nil, fmt.Errorf("context assembly: loading personal pool: %w", err)
	}

	partnership, err := a.partnerships.ActiveForUser(ctx, userID)
	switch {
	case err == nil:
		ec.Partnership = partnership
		ec.Shared, err = a.memories.FetchActive(ctx, types.SharedScope(partnership.ID))
		if err != nil {
			return nil, fmt.Errorf("context assembly: loading shared pool: %w", err)
		}
	case err == storage.ErrNotFound:
		// No partnership; personal scope only.
	default:
		return nil, fmt.Errorf("context assembly: loading partnership: %w", err)
	}

	ec.MemoryDigest = a.digest(ec)
	return ec, nil
}

func (a *ContextAssembler) digest(ec *ExtractionContext) string {
	key := cacheKeyPersonal(ec.UserID)
	if ec.Partnership != nil {
		key += "|" + cacheKeyShared(ec.Partnership.ID)
	}
	if a.cache != nil {
		if cached, ok := a.cache.Get(key); ok {
			return cached
		}
	}
	digest := renderDigest(ec.Personal, ec.Shared)
	if a.cache != nil {
		a.cache.Set(key, digest)
	}
	return digest
}

func renderTurns(turns []*types.Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		label := "User"
		if turn.Role == types.RoleAssistant {
			label = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, turn.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDigest(personal, shared []*types.MemoryRecord) string {
	if len(personal) == 0 && len(shared) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, rec := range personal {
		b.WriteString(llm.DigestLine("personal", rec.Category, rec.Content, rec.Confidence))
		b.WriteByte('\n')
	}
	for _, rec := range shared {
		b.WriteString(llm.DigestLine("shared", rec.Category, rec.Content, rec.Confidence))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
