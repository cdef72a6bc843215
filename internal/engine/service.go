package engine

import (
	"context"
	"log"
	"time"

	"github.com/duetware/keepsake/internal/llm"
	"github.com/duetware/keepsake/internal/storage"
	"github.com/duetware/keepsake/pkg/types"
)

// extractionTimeout bounds a background extraction pass, completion call
// included.
const extractionTimeout = 2 * time.Minute

// Service is the memory subsystem's facade. Turn handling, memory listing,
// user actions, and the maintenance sweep all go through it.
type Service struct {
	stores    *storage.Backends
	trigger   *TriggerEvaluator
	assembler *ContextAssembler
	extractor *Extractor
	actions   *UserActions
	decay     *DecayJob
	regen     *RegenerationJob
	sweeper   *Sweeper
	locks     *scopeLocks
	cache     *PromptCache
	events    EventSink

	// async gates background extraction; tests disable it to run the
	// pipeline inline.
	async bool
}

// ServiceOptions tunes optional service behavior.
type ServiceOptions struct {
	// Embedder enables semantic conflict matching and embedding storage.
	Embedder llm.EmbeddingGenerator
	// Events receives lifecycle events; nil discards them.
	Events EventSink
	// SweepConcurrency bounds the maintenance sweep's parallelism.
	SweepConcurrency int
	// Now overrides the clock for decay and caching.
	Now func() time.Time
	// SyncExtraction runs extraction inline instead of in the background.
	SyncExtraction bool
}

// NewService wires the full pipeline over the given stores and completion
// service.
func NewService(stores *storage.Backends, completer llm.CompletionService, opts ServiceOptions) *Service {
	events := opts.Events
	if events == nil {
		events = NullSink{}
	}
	locks := newScopeLocks()
	cache := NewPromptCache(defaultCacheSize, defaultCacheTTL, opts.Now)
	resolver := NewConflictResolver(stores.Memories, opts.Embedder, events)
	decay := NewDecayJob(stores.Memories, events, opts.Now)
	regen := NewRegenerationJob(completer, stores.Memories, stores.Insights, events)

	return &Service{
		stores:    stores,
		trigger:   NewTriggerEvaluator(),
		assembler: NewContextAssembler(stores.Conversations, stores.Memories, stores.Partnerships, cache),
		extractor: NewExtractor(completer, opts.Embedder, stores.Memories, stores.Insights, stores.Profiles, resolver, cache, events),
		actions:   NewUserActions(stores.Memories, stores.Partnerships, locks, cache, events),
		decay:     decay,
		regen:     regen,
		sweeper:   NewSweeper(stores.Memories, stores.Partnerships, decay, regen, locks, events, opts.SweepConcurrency),
		locks:     locks,
		cache:     cache,
		events:    events,
		async:     !opts.SyncExtraction,
	}
}

// HandleUserTurn records a user turn and, when the trigger fires, starts an
// extraction pass. Extraction runs in the background and never fails the
// turn; the returned flag only reports whether it was started.
func (s *Service) HandleUserTurn(ctx context.Context, conversationID, userID, content string) (*types.Turn, bool, error) {
	turn := &types.Turn{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           types.RoleUser,
		Content:        content,
	}
	turn, err := s.stores.Conversations.AppendTurn(ctx, turn)
	if err != nil {
		return nil, false, err
	}

	count, err := s.stores.Conversations.CountUserTurns(ctx, conversationID)
	if err != nil {
		return turn, false, err
	}
	if !s.trigger.ShouldExtract(count, content) {
		return turn, false, nil
	}

	if s.async {
		go s.extractInBackground(conversationID, userID, turn.ID)
	} else {
		s.runExtraction(ctx, conversationID, userID, turn.ID)
	}
	return turn, true, nil
}

// RecordAssistantTurn appends an assistant turn. Assistant turns never
// trigger extraction but do appear in the context window.
func (s *Service) RecordAssistantTurn(ctx context.Context, conversationID, userID, content string) (*types.Turn, error) {
	return s.stores.Conversations.AppendTurn(ctx, &types.Turn{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           types.RoleAssistant,
		Content:        content,
	})
}

func (s *Service) extractInBackground(conversationID, userID, sourceMessageID string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("extraction: recovered from panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), extractionTimeout)
	defer cancel()
	s.runExtraction(ctx, conversationID, userID, sourceMessageID)
}

func (s *Service) runExtraction(ctx context.Context, conversationID, userID, sourceMessageID string) {
	unlock := s.locks.Lock(cacheKeyPersonal(userID))
	defer unlock()

	ec, err := s.assembler.Assemble(ctx, conversationID, userID)
	if err != nil {
		log.Printf("extraction: assembling context for user %s: %v", userID, err)
		return
	}
	outcome := s.extractor.Run(ctx, ec, sourceMessageID)
	if err := outcome.Err(); err != nil {
		log.Printf("extraction: user %s finished with errors: %v", userID, err)
	}
	log.Printf("extraction: user %s: %s", userID, outcome.Summary())
}

// MemoriesForUser lists the user's active personal memories.
func (s *Service) MemoriesForUser(ctx context.Context, userID string) ([]*types.MemoryRecord, error) {
	return s.stores.Memories.FetchActive(ctx, types.PersonalScope(userID))
}

// MemoriesForPartnership lists a partnership's active shared memories.
func (s *Service) MemoriesForPartnership(ctx context.Context, partnershipID string) ([]*types.MemoryRecord, error) {
	return s.stores.Memories.FetchActive(ctx, types.SharedScope(partnershipID))
}

// InsightsForPartnership lists a partnership's active insights.
func (s *Service) InsightsForPartnership(ctx context.Context, partnershipID string) ([]*types.Insight, error) {
	return s.stores.Insights.FetchActive(ctx, partnershipID)
}

// ApplyAction applies a user action to a memory record.
func (s *Service) ApplyAction(ctx context.Context, memoryID, userID string, action Action) (*ActionResult, error) {
	return s.actions.Apply(ctx, memoryID, userID, action)
}

// Sweep runs one maintenance sweep.
func (s *Service) Sweep(ctx context.Context) (*SweepReport, error) {
	return s.sweeper.Run(ctx)
}

// RegenerateInsights runs insight regeneration for a user's active
// partnership.
func (s *Service) RegenerateInsights(ctx context.Context, userID string) (RegenResult, error) {
	partnership, err := s.stores.Partnerships.ActiveForUser(ctx, userID)
	if err != nil {
		return RegenResult{}, err
	}
	unlock := s.locks.Lock(cacheKeyShared(partnership.ID))
	defer unlock()
	return s.regen.Run(ctx, partnership, userID)
}
