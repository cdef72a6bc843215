package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/duetware/keepsake/internal/llm"
	"github.com/duetware/keepsake/internal/storage"
	"github.com/duetware/keepsake/pkg/types"
)

// ExtractionOutcome reports everything a single extraction pass did. The
// write fan-out is best-effort per sibling: one failed write never rolls
// back or blocks the others, and every failure lands in Errors.
type ExtractionOutcome struct {
	PersonalCreated   int
	SharedCreated     int
	SharedDropped     int
	InsightsCreated   int
	ProfilesMerged    int
	ProfilesDropped   int
	ConflictsResolved int
	Skipped           int
	Errors            []error
}

// Err aggregates write failures, nil when the pass was clean.
func (o *ExtractionOutcome) Err() error {
	return errors.Join(o.Errors...)
}

// Summary renders a one-line account for logging.
func (o *ExtractionOutcome) Summary() string {
	return fmt.Sprintf("personal=%d shared=%d dropped=%d insights=%d profiles=%d profilesDropped=%d conflicts=%d skipped=%d errors=%d",
		o.PersonalCreated, o.SharedCreated, o.SharedDropped, o.InsightsCreated,
		o.ProfilesMerged, o.ProfilesDropped, o.ConflictsResolved, o.Skipped, len(o.Errors))
}

// Extractor runs the extraction pass: one completion call, then concurrent
// writes of memories, insights, and profile merges.
type Extractor struct {
	completer llm.CompletionService
	embedder  llm.EmbeddingGenerator
	memories  storage.MemoryStore
	insights  storage.InsightStore
	profiles  storage.ProfileStore
	resolver  *ConflictResolver
	cache     *PromptCache
	events    EventSink
}

// NewExtractor wires an extractor. embedder and cache may be nil.
func NewExtractor(completer llm.CompletionService, embedder llm.EmbeddingGenerator, memories storage.MemoryStore, insights storage.InsightStore, profiles storage.ProfileStore, resolver *ConflictResolver, cache *PromptCache, events EventSink) *Extractor {
	if events == nil {
		events = NullSink{}
	}
	return &Extractor{
		completer: completer,
		embedder:  embedder,
		memories:  memories,
		insights:  insights,
		profiles:  profiles,
		resolver:  resolver,
		cache:     cache,
		events:    events,
	}
}

// Run performs one extraction pass over the assembled context. The
// completion and parse stages fail the whole pass; write failures are
// collected per sibling.
func (e *Extractor) Run(ctx context.Context, ec *ExtractionContext, sourceMessageID string) *ExtractionOutcome {
	outcome := &ExtractionOutcome{}

	messages := []llm.Message{
		{Role: "system", Content: llm.ExtractionSystemPrompt},
		{Role: "user", Content: llm.ExtractionPrompt(ec.Conversation, ec.MemoryDigest)},
	}
	raw, err := e.completer.Complete(ctx, messages, llm.CompleteOptions{Temperature: llm.ExtractionTemperature})
	if err != nil {
		outcome.Errors = append(outcome.Errors, fmt.Errorf("extraction: completion: %w", err))
		return outcome
	}

	result, err := llm.ParseExtractionResult(raw)
	if err != nil {
		outcome.Errors = append(outcome.Errors, fmt.Errorf("extraction: %w", err))
		return outcome
	}
	if result.Empty() {
		return outcome
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	fail := func(err error) {
		mu.Lock()
		outcome.Errors = append(outcome.Errors, err)
		mu.Unlock()
	}

	if result.Personality != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.mergePersonality(ctx, ec.UserID, result.Personality); err != nil {
				fail(err)
				return
			}
			mu.Lock()
			outcome.ProfilesMerged++
			mu.Unlock()
		}()
	}
	if result.PartnerProfile != nil && ec.Partnership != nil {
		// Once a partnership is linked, shared memories carry partner
		// facts; the pre-partnership profile is no longer written.
		outcome.ProfilesDropped++
	} else if result.PartnerProfile != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pp := result.PartnerProfile
			if err := e.profiles.MergePartnerProfile(ctx, ec.UserID, pp.Name, pp.Observations); err != nil {
				fail(fmt.Errorf("extraction: merging partner profile: %w", err))
				return
			}
			mu.Lock()
			outcome.ProfilesMerged++
			mu.Unlock()
			e.events.Publish(Event{
				Type:      EventProfileMerged,
				ScopeKind: types.ScopePersonal,
				ScopeID:   ec.UserID,
			})
		}()
	}
	if len(result.PersonalMemories) > 0 || len(result.SharedMemories) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Memory entries run sequentially so conflict resolution sees a
			// stable pool order.
			e.writeMemories(ctx, ec, result, sourceMessageID, outcome, &mu)
		}()
	}
	if len(result.Insights) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.writeInsights(ctx, ec, result.Insights, outcome, &mu)
		}()
	}
	wg.Wait()

	e.invalidate(ec)
	return outcome
}

func (e *Extractor) mergePersonality(ctx context.Context, userID string, entry *llm.PersonalityEntry) error {
	obs := types.PersonalityObservation{
		Traits:              entry.Traits,
		EmotionalTendencies: entry.EmotionalTendencies,
		CommunicationPrefs:  entry.CommunicationPrefs,
		Values:              entry.Values,
		StressResponses:     entry.StressResponses,
		Boundaries:          entry.Boundaries,
		HumorStyle:          entry.HumorStyle,
		Notes:               entry.Notes,
	}
	if obs.Empty() {
		return nil
	}
	if err := e.profiles.MergePersonality(ctx, userID, obs); err != nil {
		return fmt.Errorf("extraction: merging personality: %w", err)
	}
	e.events.Publish(Event{
		Type:      EventProfileMerged,
		ScopeKind: types.ScopePersonal,
		ScopeID:   userID,
	})
	return nil
}

func (e *Extractor) writeMemories(ctx context.Context, ec *ExtractionContext, result *llm.ExtractionResult, sourceMessageID string, outcome *ExtractionOutcome, mu *sync.Mutex) {
	for _, entry := range result.PersonalMemories {
		if _, err := types.ParsePersonalCategory(entry.Category); err != nil {
			log.Printf("extraction: skipping personal memory: %v", err)
			mu.Lock()
			outcome.Skipped++
			mu.Unlock()
			continue
		}
		e.writeMemory(ctx, ec, entry, types.PersonalScope(ec.UserID), nil, sourceMessageID, outcome, mu)
	}

	sharedWritable := ec.SharedWritable()
	for _, entry := range result.SharedMemories {
		if !sharedWritable {
			mu.Lock()
			outcome.SharedDropped++
			mu.Unlock()
			continue
		}
		if _, err := types.ParseSharedCategory(entry.Category); err != nil {
			log.Printf("extraction: skipping shared memory: %v", err)
			mu.Lock()
			outcome.Skipped++
			mu.Unlock()
			continue
		}
		subject, err := types.ParseSubjectRef(entry.About)
		if err != nil {
			log.Printf("extraction: skipping shared memory: %v", err)
			mu.Lock()
			outcome.Skipped++
			mu.Unlock()
			continue
		}
		e.writeMemory(ctx, ec, entry, types.SharedScope(ec.Partnership.ID), &subject, sourceMessageID, outcome, mu)
	}
}

func (e *Extractor) writeMemory(ctx context.Context, ec *ExtractionContext, entry llm.MemoryEntry, scope types.Scope, subject *types.SubjectRef, sourceMessageID string, outcome *ExtractionOutcome, mu *sync.Mutex) {
	if entry.Contradicts != "" && e.resolver != nil {
		resolved, err := e.resolver.Resolve(ctx, entry.Contradicts, ec.Personal, ec.Shared)
		if err != nil {
			mu.Lock()
			outcome.Errors = append(outcome.Errors, fmt.Errorf("extraction: resolving conflict: %w", err))
			mu.Unlock()
		} else if resolved != nil {
			mu.Lock()
			outcome.ConflictsResolved++
			mu.Unlock()
		}
	}

	confidence := types.DefaultConfidence
	if entry.Confidence != nil {
		confidence = types.ClampConfidence(*entry.Confidence)
	}
	record := &types.MemoryRecord{
		Scope:           scope,
		Category:        entry.Category,
		AboutSubject:    subject,
		Content:         entry.Content,
		Confidence:      confidence,
		IsActive:        true,
		SourceMessageID: sourceMessageID,
	}
	if e.embedder != nil {
		vec, err := e.embedder.Embed(ctx, entry.Content)
		if err != nil {
			log.Printf("extraction: embedding memory content failed, storing without: %v", err)
		} else {
			record.Embedding = vec
		}
	}

	created, err := e.memories.Insert(ctx, record)
	if err != nil {
		mu.Lock()
		outcome.Errors = append(outcome.Errors, fmt.Errorf("extraction: inserting %s memory: %w", scope.Kind, err))
		mu.Unlock()
		return
	}

	mu.Lock()
	if scope.Kind == types.ScopeShared {
		outcome.SharedCreated++
	} else {
		outcome.PersonalCreated++
	}
	mu.Unlock()
	e.events.Publish(Event{
		Type:      EventMemoryCreated,
		ScopeKind: scope.Kind,
		ScopeID:   scope.ID,
		RecordID:  created.ID,
	})
}

func (e *Extractor) writeInsights(ctx context.Context, ec *ExtractionContext, entries []llm.InsightEntry, outcome *ExtractionOutcome, mu *sync.Mutex) {
	if !ec.SharedWritable() {
		mu.Lock()
		outcome.SharedDropped += len(entries)
		mu.Unlock()
		return
	}
	for _, entry := range entries {
		category, err := types.ParseInsightCategory(entry.Category)
		if err != nil {
			log.Printf("extraction: skipping insight: %v", err)
			mu.Lock()
			outcome.Skipped++
			mu.Unlock()
			continue
		}
		subject, err := types.ParseSubjectRef(entry.About)
		if err != nil {
			log.Printf("extraction: skipping insight: %v", err)
			mu.Lock()
			outcome.Skipped++
			mu.Unlock()
			continue
		}

		confidence := types.DefaultConfidence
		if entry.Confidence != nil {
			confidence = types.ClampConfidence(*entry.Confidence)
		}
		insight := &types.Insight{
			PartnershipID: ec.Partnership.ID,
			Category:      category,
			AboutUserID:   resolveSubject(subject, ec.UserID, ec.Partnership),
			Title:         entry.Title,
			Content:       entry.Content,
			Confidence:    confidence,
			IsActive:      true,
		}
		created, err := e.insights.Insert(ctx, insight)
		if err != nil {
			mu.Lock()
			outcome.Errors = append(outcome.Errors, fmt.Errorf("extraction: inserting insight: %w", err))
			mu.Unlock()
			continue
		}
		mu.Lock()
		outcome.InsightsCreated++
		mu.Unlock()
		e.events.Publish(Event{
			Type:      EventInsightCreated,
			ScopeKind: types.ScopeShared,
			ScopeID:   ec.Partnership.ID,
			RecordID:  created.ID,
		})
	}
}

// resolveSubject maps the extractor's relative subject to a concrete user
// id; relationship-level subjects map to nil.
func resolveSubject(subject types.SubjectRef, userID string, partnership *types.Partnership) *string {
	switch subject {
	case types.SubjectUser:
		return &userID
	case types.SubjectPartner:
		partnerID := partnership.PartnerOf(userID)
		if partnerID == "" {
			return nil
		}
		return &partnerID
	default:
		return nil
	}
}

func (e *Extractor) invalidate(ec *ExtractionContext) {
	if e.cache == nil {
		return
	}
	e.cache.Invalidate(cacheKeyPersonal(ec.UserID))
	if ec.Partnership != nil {
		e.cache.Invalidate(cacheKeyShared(ec.Partnership.ID))
	}
}
