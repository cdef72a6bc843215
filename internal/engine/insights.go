package engine

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/duetware/keepsake/internal/llm"
	"github.com/duetware/keepsake/internal/storage"
	"github.com/duetware/keepsake/pkg/types"
)

// RegenResult reports what a regeneration pass changed for a partnership.
type RegenResult struct {
	Created     int
	Deactivated int
}

// RegenerationJob refreshes a partnership's derived insights from its
// current memory pools. A provider or parse failure leaves the existing
// insights untouched.
type RegenerationJob struct {
	completer llm.CompletionService
	memories  storage.MemoryStore
	insights  storage.InsightStore
	events    EventSink
}

// NewRegenerationJob wires a regeneration job.
func NewRegenerationJob(completer llm.CompletionService, memories storage.MemoryStore, insights storage.InsightStore, events EventSink) *RegenerationJob {
	if events == nil {
		events = NullSink{}
	}
	return &RegenerationJob{completer: completer, memories: memories, insights: insights, events: events}
}

// Run regenerates insights for the partnership. referenceUserID anchors the
// relative subjects in the model's response ("user" means the reference
// user, "partner" their partner); when empty, user A of the partnership is
// the reference.
func (j *RegenerationJob) Run(ctx context.Context, partnership *types.Partnership, referenceUserID string) (RegenResult, error) {
	if partnership == nil {
		return RegenResult{}, fmt.Errorf("regeneration: %w: partnership is required", storage.ErrInvalidInput)
	}
	if referenceUserID == "" {
		referenceUserID = partnership.UserAID
	}

	personal, shared, err := j.memoryPools(ctx, partnership)
	if err != nil {
		return RegenResult{}, err
	}
	// Nothing remembered yet: there is no basis to derive insights from,
	// and the existing set stays as it is.
	if len(personal) == 0 && len(shared) == 0 {
		return RegenResult{}, nil
	}
	memoryDigest := renderDigest(personal, shared)

	existing, err := j.insights.FetchActive(ctx, partnership.ID)
	if err != nil {
		return RegenResult{}, fmt.Errorf("regeneration: loading insights: %w", err)
	}

	messages := []llm.Message{
		{Role: "system", Content: llm.RegenerationSystemPrompt},
		{Role: "user", Content: llm.RegenerationPrompt(memoryDigest, insightDigest(existing))},
	}
	raw, err := j.completer.Complete(ctx, messages, llm.CompleteOptions{Temperature: llm.ExtractionTemperature})
	if err != nil {
		return RegenResult{}, fmt.Errorf("regeneration: completion: %w", err)
	}
	parsed, err := llm.ParseRegenerationResult(raw)
	if err != nil {
		return RegenResult{}, fmt.Errorf("regeneration: %w", err)
	}

	result := RegenResult{}
	activeByTitle := make(map[string]*types.Insight, len(existing))
	for _, ins := range existing {
		activeByTitle[strings.ToLower(strings.TrimSpace(ins.Title))] = ins
	}

	deactivate := func(ins *types.Insight) error {
		err := j.insights.Update(ctx, ins.ID, storage.InsightUpdate{IsActive: storage.BoolPtr(false)})
		if err != nil {
			return fmt.Errorf("regeneration: deactivating insight %s: %w", ins.ID, err)
		}
		result.Deactivated++
		delete(activeByTitle, strings.ToLower(strings.TrimSpace(ins.Title)))
		j.events.Publish(Event{
			Type:      EventInsightDeactivated,
			ScopeKind: types.ScopeShared,
			ScopeID:   partnership.ID,
			RecordID:  ins.ID,
		})
		return nil
	}

	for _, title := range parsed.OutdatedTitles {
		ins, ok := activeByTitle[strings.ToLower(strings.TrimSpace(title))]
		if !ok {
			continue
		}
		if err := deactivate(ins); err != nil {
			return result, err
		}
	}

	for _, entry := range parsed.NewInsights {
		category, err := types.ParseInsightCategory(entry.Category)
		if err != nil {
			log.Printf("regeneration: skipping insight: %v", err)
			continue
		}
		subject, err := types.ParseSubjectRef(entry.About)
		if err != nil {
			log.Printf("regeneration: skipping insight: %v", err)
			continue
		}
		// A new insight with an already-used title supersedes the old one.
		if prev, ok := activeByTitle[strings.ToLower(strings.TrimSpace(entry.Title))]; ok {
			if err := deactivate(prev); err != nil {
				return result, err
			}
		}

		confidence := types.DefaultConfidence
		if entry.Confidence != nil {
			confidence = types.ClampConfidence(*entry.Confidence)
		}
		insight := &types.Insight{
			PartnershipID: partnership.ID,
			Category:      category,
			AboutUserID:   resolveSubject(subject, referenceUserID, partnership),
			Title:         entry.Title,
			Content:       entry.Content,
			Confidence:    confidence,
			IsActive:      true,
		}
		created, err := j.insights.Insert(ctx, insight)
		if err != nil {
			return result, fmt.Errorf("regeneration: inserting insight: %w", err)
		}
		result.Created++
		j.events.Publish(Event{
			Type:      EventInsightCreated,
			ScopeKind: types.ScopeShared,
			ScopeID:   partnership.ID,
			RecordID:  created.ID,
		})
	}
	return result, nil
}

// memoryPools loads the shared pool and both members' personal pools;
// insights draw on everything the companion knows about the couple.
func (j *RegenerationJob) memoryPools(ctx context.Context, partnership *types.Partnership) (personal, shared []*types.MemoryRecord, err error) {
	shared, err = j.memories.FetchActive(ctx, types.SharedScope(partnership.ID))
	if err != nil {
		return nil, nil, fmt.Errorf("regeneration: loading shared pool: %w", err)
	}
	for _, userID := range []string{partnership.UserAID, partnership.UserBID} {
		pool, err := j.memories.FetchActive(ctx, types.PersonalScope(userID))
		if err != nil {
			return nil, nil, fmt.Errorf("regeneration: loading personal pool for %s: %w", userID, err)
		}
		personal = append(personal, pool...)
	}
	return personal, shared, nil
}

func insightDigest(insights []*types.Insight) string {
	if len(insights) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, ins := range insights {
		fmt.Fprintf(&b, "[%s] %s: %s (confidence %.2f)\n", ins.Category, ins.Title, ins.Content, ins.Confidence)
	}
	return strings.TrimRight(b.String(), "\n")
}
