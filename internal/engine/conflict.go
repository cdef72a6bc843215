package engine

import (
	"context"
	"log"
	"math"
	"strings"

	"github.com/duetware/keepsake/internal/llm"
	"github.com/duetware/keepsake/internal/storage"
	"github.com/duetware/keepsake/pkg/types"
)

const (
	// conflictPenalty is subtracted from a contradicted record's confidence.
	conflictPenalty = 0.4
	// tokenOverlapThreshold is the minimum Jaccard similarity between token
	// sets for a fuzzy contradiction match.
	tokenOverlapThreshold = 0.6
	// cosineThreshold is the minimum embedding cosine similarity for the
	// semantic fallback.
	cosineThreshold = 0.85
)

// ConflictResolver downgrades records the extractor marked as contradicted.
// Matching runs in three stages against the already-loaded pools: exact
// content match, token-overlap match, then embedding cosine similarity when
// an embedder is configured. The first match wins; personal records are
// checked before shared ones, each pool in creation order.
type ConflictResolver struct {
	memories storage.MemoryStore
	embedder llm.EmbeddingGenerator
	events   EventSink
}

// NewConflictResolver wires a resolver. embedder may be nil, which disables
// the semantic fallback.
func NewConflictResolver(memories storage.MemoryStore, embedder llm.EmbeddingGenerator, events EventSink) *ConflictResolver {
	if events == nil {
		events = NullSink{}
	}
	return &ConflictResolver{memories: memories, embedder: embedder, events: events}
}

// Resolve finds the record matching the contradicted text and applies the
// confidence penalty, deactivating the record if it falls below the floor.
// A miss is a silent no-op returning nil.
func (r *ConflictResolver) Resolve(ctx context.Context, contradicted string, personal, shared []*types.MemoryRecord) (*types.MemoryRecord, error) {
	contradicted = strings.TrimSpace(contradicted)
	if contradicted == "" {
		return nil, nil
	}

	match := r.findMatch(ctx, contradicted, personal, shared)
	if match == nil {
		return nil, nil
	}

	confidence := types.ClampConfidence(match.Confidence - conflictPenalty)
	update := storage.MemoryUpdate{Confidence: storage.Float64Ptr(confidence)}
	deactivated := false
	if types.BelowFloor(confidence) && match.IsActive {
		update.IsActive = storage.BoolPtr(false)
		deactivated = true
	}
	if err := r.memories.Update(ctx, match.ID, update); err != nil {
		return nil, err
	}
	match.Confidence = confidence
	if deactivated {
		match.IsActive = false
	}

	r.events.Publish(Event{
		Type:      EventConflictResolved,
		ScopeKind: match.Scope.Kind,
		ScopeID:   match.Scope.ID,
		RecordID:  match.ID,
	})
	if deactivated {
		r.events.Publish(Event{
			Type:      EventMemoryDeactivated,
			ScopeKind: match.Scope.Kind,
			ScopeID:   match.Scope.ID,
			RecordID:  match.ID,
		})
	}
	return match, nil
}

func (r *ConflictResolver) findMatch(ctx context.Context, contradicted string, personal, shared []*types.MemoryRecord) *types.MemoryRecord {
	pools := [][]*types.MemoryRecord{personal, shared}

	// Stage 1: exact content match, case-insensitive after trimming.
	needle := strings.ToLower(contradicted)
	for _, pool := range pools {
		for _, rec := range pool {
			if strings.ToLower(strings.TrimSpace(rec.Content)) == needle {
				return rec
			}
		}
	}

	// Stage 2: token overlap.
	target := tokenSet(contradicted)
	for _, pool := range pools {
		for _, rec := range pool {
			if jaccard(target, tokenSet(rec.Content)) >= tokenOverlapThreshold {
				return rec
			}
		}
	}

	// Stage 3: embedding similarity, when available.
	if r.embedder == nil {
		return nil
	}
	vec, err := r.embedder.Embed(ctx, contradicted)
	if err != nil {
		log.Printf("conflict: embedding contradicted text failed, skipping semantic match: %v", err)
		return nil
	}
	for _, pool := range pools {
		for _, rec := range pool {
			if len(rec.Embedding) == 0 {
				continue
			}
			if cosineSimilarity(vec, rec.Embedding) >= cosineThreshold {
				return rec
			}
		}
	}
	return nil
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !isTokenRune(r)
	}) {
		set[tok] = struct{}{}
	}
	return set
}

func isTokenRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r >= 'à' && r <= 'ÿ':
		return true
	}
	return false
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
