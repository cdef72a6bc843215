package engine

import (
	"context"
	"testing"
	"time"

	"github.com/duetware/keepsake/internal/llm"
	"github.com/duetware/keepsake/pkg/types"
)

func TestSweepDecaysAllScopesAndRegenerates(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	memories := newFakeMemoryStore()
	memories.now = clock
	partnerships := newFakePartnershipStore()
	insights := newFakeInsightStore()
	seedPartnership(partnerships, "p1", "u1", "u2")

	old := now.Add(-40 * 24 * time.Hour)
	memories.seed(&types.MemoryRecord{Scope: types.PersonalScope("u1"), Category: "preference", Content: "a", Confidence: 0.9, IsActive: true, UpdatedAt: old})
	memories.seed(&types.MemoryRecord{Scope: types.PersonalScope("u2"), Category: "preference", Content: "b", Confidence: 0.9, IsActive: true, UpdatedAt: old})
	memories.seed(&types.MemoryRecord{Scope: types.SharedScope("p1"), Category: "important_date", Content: "c", Confidence: 0.9, IsActive: true, UpdatedAt: old})

	completer := &llm.MockCompletion{Responses: []string{`{
		"new_insights": [
			{"category": "strength", "about": "relationship", "title": "Steady rituals", "content": "They keep a weekly date night", "confidence": 0.7}
		]
	}`}}
	decay := NewDecayJob(memories, nil, clock)
	regen := NewRegenerationJob(completer, memories, insights, nil)
	sweeper := NewSweeper(memories, partnerships, decay, regen, nil, nil, 2)

	report, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.UsersSwept != 2 {
		t.Errorf("users swept = %d, want 2", report.UsersSwept)
	}
	if report.PartnershipsSwept != 1 {
		t.Errorf("partnerships swept = %d, want 1", report.PartnershipsSwept)
	}
	if report.Decayed != 3 {
		t.Errorf("decayed = %d, want 3", report.Decayed)
	}
	if report.InsightsCreated != 1 {
		t.Errorf("insights created = %d, want 1", report.InsightsCreated)
	}
	if report.Failures != 0 {
		t.Errorf("failures = %d, want 0", report.Failures)
	}
}

func TestSweepToleratesRegenFailures(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	memories := newFakeMemoryStore()
	memories.now = clock
	partnerships := newFakePartnershipStore()
	insights := newFakeInsightStore()
	seedPartnership(partnerships, "p1", "u1", "u2")

	memories.seed(&types.MemoryRecord{
		Scope:      types.PersonalScope("u1"),
		Category:   "preference",
		Content:    "a",
		Confidence: 0.9,
		IsActive:   true,
		UpdatedAt:  now.Add(-40 * 24 * time.Hour),
	})

	completer := &llm.MockCompletion{Err: llm.ErrProvider}
	decay := NewDecayJob(memories, nil, clock)
	regen := NewRegenerationJob(completer, memories, insights, nil)
	sweeper := NewSweeper(memories, partnerships, decay, regen, nil, nil, 2)

	report, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("sweep should not fail outright: %v", err)
	}
	if report.Failures != 1 {
		t.Errorf("failures = %d, want 1", report.Failures)
	}
	// The decay half of the sweep still ran.
	if report.Decayed != 1 {
		t.Errorf("decayed = %d, want 1", report.Decayed)
	}
}

func TestSweepEmptyStateIsClean(t *testing.T) {
	memories := newFakeMemoryStore()
	partnerships := newFakePartnershipStore()
	decay := NewDecayJob(memories, nil, nil)
	regen := NewRegenerationJob(&llm.MockCompletion{}, memories, newFakeInsightStore(), nil)
	sweeper := NewSweeper(memories, partnerships, decay, regen, nil, nil, 0)

	report, err := sweeper.Run(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.UsersSwept != 0 || report.PartnershipsSwept != 0 || report.Decayed != 0 {
		t.Errorf("empty sweep changed something: %+v", report)
	}
}
