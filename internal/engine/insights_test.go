package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/duetware/keepsake/internal/llm"
	"github.com/duetware/keepsake/pkg/types"
)

func TestRegenerationDeactivatesOutdatedAndCreatesNew(t *testing.T) {
	memories := newFakeMemoryStore()
	insights := newFakeInsightStore()
	partnership := &types.Partnership{ID: "p1", UserAID: "u1", UserBID: "u2", Status: types.PartnershipActive}

	old, _ := insights.Insert(context.Background(), &types.Insight{
		PartnershipID: "p1",
		Category:      types.InsightCommunication,
		Title:         "Avoids hard conversations",
		Content:       "They postpone difficult topics",
		Confidence:    0.7,
		IsActive:      true,
	})

	completer := &llm.MockCompletion{Responses: []string{`{
		"outdated_titles": ["avoids hard conversations"],
		"new_insights": [
			{"category": "growth_area", "about": "relationship", "title": "Learning to talk it out", "content": "They now raise issues the same day", "confidence": 0.75}
		]
	}`}}

	job := NewRegenerationJob(completer, memories, insights, nil)
	result, err := job.Run(context.Background(), partnership, "u1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Deactivated != 1 || result.Created != 1 {
		t.Fatalf("got deactivated=%d created=%d, want 1/1", result.Deactivated, result.Created)
	}

	active, _ := insights.FetchActive(context.Background(), "p1")
	if len(active) != 1 {
		t.Fatalf("got %d active insights, want 1", len(active))
	}
	if active[0].ID == old.ID {
		t.Error("outdated insight still active")
	}
	if active[0].Title != "Learning to talk it out" {
		t.Errorf("unexpected surviving insight %q", active[0].Title)
	}
}

func TestRegenerationDuplicateTitleSupersedes(t *testing.T) {
	memories := newFakeMemoryStore()
	insights := newFakeInsightStore()
	partnership := &types.Partnership{ID: "p1", UserAID: "u1", UserBID: "u2", Status: types.PartnershipActive}

	_, _ = insights.Insert(context.Background(), &types.Insight{
		PartnershipID: "p1",
		Category:      types.InsightAppreciation,
		Title:         "Values small gestures",
		Content:       "old content",
		Confidence:    0.6,
		IsActive:      true,
	})

	completer := &llm.MockCompletion{Responses: []string{`{
		"new_insights": [
			{"category": "appreciation", "about": "user", "title": "Values Small Gestures", "content": "fresh content", "confidence": 0.8}
		]
	}`}}

	job := NewRegenerationJob(completer, memories, insights, nil)
	result, err := job.Run(context.Background(), partnership, "u1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Deactivated != 1 || result.Created != 1 {
		t.Fatalf("got deactivated=%d created=%d, want 1/1", result.Deactivated, result.Created)
	}

	active, _ := insights.FetchActive(context.Background(), "p1")
	if len(active) != 1 || active[0].Content != "fresh content" {
		t.Fatalf("expected the fresh insight to supersede, got %+v", active)
	}
	if active[0].AboutUserID == nil || *active[0].AboutUserID != "u1" {
		t.Errorf("about = %v, want u1", active[0].AboutUserID)
	}
}

func TestRegenerationFailureLeavesInsightsUntouched(t *testing.T) {
	memories := newFakeMemoryStore()
	insights := newFakeInsightStore()
	partnership := &types.Partnership{ID: "p1", UserAID: "u1", UserBID: "u2", Status: types.PartnershipActive}

	_, _ = insights.Insert(context.Background(), &types.Insight{
		PartnershipID: "p1",
		Category:      types.InsightStrength,
		Title:         "Checks in daily",
		Content:       "content",
		Confidence:    0.7,
		IsActive:      true,
	})

	completer := &llm.MockCompletion{Err: llm.ErrProvider}
	job := NewRegenerationJob(completer, memories, insights, nil)
	result, err := job.Run(context.Background(), partnership, "")
	if !errors.Is(err, llm.ErrProvider) {
		t.Fatalf("got %v, want ErrProvider", err)
	}
	if result.Created != 0 || result.Deactivated != 0 {
		t.Fatalf("failure must report zero changes, got %+v", result)
	}

	active, _ := insights.FetchActive(context.Background(), "p1")
	if len(active) != 1 {
		t.Fatalf("insights changed on failure: %d active", len(active))
	}
}

func TestRegenerationUnknownOutdatedTitleIsIgnored(t *testing.T) {
	memories := newFakeMemoryStore()
	insights := newFakeInsightStore()
	partnership := &types.Partnership{ID: "p1", UserAID: "u1", UserBID: "u2", Status: types.PartnershipActive}

	completer := &llm.MockCompletion{Responses: []string{`{"outdated_titles": ["never existed"]}`}}
	job := NewRegenerationJob(completer, memories, insights, nil)
	result, err := job.Run(context.Background(), partnership, "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Deactivated != 0 {
		t.Errorf("deactivated %d, want 0", result.Deactivated)
	}
}

func TestRegenerationEmptyPoolsIsNoOp(t *testing.T) {
	memories := newFakeMemoryStore()
	insights := newFakeInsightStore()
	partnership := &types.Partnership{ID: "p1", UserAID: "u1", UserBID: "u2", Status: types.PartnershipActive}

	existing, _ := insights.Insert(context.Background(), &types.Insight{
		PartnershipID: "p1",
		Category:      types.InsightStrength,
		Title:         "Checks in daily",
		Content:       "They message each other every morning",
		Confidence:    0.7,
		IsActive:      true,
	})

	// If the job were to call out anyway, this response would fabricate an
	// insight with no memory behind it.
	completer := &llm.MockCompletion{Responses: []string{`{
		"outdated_titles": ["checks in daily"],
		"new_insights": [
			{"category": "appreciation", "about": "relationship", "title": "Invented", "content": "made up", "confidence": 0.9}
		]
	}`}}

	job := NewRegenerationJob(completer, memories, insights, nil)
	result, err := job.Run(context.Background(), partnership, "u1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Created != 0 || result.Deactivated != 0 {
		t.Fatalf("got created=%d deactivated=%d, want 0/0", result.Created, result.Deactivated)
	}
	if completer.CallCount() != 0 {
		t.Errorf("completion service called %d times with empty memory pools", completer.CallCount())
	}

	active, _ := insights.FetchActive(context.Background(), "p1")
	if len(active) != 1 || active[0].ID != existing.ID {
		t.Errorf("existing insight disturbed: %+v", active)
	}
}
