package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/duetware/keepsake/pkg/types"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDecayAgesRecordsPastGrace(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	memories := newFakeMemoryStore()
	memories.now = func() time.Time { return now }
	scope := types.PersonalScope("u1")

	rec := memories.seed(&types.MemoryRecord{
		Scope:      scope,
		Category:   "preference",
		Content:    "prefers quiet evenings at home",
		Confidence: 0.9,
		IsActive:   true,
		UpdatedAt:  now.Add(-37 * 24 * time.Hour),
	})

	job := NewDecayJob(memories, nil, func() time.Time { return now })
	result, err := job.Run(context.Background(), scope)
	if err != nil {
		t.Fatalf("decay run: %v", err)
	}
	if result.Decayed != 1 || result.Deactivated != 0 {
		t.Fatalf("got decayed=%d deactivated=%d, want 1/0", result.Decayed, result.Deactivated)
	}

	stored, err := memories.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// 37 days old, 7 days grace, 30 decayable days at 0.005/day.
	if !almostEqual(stored.Confidence, 0.75) {
		t.Errorf("confidence = %v, want 0.75", stored.Confidence)
	}
	if !stored.IsActive {
		t.Error("record should stay active above the floor")
	}
}

func TestDecayDeactivatesBelowFloor(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	memories := newFakeMemoryStore()
	memories.now = func() time.Time { return now }
	scope := types.PersonalScope("u1")

	rec := memories.seed(&types.MemoryRecord{
		Scope:      scope,
		Category:   "general",
		Content:    "used to take the 8am train",
		Confidence: 0.32,
		IsActive:   true,
		UpdatedAt:  now.Add(-67 * 24 * time.Hour),
	})

	job := NewDecayJob(memories, nil, func() time.Time { return now })
	result, err := job.Run(context.Background(), scope)
	if err != nil {
		t.Fatalf("decay run: %v", err)
	}
	if result.Decayed != 1 || result.Deactivated != 1 {
		t.Fatalf("got decayed=%d deactivated=%d, want 1/1", result.Decayed, result.Deactivated)
	}

	stored, _ := memories.Get(context.Background(), rec.ID)
	if !almostEqual(stored.Confidence, 0.02) {
		t.Errorf("confidence = %v, want 0.02", stored.Confidence)
	}
	if stored.IsActive {
		t.Error("record below the floor should be deactivated")
	}
}

func TestDecaySkipsRecordsWithinGrace(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	memories := newFakeMemoryStore()
	memories.now = func() time.Time { return now }
	scope := types.PersonalScope("u1")

	rec := memories.seed(&types.MemoryRecord{
		Scope:      scope,
		Category:   "goal",
		Content:    "training for a half marathon",
		Confidence: 0.8,
		IsActive:   true,
		UpdatedAt:  now.Add(-5 * 24 * time.Hour),
	})

	job := NewDecayJob(memories, nil, func() time.Time { return now })
	result, err := job.Run(context.Background(), scope)
	if err != nil {
		t.Fatalf("decay run: %v", err)
	}
	if result.Decayed != 0 {
		t.Fatalf("got decayed=%d, want 0", result.Decayed)
	}

	stored, _ := memories.Get(context.Background(), rec.ID)
	if !almostEqual(stored.Confidence, 0.8) {
		t.Errorf("confidence changed to %v", stored.Confidence)
	}
}

func TestDecayIsIdempotentAcrossImmediateRuns(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	memories := newFakeMemoryStore()
	memories.now = func() time.Time { return now }
	scope := types.PersonalScope("u1")

	rec := memories.seed(&types.MemoryRecord{
		Scope:      scope,
		Category:   "preference",
		Content:    "drinks oat milk lattes",
		Confidence: 0.9,
		IsActive:   true,
		UpdatedAt:  now.Add(-37 * 24 * time.Hour),
	})

	job := NewDecayJob(memories, nil, func() time.Time { return now })
	if _, err := job.Run(context.Background(), scope); err != nil {
		t.Fatalf("first run: %v", err)
	}
	afterFirst, _ := memories.Get(context.Background(), rec.ID)

	result, err := job.Run(context.Background(), scope)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.Decayed != 0 {
		t.Errorf("second immediate run decayed %d records, want 0", result.Decayed)
	}
	afterSecond, _ := memories.Get(context.Background(), rec.ID)
	if afterSecond.Confidence != afterFirst.Confidence {
		t.Errorf("confidence moved from %v to %v on an immediate rerun", afterFirst.Confidence, afterSecond.Confidence)
	}
}

func TestDecayIsMonotonicNonIncreasing(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	memories := newFakeMemoryStore()
	memories.now = func() time.Time { return now }
	scope := types.PersonalScope("u1")

	confidences := []float64{1.0, 0.55, 0.31, 0.05}
	var ids []string
	for _, c := range confidences {
		rec := memories.seed(&types.MemoryRecord{
			Scope:      scope,
			Category:   "general",
			Content:    "content",
			Confidence: c,
			IsActive:   true,
			UpdatedAt:  now.Add(-20 * 24 * time.Hour),
		})
		ids = append(ids, rec.ID)
	}

	job := NewDecayJob(memories, nil, func() time.Time { return now })
	if _, err := job.Run(context.Background(), scope); err != nil {
		t.Fatalf("run: %v", err)
	}
	for i, id := range ids {
		stored, _ := memories.Get(context.Background(), id)
		if stored.Confidence > confidences[i] {
			t.Errorf("record %s increased from %v to %v", id, confidences[i], stored.Confidence)
		}
		if stored.Confidence < 0 {
			t.Errorf("record %s went negative: %v", id, stored.Confidence)
		}
	}
}
