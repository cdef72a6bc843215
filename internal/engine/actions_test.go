package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/duetware/keepsake/pkg/types"
)

func seedPartnership(partnerships *fakePartnershipStore, id, a, b string) *types.Partnership {
	p := &types.Partnership{ID: id, UserAID: a, UserBID: b, Status: types.PartnershipActive}
	_ = partnerships.Upsert(context.Background(), p)
	return p
}

func TestActionConfirmBoostsAndReactivates(t *testing.T) {
	memories := newFakeMemoryStore()
	partnerships := newFakePartnershipStore()
	rec := memories.seed(&types.MemoryRecord{
		Scope:      types.PersonalScope("u1"),
		Category:   "preference",
		Content:    "loves sushi",
		Confidence: 0.25,
		IsActive:   false,
	})

	actions := NewUserActions(memories, partnerships, nil, nil, nil)
	result, err := actions.Apply(context.Background(), rec.ID, "u1", ActionConfirm)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !almostEqual(result.Confidence, 0.45) {
		t.Errorf("confidence = %v, want 0.45", result.Confidence)
	}
	if !result.IsActive {
		t.Error("confirm should reactivate the record")
	}

	stored, _ := memories.Get(context.Background(), rec.ID)
	if !stored.IsActive || !almostEqual(stored.Confidence, 0.45) {
		t.Errorf("stored record %v/%v", stored.Confidence, stored.IsActive)
	}
}

func TestActionConfirmClampsAtOne(t *testing.T) {
	memories := newFakeMemoryStore()
	rec := memories.seed(&types.MemoryRecord{
		Scope:      types.PersonalScope("u1"),
		Category:   "preference",
		Content:    "loves sushi",
		Confidence: 0.95,
		IsActive:   true,
	})

	actions := NewUserActions(memories, newFakePartnershipStore(), nil, nil, nil)
	result, err := actions.Apply(context.Background(), rec.ID, "u1", ActionConfirm)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !almostEqual(result.Confidence, 1.0) {
		t.Errorf("confidence = %v, want clamp at 1.0", result.Confidence)
	}
}

func TestActionWrongPenalizesAndDeactivates(t *testing.T) {
	memories := newFakeMemoryStore()
	rec := memories.seed(&types.MemoryRecord{
		Scope:      types.PersonalScope("u1"),
		Category:   "preference",
		Content:    "allergic to peanuts",
		Confidence: 0.5,
		IsActive:   true,
	})

	actions := NewUserActions(memories, newFakePartnershipStore(), nil, nil, nil)
	result, err := actions.Apply(context.Background(), rec.ID, "u1", ActionWrong)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !almostEqual(result.Confidence, 0.2) {
		t.Errorf("confidence = %v, want 0.2", result.Confidence)
	}
	if result.IsActive {
		t.Error("record below the floor should be deactivated")
	}
	if !result.Deactivated {
		t.Error("result should report the deactivation")
	}
}

func TestActionWrongAboveFloorStaysActive(t *testing.T) {
	memories := newFakeMemoryStore()
	rec := memories.seed(&types.MemoryRecord{
		Scope:      types.PersonalScope("u1"),
		Category:   "preference",
		Content:    "prefers window seats",
		Confidence: 0.9,
		IsActive:   true,
	})

	actions := NewUserActions(memories, newFakePartnershipStore(), nil, nil, nil)
	result, err := actions.Apply(context.Background(), rec.ID, "u1", ActionWrong)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !almostEqual(result.Confidence, 0.6) {
		t.Errorf("confidence = %v, want 0.6", result.Confidence)
	}
	if !result.IsActive {
		t.Error("record above the floor should stay active")
	}
}

func TestActionDeleteAlwaysDeactivates(t *testing.T) {
	memories := newFakeMemoryStore()
	rec := memories.seed(&types.MemoryRecord{
		Scope:      types.PersonalScope("u1"),
		Category:   "preference",
		Content:    "old phone number",
		Confidence: 1.0,
		IsActive:   true,
	})

	actions := NewUserActions(memories, newFakePartnershipStore(), nil, nil, nil)
	result, err := actions.Apply(context.Background(), rec.ID, "u1", ActionDelete)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.IsActive {
		t.Error("delete must deactivate regardless of confidence")
	}
	if !almostEqual(result.Confidence, 1.0) {
		t.Errorf("delete should not touch confidence, got %v", result.Confidence)
	}
}

func TestActionOwnershipValidation(t *testing.T) {
	memories := newFakeMemoryStore()
	partnerships := newFakePartnershipStore()
	seedPartnership(partnerships, "p1", "u1", "u2")

	personal := memories.seed(&types.MemoryRecord{
		Scope:      types.PersonalScope("u1"),
		Category:   "preference",
		Content:    "private fact",
		Confidence: 1.0,
		IsActive:   true,
	})
	shared := memories.seed(&types.MemoryRecord{
		Scope:      types.SharedScope("p1"),
		Category:   "preference",
		Content:    "shared fact",
		Confidence: 1.0,
		IsActive:   true,
	})

	actions := NewUserActions(memories, partnerships, nil, nil, nil)

	var vErr *ValidationError
	if _, err := actions.Apply(context.Background(), personal.ID, "u2", ActionConfirm); !errors.As(err, &vErr) || vErr.Kind != ValidationForbidden {
		t.Errorf("stranger on personal memory: got %v, want forbidden ValidationError", err)
	}
	if _, err := actions.Apply(context.Background(), shared.ID, "u3", ActionConfirm); !errors.As(err, &vErr) || vErr.Kind != ValidationForbidden {
		t.Errorf("non-member on shared memory: got %v, want forbidden ValidationError", err)
	}
	if _, err := actions.Apply(context.Background(), shared.ID, "u2", ActionConfirm); err != nil {
		t.Errorf("partnership member should be allowed: %v", err)
	}
	if _, err := actions.Apply(context.Background(), "missing-id", "u1", ActionConfirm); !errors.As(err, &vErr) || vErr.Kind != ValidationNotFound {
		t.Errorf("missing record: got %v, want not-found ValidationError", err)
	}
	if _, err := actions.Apply(context.Background(), personal.ID, "u1", Action("promote")); !errors.As(err, &vErr) || vErr.Kind != ValidationInvalid {
		t.Errorf("bad action: got %v, want invalid ValidationError", err)
	}
}
