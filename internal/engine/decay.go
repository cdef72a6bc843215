package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/duetware/keepsake/internal/storage"
	"github.com/duetware/keepsake/pkg/types"
)

const (
	// decayGraceDays is how long a record is exempt from decay after its
	// last update.
	decayGraceDays = 7
	// decayRatePerDay is the confidence lost per day past the grace period.
	decayRatePerDay = 0.005
	// decayWriteEpsilon suppresses writes below measurable change.
	decayWriteEpsilon = 0.001
)

// DecayResult reports what a decay pass changed in one scope.
type DecayResult struct {
	Examined    int
	Decayed     int
	Deactivated int
}

// DecayJob ages active memories. Records untouched for longer than the
// grace period lose confidence proportionally to the days elapsed; records
// falling below the floor are deactivated. A successful write refreshes the
// record's updated_at, so an immediately repeated run changes nothing.
type DecayJob struct {
	memories storage.MemoryStore
	events   EventSink
	now      func() time.Time
}

// NewDecayJob wires a decay job. A nil now defaults to time.Now.
func NewDecayJob(memories storage.MemoryStore, events EventSink, now func() time.Time) *DecayJob {
	if events == nil {
		events = NullSink{}
	}
	if now == nil {
		now = time.Now
	}
	return &DecayJob{memories: memories, events: events, now: now}
}

// Run decays every active record in scope.
func (j *DecayJob) Run(ctx context.Context, scope types.Scope) (DecayResult, error) {
	records, err := j.memories.FetchActive(ctx, scope)
	if err != nil {
		return DecayResult{}, fmt.Errorf("decay: loading %s scope %s: %w", scope.Kind, scope.ID, err)
	}

	result := DecayResult{Examined: len(records)}
	now := j.now()
	for _, rec := range records {
		ageDays := int(now.Sub(rec.UpdatedAt).Hours() / 24)
		decayableDays := ageDays - decayGraceDays
		if decayableDays <= 0 {
			continue
		}
		confidence := types.ClampConfidence(rec.Confidence - float64(decayableDays)*decayRatePerDay)
		if rec.Confidence-confidence < decayWriteEpsilon {
			continue
		}

		update := storage.MemoryUpdate{Confidence: storage.Float64Ptr(confidence)}
		deactivate := types.BelowFloor(confidence)
		if deactivate {
			update.IsActive = storage.BoolPtr(false)
		}
		if err := j.memories.Update(ctx, rec.ID, update); err != nil {
			return result, fmt.Errorf("decay: updating record %s: %w", rec.ID, err)
		}

		result.Decayed++
		j.events.Publish(Event{
			Type:      EventMemoryUpdated,
			ScopeKind: scope.Kind,
			ScopeID:   scope.ID,
			RecordID:  rec.ID,
			Detail:    fmt.Sprintf("decayed to %.3f", confidence),
		})
		if deactivate {
			result.Deactivated++
			j.events.Publish(Event{
				Type:      EventMemoryDeactivated,
				ScopeKind: scope.Kind,
				ScopeID:   scope.ID,
				RecordID:  rec.ID,
			})
		}
	}
	return result, nil
}
