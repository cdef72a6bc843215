package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/duetware/keepsake/internal/storage"
	"github.com/duetware/keepsake/pkg/types"
)

// defaultSweepConcurrency bounds how many scopes a sweep works in parallel.
const defaultSweepConcurrency = 4

// SweepReport aggregates everything one maintenance sweep did. A failed
// scope is recorded and skipped; the sweep keeps going.
type SweepReport struct {
	UsersSwept          int           `json:"users_swept"`
	PartnershipsSwept   int           `json:"partnerships_swept"`
	Decayed             int           `json:"decayed"`
	Deactivated         int           `json:"deactivated"`
	InsightsCreated     int           `json:"insights_created"`
	InsightsDeactivated int           `json:"insights_deactivated"`
	Failures            int           `json:"failures"`
	Duration            time.Duration `json:"duration_ns"`
}

// Sweeper runs the periodic maintenance pass: confidence decay over every
// scope with active memories, then insight regeneration for every active
// partnership.
type Sweeper struct {
	memories     storage.MemoryStore
	partnerships storage.PartnershipStore
	decay        *DecayJob
	regen        *RegenerationJob
	locks        *scopeLocks
	events       EventSink
	concurrency  int
	now          func() time.Time
}

// NewSweeper wires a sweeper. concurrency <= 0 uses the default.
func NewSweeper(memories storage.MemoryStore, partnerships storage.PartnershipStore, decay *DecayJob, regen *RegenerationJob, locks *scopeLocks, events EventSink, concurrency int) *Sweeper {
	if events == nil {
		events = NullSink{}
	}
	if locks == nil {
		locks = newScopeLocks()
	}
	if concurrency <= 0 {
		concurrency = defaultSweepConcurrency
	}
	return &Sweeper{
		memories:     memories,
		partnerships: partnerships,
		decay:        decay,
		regen:        regen,
		locks:        locks,
		events:       events,
		concurrency:  concurrency,
		now:          time.Now,
	}
}

// Run executes one sweep. The returned error covers only the enumeration
// queries; per-scope failures are counted in the report and logged.
func (s *Sweeper) Run(ctx context.Context) (*SweepReport, error) {
	started := s.now()
	report := &SweepReport{}
	var mu sync.Mutex

	userIDs, err := s.memories.ListUserIDsWithActiveMemories(ctx)
	if err != nil {
		return nil, fmt.Errorf("sweep: listing users: %w", err)
	}
	partnerships, err := s.partnerships.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("sweep: listing partnerships: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			scope := types.PersonalScope(userID)
			unlock := s.locks.Lock(scopeLockKey(scope))
			result, err := s.decay.Run(gctx, scope)
			unlock()

			mu.Lock()
			defer mu.Unlock()
			report.UsersSwept++
			report.Decayed += result.Decayed
			report.Deactivated += result.Deactivated
			if err != nil {
				report.Failures++
				log.Printf("sweep: personal scope %s: %v", userID, err)
			}
			return nil
		})
	}

	for _, partnership := range partnerships {
		partnership := partnership
		g.Go(func() error {
			scope := types.SharedScope(partnership.ID)
			unlock := s.locks.Lock(scopeLockKey(scope))
			decayResult, decayErr := s.decay.Run(gctx, scope)
			regenResult, regenErr := s.regen.Run(gctx, partnership, "")
			unlock()

			mu.Lock()
			defer mu.Unlock()
			report.PartnershipsSwept++
			report.Decayed += decayResult.Decayed
			report.Deactivated += decayResult.Deactivated
			report.InsightsCreated += regenResult.Created
			report.InsightsDeactivated += regenResult.Deactivated
			if decayErr != nil {
				report.Failures++
				log.Printf("sweep: shared scope %s decay: %v", partnership.ID, decayErr)
			}
			if regenErr != nil {
				report.Failures++
				log.Printf("sweep: partnership %s regeneration: %v", partnership.ID, regenErr)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	report.Duration = s.now().Sub(started)
	s.events.Publish(Event{
		Type:   EventSweepCompleted,
		Detail: fmt.Sprintf("users=%d partnerships=%d decayed=%d failures=%d", report.UsersSwept, report.PartnershipsSwept, report.Decayed, report.Failures),
		At:     s.now(),
	})
	return report, nil
}
