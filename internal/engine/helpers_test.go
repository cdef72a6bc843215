package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/duetware/keepsake/internal/storage"
	"github.com/duetware/keepsake/pkg/types"
)

// In-memory store fakes. They honor the interface contracts the engine
// relies on: FetchActive ordering, ErrNotFound, UpdatedAt refresh.

type fakeMemoryStore struct {
	mu      sync.Mutex
	records map[string]*types.MemoryRecord
	seq     int
	now     func() time.Time
}

func newFakeMemoryStore() *fakeMemoryStore {
	return &fakeMemoryStore{records: make(map[string]*types.MemoryRecord), now: time.Now}
}

func (s *fakeMemoryStore) FetchActive(_ context.Context, scope types.Scope) ([]*types.MemoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.MemoryRecord
	for _, rec := range s.records {
		if rec.IsActive && rec.Scope == scope {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *fakeMemoryStore) Insert(_ context.Context, record *types.MemoryRecord) (*types.MemoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	cp := *record
	if cp.ID == "" {
		cp.ID = fmt.Sprintf("mem-%03d", s.seq)
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.now()
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = cp.CreatedAt
	}
	s.records[cp.ID] = &cp
	returned := cp
	return &returned, nil
}

func (s *fakeMemoryStore) Get(_ context.Context, id string) (*types.MemoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeMemoryStore) Update(_ context.Context, id string, upd storage.MemoryUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return storage.ErrNotFound
	}
	if upd.Confidence != nil {
		rec.Confidence = *upd.Confidence
	}
	if upd.IsActive != nil {
		rec.IsActive = *upd.IsActive
	}
	if upd.Content != nil {
		rec.Content = *upd.Content
	}
	if upd.Category != nil {
		rec.Category = *upd.Category
	}
	rec.UpdatedAt = s.now()
	return nil
}

func (s *fakeMemoryStore) ListUserIDsWithActiveMemories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	for _, rec := range s.records {
		if rec.IsActive && rec.Scope.Kind == types.ScopePersonal {
			seen[rec.Scope.ID] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *fakeMemoryStore) Close() error { return nil }

// seed inserts a record, honoring an explicit UpdatedAt for age-sensitive
// tests.
func (s *fakeMemoryStore) seed(rec *types.MemoryRecord) *types.MemoryRecord {
	stored, _ := s.Insert(context.Background(), rec)
	if !rec.UpdatedAt.IsZero() {
		s.mu.Lock()
		s.records[stored.ID].UpdatedAt = rec.UpdatedAt
		s.mu.Unlock()
		stored.UpdatedAt = rec.UpdatedAt
	}
	return stored
}

type fakeInsightStore struct {
	mu       sync.Mutex
	insights map[string]*types.Insight
	seq      int
}

func newFakeInsightStore() *fakeInsightStore {
	return &fakeInsightStore{insights: make(map[string]*types.Insight)}
}

func (s *fakeInsightStore) FetchActive(_ context.Context, partnershipID string) ([]*types.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Insight
	for _, ins := range s.insights {
		if ins.IsActive && ins.PartnershipID == partnershipID {
			cp := *ins
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeInsightStore) Insert(_ context.Context, insight *types.Insight) (*types.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	cp := *insight
	if cp.ID == "" {
		cp.ID = fmt.Sprintf("ins-%03d", s.seq)
	}
	s.insights[cp.ID] = &cp
	returned := cp
	return &returned, nil
}

func (s *fakeInsightStore) Update(_ context.Context, id string, upd storage.InsightUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ins, ok := s.insights[id]
	if !ok {
		return storage.ErrNotFound
	}
	if upd.Title != nil {
		ins.Title = *upd.Title
	}
	if upd.Content != nil {
		ins.Content = *upd.Content
	}
	if upd.Confidence != nil {
		ins.Confidence = *upd.Confidence
	}
	if upd.IsActive != nil {
		ins.IsActive = *upd.IsActive
	}
	return nil
}

func (s *fakeInsightStore) Close() error { return nil }

type fakeProfileStore struct {
	mu            sync.Mutex
	personalities map[string]*types.PersonalitySummary
	partners      map[string]*types.PartnerProfile
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{
		personalities: make(map[string]*types.PersonalitySummary),
		partners:      make(map[string]*types.PartnerProfile),
	}
}

func (s *fakeProfileStore) GetPersonality(_ context.Context, userID string) (*types.PersonalitySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if summary, ok := s.personalities[userID]; ok {
		cp := *summary
		return &cp, nil
	}
	return &types.PersonalitySummary{}, nil
}

func (s *fakeProfileStore) MergePersonality(_ context.Context, userID string, obs types.PersonalityObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary, ok := s.personalities[userID]
	if !ok {
		summary = &types.PersonalitySummary{}
		s.personalities[userID] = summary
	}
	summary.Merge(obs)
	return nil
}

func (s *fakeProfileStore) MergePartnerProfile(_ context.Context, userID, name string, observations []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.partners[userID]
	if !ok {
		profile = &types.PartnerProfile{UserID: userID}
		s.partners[userID] = profile
	}
	profile.Merge(name, observations)
	return nil
}

func (s *fakeProfileStore) Close() error { return nil }

type fakePartnershipStore struct {
	mu           sync.Mutex
	partnerships map[string]*types.Partnership
}

func newFakePartnershipStore() *fakePartnershipStore {
	return &fakePartnershipStore{partnerships: make(map[string]*types.Partnership)}
}

func (s *fakePartnershipStore) ActiveForUser(_ context.Context, userID string) (*types.Partnership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.partnerships {
		if p.Status == types.PartnershipActive && p.HasMember(userID) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *fakePartnershipStore) Get(_ context.Context, id string) (*types.Partnership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partnerships[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakePartnershipStore) ListActive(_ context.Context) ([]*types.Partnership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Partnership
	for _, p := range s.partnerships {
		if p.Status == types.PartnershipActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakePartnershipStore) Upsert(_ context.Context, p *types.Partnership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.partnerships[cp.ID] = &cp
	return nil
}

func (s *fakePartnershipStore) Close() error { return nil }

type fakeConversationStore struct {
	mu    sync.Mutex
	turns map[string][]*types.Turn
	seq   int
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{turns: make(map[string][]*types.Turn)}
}

func (s *fakeConversationStore) AppendTurn(_ context.Context, turn *types.Turn) (*types.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	cp := *turn
	if cp.ID == "" {
		cp.ID = fmt.Sprintf("turn-%03d", s.seq)
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.turns[cp.ConversationID] = append(s.turns[cp.ConversationID], &cp)
	returned := cp
	return &returned, nil
}

func (s *fakeConversationStore) RecentTurns(_ context.Context, conversationID string, n int) ([]*types.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.turns[conversationID]
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]*types.Turn, 0, len(turns))
	for _, t := range turns {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeConversationStore) CountUserTurns(_ context.Context, conversationID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, t := range s.turns[conversationID] {
		if t.Role == types.RoleUser {
			count++
		}
	}
	return count, nil
}

func (s *fakeConversationStore) Close() error { return nil }

// recordingSink captures published events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) byType(eventType string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func fakeBackends() (*storage.Backends, *fakeMemoryStore, *fakeInsightStore, *fakeProfileStore, *fakePartnershipStore, *fakeConversationStore) {
	memories := newFakeMemoryStore()
	insights := newFakeInsightStore()
	profiles := newFakeProfileStore()
	partnerships := newFakePartnershipStore()
	conversations := newFakeConversationStore()
	backends := &storage.Backends{
		Memories:      memories,
		Insights:      insights,
		Profiles:      profiles,
		Partnerships:  partnerships,
		Conversations: conversations,
	}
	return backends, memories, insights, profiles, partnerships, conversations
}

var _ storage.MemoryStore = (*fakeMemoryStore)(nil)
var _ storage.InsightStore = (*fakeInsightStore)(nil)
var _ storage.ProfileStore = (*fakeProfileStore)(nil)
var _ storage.PartnershipStore = (*fakePartnershipStore)(nil)
var _ storage.ConversationStore = (*fakeConversationStore)(nil)
