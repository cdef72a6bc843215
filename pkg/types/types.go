// Package types defines the core data structures for the Keepsake memory
// system: memory records scoped to a user or a partnership, derived insights,
// personality profiles, and the closed category enums used to validate
// completion-service output.
package types

import "fmt"

// ScopeKind distinguishes the two memory record families.
type ScopeKind string

const (
	// ScopePersonal marks a record owned by a single user.
	ScopePersonal ScopeKind = "personal"

	// ScopeShared marks a record owned by a partnership.
	ScopeShared ScopeKind = "shared"
)

// Scope identifies the owning entity of a memory record.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   string    `json:"id"` // user id for personal, partnership id for shared
}

// PersonalScope returns a Scope owned by the given user.
func PersonalScope(userID string) Scope {
	return Scope{Kind: ScopePersonal, ID: userID}
}

// SharedScope returns a Scope owned by the given partnership.
func SharedScope(partnershipID string) Scope {
	return Scope{Kind: ScopeShared, ID: partnershipID}
}

// SubjectRef identifies which party a shared memory or insight concerns.
type SubjectRef string

const (
	// SubjectUser means the fact concerns the user whose conversation
	// produced it.
	SubjectUser SubjectRef = "user"

	// SubjectPartner means the fact concerns the user's partner.
	SubjectPartner SubjectRef = "partner"

	// SubjectRelationship means the fact concerns the relationship itself.
	// This is the default when no subject is given.
	SubjectRelationship SubjectRef = "relationship"
)

// ParseSubjectRef validates a subject reference from completion-service
// output. An empty string parses as SubjectRelationship.
func ParseSubjectRef(s string) (SubjectRef, error) {
	switch SubjectRef(s) {
	case SubjectUser, SubjectPartner, SubjectRelationship:
		return SubjectRef(s), nil
	case "":
		return SubjectRelationship, nil
	}
	return "", fmt.Errorf("unrecognized subject reference %q", s)
}

// PersonalCategory is the closed category enum for personal memories.
type PersonalCategory string

const (
	PersonalPreference    PersonalCategory = "preference"
	PersonalEmotionalNeed PersonalCategory = "emotional_need"
	PersonalImportantDate PersonalCategory = "important_date"
	PersonalGrowthMoment  PersonalCategory = "growth_moment"
	PersonalPattern       PersonalCategory = "pattern"
	PersonalGoal          PersonalCategory = "goal"
	PersonalGeneral       PersonalCategory = "general"
)

var personalCategories = map[PersonalCategory]bool{
	PersonalPreference:    true,
	PersonalEmotionalNeed: true,
	PersonalImportantDate: true,
	PersonalGrowthMoment:  true,
	PersonalPattern:       true,
	PersonalGoal:          true,
	PersonalGeneral:       true,
}

// ParsePersonalCategory validates a personal memory category.
func ParsePersonalCategory(s string) (PersonalCategory, error) {
	c := PersonalCategory(s)
	if !personalCategories[c] {
		return "", fmt.Errorf("unrecognized personal memory category %q", s)
	}
	return c, nil
}

// SharedCategory is the closed category enum for shared memories.
type SharedCategory string

const (
	SharedPreference    SharedCategory = "preference"
	SharedEmotionalNeed SharedCategory = "emotional_need"
	SharedImportantDate SharedCategory = "important_date"
	SharedGiftIdea      SharedCategory = "gift_idea"
	SharedGrowthMoment  SharedCategory = "growth_moment"
	SharedPattern       SharedCategory = "pattern"
	SharedGeneral       SharedCategory = "general"
)

var sharedCategories = map[SharedCategory]bool{
	SharedPreference:    true,
	SharedEmotionalNeed: true,
	SharedImportantDate: true,
	SharedGiftIdea:      true,
	SharedGrowthMoment:  true,
	SharedPattern:       true,
	SharedGeneral:       true,
}

// ParseSharedCategory validates a shared memory category.
func ParseSharedCategory(s string) (SharedCategory, error) {
	c := SharedCategory(s)
	if !sharedCategories[c] {
		return "", fmt.Errorf("unrecognized shared memory category %q", s)
	}
	return c, nil
}

// InsightCategory is the closed category enum for derived insights.
// It is distinct from the memory category enums.
type InsightCategory string

const (
	InsightEmotionalNeed InsightCategory = "emotional_need"
	InsightCommunication InsightCategory = "communication"
	InsightAppreciation  InsightCategory = "appreciation"
	InsightConflictStyle InsightCategory = "conflict_style"
	InsightGrowthArea    InsightCategory = "growth_area"
	InsightStrength      InsightCategory = "strength"
	InsightGiftRelevant  InsightCategory = "gift_relevant"
)

var insightCategories = map[InsightCategory]bool{
	InsightEmotionalNeed: true,
	InsightCommunication: true,
	InsightAppreciation:  true,
	InsightConflictStyle: true,
	InsightGrowthArea:    true,
	InsightStrength:      true,
	InsightGiftRelevant:  true,
}

// ParseInsightCategory validates an insight category.
func ParseInsightCategory(s string) (InsightCategory, error) {
	c := InsightCategory(s)
	if !insightCategories[c] {
		return "", fmt.Errorf("unrecognized insight category %q", s)
	}
	return c, nil
}
