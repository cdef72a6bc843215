package types

import "time"

// Confidence bounds and thresholds shared across the engine and stores.
const (
	// ConfidenceFloor is the threshold below which a record is
	// automatically deactivated.
	ConfidenceFloor = 0.3

	// DefaultConfidence is assigned to extracted memories that carry no
	// explicit confidence.
	DefaultConfidence = 1.0
)

// MemoryRecord is a single durable fact distilled from conversation.
// Personal records are scoped to one user; shared records to one partnership.
type MemoryRecord struct {
	ID    string `json:"id"`
	Scope Scope  `json:"scope"`

	// Category holds a PersonalCategory or SharedCategory value depending
	// on Scope.Kind. Stored as a string because the two enums overlap.
	Category string `json:"category"`

	// AboutSubject is set on shared records only. Nil means the fact
	// concerns the relationship itself.
	AboutSubject *SubjectRef `json:"about_subject,omitempty"`

	// Content is the one-sentence natural-language fact.
	Content string `json:"content"`

	// Confidence is the belief strength, always clamped to [0, 1].
	Confidence float64 `json:"confidence"`

	// IsActive is false when the record is soft-deleted. Records are never
	// hard-deleted by automated processes.
	IsActive bool `json:"is_active"`

	// SourceMessageID is an optional provenance pointer to the turn the
	// fact was extracted from.
	SourceMessageID string `json:"source_message_id,omitempty"`

	// Embedding is an optional content embedding, populated only when an
	// embedding generator is configured. Used for fuzzy conflict matching.
	Embedding []float32 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClampConfidence bounds a confidence value to [0, 1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// BelowFloor reports whether a confidence value is under the deactivation
// threshold.
func BelowFloor(c float64) bool {
	return c < ConfidenceFloor
}
