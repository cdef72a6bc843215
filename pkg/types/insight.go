package types

import "time"

// Insight is a higher-order relationship observation derived from active
// memories by the regeneration job. Insights are never created directly from
// raw conversation.
type Insight struct {
	ID            string          `json:"id"`
	PartnershipID string          `json:"partnership_id"`
	Category      InsightCategory `json:"category"`

	// AboutUserID is the concrete user the insight concerns, resolved from
	// the model's subject reference. Nil means the relationship itself.
	AboutUserID *string `json:"about_user_id,omitempty"`

	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	IsActive   bool    `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
