package types

import "time"

// TurnRole identifies the author of a conversation turn.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// Turn is a single message in a conversation. The chat transport itself is an
// external collaborator; the memory subsystem only reads turns back for
// extraction context.
type Turn struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Role           TurnRole  `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
