package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/duetware/keepsake/internal/storage"
	"github.com/duetware/keepsake/pkg/types"
)

// ConversationStore implements storage.ConversationStore using SQLite.
type ConversationStore struct {
	db *sql.DB
}

// AppendTurn stores a turn, generating a missing ID and timestamp.
func (s *ConversationStore) AppendTurn(ctx context.Context, turn *types.Turn) (*types.Turn, error) {
	if turn == nil {
		return nil, storage.ErrInvalidInput
	}
	if turn.ConversationID == "" {
		return nil, fmt.Errorf("%w: conversation id is required", storage.ErrInvalidInput)
	}
	if strings.TrimSpace(turn.Content) == "" {
		return nil, fmt.Errorf("%w: turn content is required", storage.ErrInvalidInput)
	}

	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, conversation_id, user_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.ConversationID, turn.UserID, string(turn.Role),
		turn.Content, turn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to append turn: %w", err)
	}
	return turn, nil
}

// RecentTurns returns the last n turns of a conversation in chronological
// order.
func (s *ConversationStore) RecentTurns(ctx context.Context, conversationID string, n int) ([]*types.Turn, error) {
	if n <= 0 {
		return nil, nil
	}

	// Fetch newest-first with the limit, then reverse into chronological
	// order.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, user_id, role, content, created_at
		FROM turns WHERE conversation_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, conversationID, n)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to fetch recent turns: %w", err)
	}
	defer rows.Close()

	var turns []*types.Turn
	for rows.Next() {
		var (
			t    types.Turn
			role string
		)
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.UserID, &role,
			&t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan turn: %w", err)
		}
		t.Role = types.TurnRole(role)
		turns = append(turns, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// CountUserTurns returns the number of user-role turns in a conversation.
func (s *ConversationStore) CountUserTurns(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM turns
		WHERE conversation_id = ? AND role = ?`,
		conversationID, string(types.RoleUser)).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("sqlite: failed to count user turns: %w", err)
	}
	return count, nil
}

// Close releases the underlying database handle.
func (s *ConversationStore) Close() error {
	return s.db.Close()
}

// Compile-time assertion.
var _ storage.ConversationStore = (*ConversationStore)(nil)
