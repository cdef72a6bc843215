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

// InsightStore implements storage.InsightStore using SQLite.
type InsightStore struct {
	db *sql.DB
}

// FetchActive returns all active insights for a partnership in insertion order.
func (s *InsightStore) FetchActive(ctx context.Context, partnershipID string) ([]*types.Insight, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, partnership_id, category, about_user_id, title, content,
		       confidence, is_active, created_at, updated_at
		FROM insights
		WHERE partnership_id = ? AND is_active = 1
		ORDER BY created_at ASC, id ASC`, partnershipID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to fetch active insights: %w", err)
	}
	defer rows.Close()

	var insights []*types.Insight
	for rows.Next() {
		var (
			ins    types.Insight
			cat    string
			about  sql.NullString
			active int
		)
		if err := rows.Scan(&ins.ID, &ins.PartnershipID, &cat, &about,
			&ins.Title, &ins.Content, &ins.Confidence, &active,
			&ins.CreatedAt, &ins.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan insight: %w", err)
		}
		ins.Category = types.InsightCategory(cat)
		ins.IsActive = active != 0
		if about.Valid {
			ins.AboutUserID = &about.String
		}
		insights = append(insights, &ins)
	}
	return insights, rows.Err()
}

// Insert stores a new insight, generating a missing ID and timestamps.
func (s *InsightStore) Insert(ctx context.Context, insight *types.Insight) (*types.Insight, error) {
	if insight == nil {
		return nil, storage.ErrInvalidInput
	}
	if insight.PartnershipID == "" {
		return nil, fmt.Errorf("%w: insight partnership id is required", storage.ErrInvalidInput)
	}
	if strings.TrimSpace(insight.Title) == "" {
		return nil, fmt.Errorf("%w: insight title is required", storage.ErrInvalidInput)
	}

	if insight.ID == "" {
		insight.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if insight.CreatedAt.IsZero() {
		insight.CreatedAt = now
	}
	if insight.UpdatedAt.IsZero() {
		insight.UpdatedAt = insight.CreatedAt
	}

	var about sql.NullString
	if insight.AboutUserID != nil {
		about = sql.NullString{String: *insight.AboutUserID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO insights (id, partnership_id, category, about_user_id,
		                      title, content, confidence, is_active,
		                      created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		insight.ID, insight.PartnershipID, string(insight.Category), about,
		insight.Title, insight.Content, insight.Confidence,
		boolToInt(insight.IsActive), insight.CreatedAt, insight.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to insert insight: %w", err)
	}
	return insight, nil
}

// Update applies the non-nil fields of upd and refreshes updated_at.
func (s *InsightStore) Update(ctx context.Context, id string, upd storage.InsightUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}

	if upd.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *upd.Content)
	}
	if upd.Confidence != nil {
		sets = append(sets, "confidence = ?")
		args = append(args, *upd.Confidence)
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, boolToInt(*upd.IsActive))
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		"UPDATE insights SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("sqlite: failed to update insight: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to get rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close releases the underlying database handle.
func (s *InsightStore) Close() error {
	return s.db.Close()
}

// Compile-time assertion.
var _ storage.InsightStore = (*InsightStore)(nil)
