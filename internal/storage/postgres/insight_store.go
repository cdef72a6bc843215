package postgres

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

// InsightStore implements storage.InsightStore using PostgreSQL.
type InsightStore struct {
	db *sql.DB
}

// FetchActive returns all active insights for a partnership in insertion order.
func (s *InsightStore) FetchActive(ctx context.Context, partnershipID string) ([]*types.Insight, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, partnership_id, category, about_user_id, title, content,
		       confidence, is_active, created_at, updated_at
		FROM insights
		WHERE partnership_id = $1 AND is_active = TRUE
		ORDER BY created_at ASC, id ASC`, partnershipID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to fetch active insights: %w", err)
	}
	defer rows.Close()

	var insights []*types.Insight
	for rows.Next() {
		var (
			ins   types.Insight
			cat   string
			about sql.NullString
		)
		if err := rows.Scan(&ins.ID, &ins.PartnershipID, &cat, &about,
			&ins.Title, &ins.Content, &ins.Confidence, &ins.IsActive,
			&ins.CreatedAt, &ins.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan insight: %w", err)
		}
		ins.Category = types.InsightCategory(cat)
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		insight.ID, insight.PartnershipID, string(insight.Category), about,
		insight.Title, insight.Content, insight.Confidence, insight.IsActive,
		insight.CreatedAt, insight.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to insert insight: %w", err)
	}
	return insight, nil
}

// Update applies the non-nil fields of upd and refreshes updated_at.
func (s *InsightStore) Update(ctx context.Context, id string, upd storage.InsightUpdate) error {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if upd.Title != nil {
		sets = append(sets, "title = "+arg(*upd.Title))
	}
	if upd.Content != nil {
		sets = append(sets, "content = "+arg(*upd.Content))
	}
	if upd.Confidence != nil {
		sets = append(sets, "confidence = "+arg(*upd.Confidence))
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active = "+arg(*upd.IsActive))
	}

	query := "UPDATE insights SET " + strings.Join(sets, ", ") + " WHERE id = " + arg(id)
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: failed to update insight: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to get rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *InsightStore) Close() error {
	return s.db.Close()
}

// Compile-time assertion.
var _ storage.InsightStore = (*InsightStore)(nil)
