package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/duetware/keepsake/internal/storage"
	"github.com/duetware/keepsake/pkg/types"
)

// PartnershipStore implements storage.PartnershipStore using SQLite.
type PartnershipStore struct {
	db *sql.DB
}

// ActiveForUser returns the active partnership containing userID.
func (s *PartnershipStore) ActiveForUser(ctx context.Context, userID string) (*types.Partnership, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_a_id, user_b_id, status, created_at, updated_at
		FROM partnerships
		WHERE (user_a_id = ? OR user_b_id = ?) AND status = ?
		ORDER BY created_at ASC LIMIT 1`,
		userID, userID, string(types.PartnershipActive))
	return scanPartnership(row)
}

// Get returns a partnership by ID.
func (s *PartnershipStore) Get(ctx context.Context, id string) (*types.Partnership, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_a_id, user_b_id, status, created_at, updated_at
		FROM partnerships WHERE id = ?`, id)
	return scanPartnership(row)
}

// ListActive returns all partnerships with active status.
func (s *PartnershipStore) ListActive(ctx context.Context) ([]*types.Partnership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_a_id, user_b_id, status, created_at, updated_at
		FROM partnerships WHERE status = ?
		ORDER BY created_at ASC`, string(types.PartnershipActive))
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list active partnerships: %w", err)
	}
	defer rows.Close()

	var result []*types.Partnership
	for rows.Next() {
		p, err := scanPartnership(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// Upsert stores a partnership link.
func (s *PartnershipStore) Upsert(ctx context.Context, p *types.Partnership) error {
	if p == nil {
		return storage.ErrInvalidInput
	}
	if p.UserAID == "" || p.UserBID == "" {
		return fmt.Errorf("%w: partnership requires both member ids", storage.ErrInvalidInput)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO partnerships (id, user_a_id, user_b_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status,
		                              updated_at = excluded.updated_at`,
		p.ID, p.UserAID, p.UserBID, string(p.Status), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to upsert partnership: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *PartnershipStore) Close() error {
	return s.db.Close()
}

func scanPartnership(row rowScanner) (*types.Partnership, error) {
	var (
		p      types.Partnership
		status string
	)
	err := row.Scan(&p.ID, &p.UserAID, &p.UserBID, &status, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to scan partnership: %w", err)
	}
	p.Status = types.PartnershipStatus(status)
	return &p, nil
}

// Compile-time assertion.
var _ storage.PartnershipStore = (*PartnershipStore)(nil)
