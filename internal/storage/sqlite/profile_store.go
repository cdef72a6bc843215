package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/duetware/keepsake/internal/storage"
	"github.com/duetware/keepsake/pkg/types"
)

// ProfileStore implements storage.ProfileStore using SQLite. Summaries and
// partner profiles are stored as JSON documents keyed by user id; merges are
// read-modify-write under the store's single-writer connection.
type ProfileStore struct {
	db *sql.DB
}

// GetPersonality returns the stored summary for userID, or an empty summary
// when none has been written yet.
func (s *ProfileStore) GetPersonality(ctx context.Context, userID string) (*types.PersonalitySummary, error) {
	var (
		doc       string
		updatedAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT summary, updated_at FROM personality_summaries WHERE user_id = ?",
		userID).Scan(&doc, &updatedAt)
	if err == sql.ErrNoRows {
		return &types.PersonalitySummary{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load personality summary: %w", err)
	}

	var summary types.PersonalitySummary
	if err := json.Unmarshal([]byte(doc), &summary); err != nil {
		return nil, fmt.Errorf("sqlite: corrupt personality summary for %s: %w", userID, err)
	}
	summary.UserID = userID
	summary.UpdatedAt = updatedAt
	return &summary, nil
}

// MergePersonality folds an observation into the stored summary, creating it
// on first write.
func (s *ProfileStore) MergePersonality(ctx context.Context, userID string, obs types.PersonalityObservation) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", storage.ErrInvalidInput)
	}

	summary, err := s.GetPersonality(ctx, userID)
	if err != nil {
		return err
	}
	summary.Merge(obs)
	summary.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal personality summary: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO personality_summaries (user_id, summary, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET summary = excluded.summary,
		                                   updated_at = excluded.updated_at`,
		userID, string(doc), summary.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to store personality summary: %w", err)
	}
	return nil
}

// MergePartnerProfile folds partner observations into the stored profile,
// creating it on first write.
func (s *ProfileStore) MergePartnerProfile(ctx context.Context, userID, name string, observations []string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", storage.ErrInvalidInput)
	}

	profile := &types.PartnerProfile{UserID: userID}
	var doc string
	err := s.db.QueryRowContext(ctx,
		"SELECT profile FROM partner_profiles WHERE user_id = ?", userID).Scan(&doc)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: failed to load partner profile: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal([]byte(doc), profile); err != nil {
			return fmt.Errorf("sqlite: corrupt partner profile for %s: %w", userID, err)
		}
		profile.UserID = userID
	}

	profile.Merge(name, observations)
	profile.UpdatedAt = time.Now().UTC()

	out, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal partner profile: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO partner_profiles (user_id, profile, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET profile = excluded.profile,
		                                   updated_at = excluded.updated_at`,
		userID, string(out), profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to store partner profile: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *ProfileStore) Close() error {
	return s.db.Close()
}

// Compile-time assertion.
var _ storage.ProfileStore = (*ProfileStore)(nil)
