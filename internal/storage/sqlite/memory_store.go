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

// MemoryStore implements storage.MemoryStore using SQLite.
type MemoryStore struct {
	db *sql.DB
}

// FetchActive returns all active records for scope in insertion order.
func (s *MemoryStore) FetchActive(ctx context.Context, scope types.Scope) ([]*types.MemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scope_kind, scope_id, category, about_subject, content,
		       confidence, is_active, source_message_id, embedding,
		       created_at, updated_at
		FROM memories
		WHERE scope_kind = ? AND scope_id = ? AND is_active = 1
		ORDER BY created_at ASC, id ASC`,
		string(scope.Kind), scope.ID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to fetch active memories: %w", err)
	}
	defer rows.Close()

	var records []*types.MemoryRecord
	for rows.Next() {
		rec, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Insert stores a new memory record, generating a missing ID and timestamps.
func (s *MemoryStore) Insert(ctx context.Context, record *types.MemoryRecord) (*types.MemoryRecord, error) {
	if record == nil {
		return nil, storage.ErrInvalidInput
	}
	if strings.TrimSpace(record.Content) == "" {
		return nil, fmt.Errorf("%w: memory content is required", storage.ErrInvalidInput)
	}
	if record.Scope.ID == "" {
		return nil, fmt.Errorf("%w: memory scope id is required", storage.ErrInvalidInput)
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}

	var about sql.NullString
	if record.AboutSubject != nil {
		about = sql.NullString{String: string(*record.AboutSubject), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (id, scope_kind, scope_id, category, about_subject,
		                      content, confidence, is_active, source_message_id,
		                      embedding, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, string(record.Scope.Kind), record.Scope.ID, record.Category,
		about, record.Content, record.Confidence, boolToInt(record.IsActive),
		nullIfEmpty(record.SourceMessageID), serializeEmbedding(record.Embedding),
		record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to insert memory: %w", err)
	}
	return record, nil
}

// Get retrieves a record by ID regardless of active state.
func (s *MemoryStore) Get(ctx context.Context, id string) (*types.MemoryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scope_kind, scope_id, category, about_subject, content,
		       confidence, is_active, source_message_id, embedding,
		       created_at, updated_at
		FROM memories WHERE id = ?`, id)

	rec, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Update applies the non-nil fields of upd and refreshes updated_at.
func (s *MemoryStore) Update(ctx context.Context, id string, upd storage.MemoryUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}

	if upd.Confidence != nil {
		sets = append(sets, "confidence = ?")
		args = append(args, *upd.Confidence)
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, boolToInt(*upd.IsActive))
	}
	if upd.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *upd.Content)
	}
	if upd.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *upd.Category)
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		"UPDATE memories SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("sqlite: failed to update memory: %w", err)
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

// ListUserIDsWithActiveMemories returns the distinct owners of at least one
// active personal record.
func (s *MemoryStore) ListUserIDsWithActiveMemories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT scope_id FROM memories
		WHERE scope_kind = ? AND is_active = 1
		ORDER BY scope_id`, string(types.ScopePersonal))
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list users with active memories: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close releases the underlying database handle.
func (s *MemoryStore) Close() error {
	return s.db.Close()
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanMemory.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row rowScanner) (*types.MemoryRecord, error) {
	var (
		rec       types.MemoryRecord
		kind      string
		about     sql.NullString
		srcMsg    sql.NullString
		active    int
		embedding []byte
	)
	err := row.Scan(&rec.ID, &kind, &rec.Scope.ID, &rec.Category, &about,
		&rec.Content, &rec.Confidence, &active, &srcMsg, &embedding,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to scan memory: %w", err)
	}

	rec.Scope.Kind = types.ScopeKind(kind)
	rec.IsActive = active != 0
	if about.Valid {
		subject := types.SubjectRef(about.String)
		rec.AboutSubject = &subject
	}
	if srcMsg.Valid {
		rec.SourceMessageID = srcMsg.String
	}
	rec.Embedding = deserializeEmbedding(embedding)
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Compile-time assertion.
var _ storage.MemoryStore = (*MemoryStore)(nil)
