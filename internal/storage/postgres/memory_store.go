package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/duetware/keepsake/internal/storage"
	"github.com/duetware/keepsake/pkg/types"
)

// MemoryStore implements storage.MemoryStore using PostgreSQL. When the
// pgvector extension is available, content embeddings are stored alongside
// each row and returned on fetch for fuzzy conflict matching.
type MemoryStore struct {
	db                *sql.DB
	pgvectorAvailable bool
}

// FetchActive returns all active records for scope in insertion order.
func (s *MemoryStore) FetchActive(ctx context.Context, scope types.Scope) ([]*types.MemoryRecord, error) {
	query := `
		SELECT id, scope_kind, scope_id, category, about_subject, content,
		       confidence, is_active, source_message_id, ` + s.embeddingColumn() + `,
		       created_at, updated_at
		FROM memories
		WHERE scope_kind = $1 AND scope_id = $2 AND is_active = TRUE
		ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, string(scope.Kind), scope.ID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to fetch active memories: %w", err)
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

// embeddingColumn returns the embedding select expression, substituting NULL
// when the pgvector column does not exist.
func (s *MemoryStore) embeddingColumn() string {
	if s.pgvectorAvailable {
		return "embedding"
	}
	return "NULL"
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
	var srcMsg sql.NullString
	if record.SourceMessageID != "" {
		srcMsg = sql.NullString{String: record.SourceMessageID, Valid: true}
	}

	if s.pgvectorAvailable && len(record.Embedding) > 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO memories (id, scope_kind, scope_id, category, about_subject,
			                      content, confidence, is_active, source_message_id,
			                      embedding, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			record.ID, string(record.Scope.Kind), record.Scope.ID, record.Category,
			about, record.Content, record.Confidence, record.IsActive, srcMsg,
			pgvector.NewVector(record.Embedding), record.CreatedAt, record.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to insert memory: %w", err)
		}
		return record, nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (id, scope_kind, scope_id, category, about_subject,
		                      content, confidence, is_active, source_message_id,
		                      created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID, string(record.Scope.Kind), record.Scope.ID, record.Category,
		about, record.Content, record.Confidence, record.IsActive, srcMsg,
		record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to insert memory: %w", err)
	}
	return record, nil
}

// Get retrieves a record by ID regardless of active state.
func (s *MemoryStore) Get(ctx context.Context, id string) (*types.MemoryRecord, error) {
	query := `
		SELECT id, scope_kind, scope_id, category, about_subject, content,
		       confidence, is_active, source_message_id, ` + s.embeddingColumn() + `,
		       created_at, updated_at
		FROM memories WHERE id = $1`

	rec, err := scanMemory(s.db.QueryRowContext(ctx, query, id))
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
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if upd.Confidence != nil {
		sets = append(sets, "confidence = "+arg(*upd.Confidence))
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active = "+arg(*upd.IsActive))
	}
	if upd.Content != nil {
		sets = append(sets, "content = "+arg(*upd.Content))
	}
	if upd.Category != nil {
		sets = append(sets, "category = "+arg(*upd.Category))
	}

	query := "UPDATE memories SET " + strings.Join(sets, ", ") + " WHERE id = " + arg(id)
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: failed to update memory: %w", err)
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

// ListUserIDsWithActiveMemories returns the distinct owners of at least one
// active personal record.
func (s *MemoryStore) ListUserIDsWithActiveMemories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT scope_id FROM memories
		WHERE scope_kind = $1 AND is_active = TRUE
		ORDER BY scope_id`, string(types.ScopePersonal))
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list users with active memories: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close releases the underlying connection pool.
func (s *MemoryStore) Close() error {
	return s.db.Close()
}

// rowScanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// nullVector scans a nullable pgvector column. pgvector.Vector itself
// rejects NULL.
type nullVector struct {
	vec   pgvector.Vector
	valid bool
}

func (n *nullVector) Scan(src interface{}) error {
	if src == nil {
		n.valid = false
		return nil
	}
	n.valid = true
	return n.vec.Scan(src)
}

func scanMemory(row rowScanner) (*types.MemoryRecord, error) {
	var (
		rec       types.MemoryRecord
		kind      string
		about     sql.NullString
		srcMsg    sql.NullString
		embedding nullVector
	)
	err := row.Scan(&rec.ID, &kind, &rec.Scope.ID, &rec.Category, &about,
		&rec.Content, &rec.Confidence, &rec.IsActive, &srcMsg, &embedding,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to scan memory: %w", err)
	}

	rec.Scope.Kind = types.ScopeKind(kind)
	if about.Valid {
		subject := types.SubjectRef(about.String)
		rec.AboutSubject = &subject
	}
	if srcMsg.Valid {
		rec.SourceMessageID = srcMsg.String
	}
	if embedding.valid {
		if slice := embedding.vec.Slice(); len(slice) > 0 {
			rec.Embedding = slice
		}
	}
	return &rec, nil
}

// Compile-time assertion.
var _ storage.MemoryStore = (*MemoryStore)(nil)
