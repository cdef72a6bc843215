// Package sqlite provides SQLite implementations of the storage interfaces.
// It is the default engine and the one exercised by the test suite.
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/duetware/keepsake/internal/storage"
)

// Open opens (or creates) a SQLite database at dsn, applies the schema, and
// returns the full set of store backends sharing one connection.
func Open(dsn string) (*storage.Backends, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY under concurrent load; WAL
	// mode lets readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to apply schema: %w", err)
	}

	return &storage.Backends{
		Memories:      &MemoryStore{db: db},
		Insights:      &InsightStore{db: db},
		Profiles:      &ProfileStore{db: db},
		Partnerships:  &PartnershipStore{db: db},
		Conversations: &ConversationStore{db: db},
	}, nil
}

// serializeEmbedding encodes a float32 vector as little-endian bytes for the
// BLOB column. Returns nil for an empty vector.
func serializeEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeEmbedding decodes a little-endian float32 vector from the BLOB
// column. Returns nil for empty or malformed input.
func deserializeEmbedding(buf []byte) []float32 {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
