package handlers

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duetware/keepsake/internal/engine"
	"github.com/duetware/keepsake/internal/llm"
	"github.com/duetware/keepsake/internal/storage"
	"github.com/duetware/keepsake/internal/storage/sqlite"
)

// newTestService spins up a service over a throwaway SQLite database with a
// scripted completion mock. Extraction runs inline so tests can assert on
// its effects immediately.
func newTestService(t *testing.T, completer *llm.MockCompletion) (*engine.Service, *storage.Backends) {
	t.Helper()
	if completer == nil {
		completer = &llm.MockCompletion{}
	}

	dbPath := filepath.Join(t.TempDir(), "keepsake_test.db")
	backends, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backends.Close() })

	svc := engine.NewService(backends, completer, engine.ServiceOptions{SyncExtraction: true})
	return svc, backends
}
