package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/duetware/keepsake/internal/storage"
)

// openTestBackends opens a fresh database in a per-test temp directory.
func openTestBackends(t *testing.T) *storage.Backends {
	t.Helper()
	backends, err := Open(filepath.Join(t.TempDir(), "keepsake_test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = backends.Close() })
	return backends
}

func TestEmbeddingRoundTrip(t *testing.T) {
	original := []float32{0.1, -0.5, 3.25, 0}
	got := deserializeEmbedding(serializeEmbedding(original))
	if len(got) != len(original) {
		t.Fatalf("expected %d floats, got %d", len(original), len(got))
	}
	for i := range original {
		if got[i] != original[i] {
			t.Errorf("element %d = %v, want %v", i, got[i], original[i])
		}
	}
}

func TestEmbeddingEdgeCases(t *testing.T) {
	if serializeEmbedding(nil) != nil {
		t.Error("nil vector should serialize to nil")
	}
	if deserializeEmbedding(nil) != nil {
		t.Error("nil blob should deserialize to nil")
	}
	if deserializeEmbedding([]byte{1, 2, 3}) != nil {
		t.Error("blob with length not a multiple of 4 should deserialize to nil")
	}
}
