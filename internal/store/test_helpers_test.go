package store

import (
	"path/filepath"
	"strings"
	"testing"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCompilation creates a test compilation with minimal required fields.
func createTestCompilation(id, function string, seq int64) Compilation {
	return Compilation{
		ID:          id,
		Function:    function,
		Kind:        "tuple_call",
		Engine:      "interp",
		Fingerprint: "fp-" + id,
		IR:          "func " + function + "(ctx ptr) {}\n" + strings.Repeat("  ret\n", 8),
		Seq:         seq,
	}
}

// createTestInvocation creates a test invocation with minimal required fields.
func createTestInvocation(id, function, compilationID string, seq int64) Invocation {
	return Invocation{
		ID:            id,
		Function:      function,
		CompilationID: compilationID,
		Inputs:        map[string]string{"x": "1"},
		Outputs:       map[string]string{"y": "2"},
		Seq:           seq,
	}
}
