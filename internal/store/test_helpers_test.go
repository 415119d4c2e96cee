package store

import (
	"path/filepath"
	"testing"

	"github.com/RudyLabor/squadplanner-sub013/internal/mutation"
)

// createTestSQLite creates a new SQLite store in a temp dir.
func createTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBolt creates a new bbolt store in a temp dir.
func createTestBolt(t *testing.T) *Bolt {
	t.Helper()
	s, err := OpenBolt(filepath.Join(t.TempDir(), "test.bolt"))
	if err != nil {
		t.Fatalf("OpenBolt() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// backends returns one fresh instance of every Backend implementation.
func backends(t *testing.T) map[string]Backend {
	t.Helper()
	return map[string]Backend{
		"sqlite": createTestSQLite(t),
		"bolt":   createTestBolt(t),
		"memory": NewMemory(),
	}
}

// createTestMutation creates a record with minimal required fields.
func createTestMutation(id string, ts int64) mutation.QueuedMutation {
	return mutation.QueuedMutation{
		ID:        id,
		Timestamp: ts,
		Request: mutation.Request{
			URL:         "https://api.example.com/rsvp/" + id,
			Method:      "POST",
			Headers:     map[string]string{"Content-Type": "application/json"},
			Body:        mutation.StringPtr(`{"status":"present"}`),
			Description: "RSVP " + id,
		},
	}
}

func ids(ms []mutation.QueuedMutation) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}
