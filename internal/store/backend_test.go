package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RudyLabor/squadplanner-sub013/internal/mutation"
)

func TestBackends_ListAllEmpty(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := b.ListAll(ctx)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestBackends_FIFOIgnoresTimestamp(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			// Timestamps deliberately run backwards; order must follow insertion.
			require.NoError(t, b.Add(ctx, createTestMutation("c", 300)))
			require.NoError(t, b.Add(ctx, createTestMutation("a", 200)))
			require.NoError(t, b.Add(ctx, createTestMutation("b", 100)))

			got, err := b.ListAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"c", "a", "b"}, ids(got))
		})
	}
}

func TestBackends_RoundTripsRecord(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			withBody := createTestMutation("m1", 1_700_000_000_000)
			noBody := createTestMutation("m2", 1_700_000_000_001)
			noBody.Body = nil
			noBody.Headers = nil

			require.NoError(t, b.Add(ctx, withBody))
			require.NoError(t, b.Add(ctx, noBody))

			got, err := b.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, got, 2)

			assert.Equal(t, withBody, got[0])
			assert.Nil(t, got[1].Body)
			if name != "memory" {
				// Durable backends normalise missing headers to an empty map.
				assert.Equal(t, map[string]string{}, got[1].Headers)
			}
		})
	}
}

func TestBackends_DuplicateIDRejected(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Add(ctx, createTestMutation("dup", 1)))
			err := b.Add(ctx, createTestMutation("dup", 2))
			assert.ErrorIs(t, err, ErrDuplicateID)

			got, err := b.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, int64(1), got[0].Timestamp)
		})
	}
}

func TestBackends_DeleteByID(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i, id := range []string{"a", "b", "c"} {
				require.NoError(t, b.Add(ctx, createTestMutation(id, int64(i))))
			}

			require.NoError(t, b.DeleteByID(ctx, "b"))
			require.NoError(t, b.DeleteByID(ctx, "missing"))

			got, err := b.ListAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "c"}, ids(got))

			// Deleted ids may be reused and go to the back of the queue.
			require.NoError(t, b.Add(ctx, createTestMutation("b", 9)))
			got, err = b.ListAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "c", "b"}, ids(got))
		})
	}
}

func TestBackends_ClearAllKeepsSnapshots(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Add(ctx, createTestMutation("a", 1)))
			require.NoError(t, b.Add(ctx, createTestMutation("b", 2)))
			require.NoError(t, b.PutSnapshot(ctx, "k", mutation.Snapshot{Timestamp: 1, Buster: "v1", ClientState: json.RawMessage(`{}`)}))

			require.NoError(t, b.ClearAll(ctx))

			got, err := b.ListAll(ctx)
			require.NoError(t, err)
			assert.Empty(t, got)

			_, found, err := b.GetSnapshot(ctx, "k")
			require.NoError(t, err)
			assert.True(t, found)

			// Store remains usable after clearing.
			require.NoError(t, b.Add(ctx, createTestMutation("c", 3)))
			got, err = b.ListAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"c"}, ids(got))
		})
	}
}

func TestBackends_Snapshots(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, found, err := b.GetSnapshot(ctx, "sq-react-query")
			require.NoError(t, err)
			assert.False(t, found)

			first := mutation.Snapshot{Timestamp: 1000, Buster: "v1", ClientState: json.RawMessage(`{"a":1}`)}
			second := mutation.Snapshot{Timestamp: 2000, Buster: "v2", ClientState: json.RawMessage(`{"b":2}`)}
			other := mutation.Snapshot{Timestamp: 3000, Buster: "v1", ClientState: json.RawMessage(`{"c":3}`)}

			require.NoError(t, b.PutSnapshot(ctx, "sq-react-query", first))
			require.NoError(t, b.PutSnapshot(ctx, "sq-react-query", second))
			require.NoError(t, b.PutSnapshot(ctx, "custom-key", other))

			got, found, err := b.GetSnapshot(ctx, "sq-react-query")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, second.Timestamp, got.Timestamp)
			assert.Equal(t, second.Buster, got.Buster)
			assert.JSONEq(t, string(second.ClientState), string(got.ClientState))

			got, found, err = b.GetSnapshot(ctx, "custom-key")
			require.NoError(t, err)
			require.True(t, found)
			assert.JSONEq(t, `{"c":3}`, string(got.ClientState))

			require.NoError(t, b.DeleteSnapshot(ctx, "sq-react-query"))
			require.NoError(t, b.DeleteSnapshot(ctx, "sq-react-query"))
			_, found, err = b.GetSnapshot(ctx, "sq-react-query")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestMemory_ClosedFails(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Close())

	assert.ErrorIs(t, m.Add(ctx, createTestMutation("a", 1)), ErrClosed)
	_, err := m.ListAll(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.ClearAll(ctx), ErrClosed)
}

func TestMemory_CopiesRecords(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	rec := createTestMutation("a", 1)
	require.NoError(t, m.Add(ctx, rec))

	rec.Headers["X-Mutated"] = "yes"
	*rec.Body = "changed"

	got, err := m.ListAll(ctx)
	require.NoError(t, err)
	assert.NotContains(t, got[0].Headers, "X-Mutated")
	assert.Equal(t, `{"status":"present"}`, *got[0].Body)
}
