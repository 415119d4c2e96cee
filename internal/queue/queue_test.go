package queue

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RudyLabor/squadplanner-sub013/internal/mutation"
	"github.com/RudyLabor/squadplanner-sub013/internal/store"
	"github.com/RudyLabor/squadplanner-sub013/internal/testutil"
	"github.com/RudyLabor/squadplanner-sub013/internal/trigger"
)

func rsvpRequest() mutation.Request {
	return mutation.Request{
		URL:         "https://api.example.com/rsvp",
		Method:      "POST",
		Headers:     map[string]string{"Content-Type": "application/json"},
		Body:        mutation.StringPtr(`{"status":"present"}`),
		Description: "RSVP to session",
	}
}

func blockedOpener() *store.Opener {
	return store.NewOpener(func(context.Context) (store.Backend, error) {
		return nil, errors.New("not supported")
	})
}

type recordingRegistration struct {
	mu   sync.Mutex
	tags []string
	err  error
}

func (r *recordingRegistration) Register(_ context.Context, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags = append(r.tags, tag)
	return r.err
}

type capability struct{ reg trigger.Registration }

func (c capability) Lookup(context.Context) trigger.Availability {
	return trigger.Available(c.reg)
}

func TestEnqueue_StoresWithGeneratedIDAndTimestamp(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemory()
	q := New(store.Static(backend),
		WithIDGenerator(mutation.NewFixedIDGenerator("test-uuid-123")),
		WithClock(testutil.NewClockAtMillis(1_700_000_000_000).Now),
	)

	res := q.Enqueue(ctx, rsvpRequest())
	require.True(t, res.OK())
	assert.Equal(t, "test-uuid-123", res.Value.ID)
	assert.Equal(t, int64(1_700_000_000_000), res.Value.Timestamp)

	stored, err := backend.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, res.Value, stored[0])
	assert.Equal(t, "RSVP to session", stored[0].Description)
}

func TestEnqueue_DefaultIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	q := New(store.Static(store.NewMemory()))

	a := q.Enqueue(ctx, rsvpRequest())
	b := q.Enqueue(ctx, rsvpRequest())
	require.True(t, a.OK())
	require.True(t, b.OK())
	assert.NotEqual(t, a.Value.ID, b.Value.ID)
}

func TestEnqueue_RequestsBackgroundSync(t *testing.T) {
	reg := &recordingRegistration{}
	q := New(store.Static(store.NewMemory()), WithSyncCapability(capability{reg}))

	require.True(t, q.Enqueue(context.Background(), rsvpRequest()).OK())
	assert.Equal(t, []string{"sync-mutations"}, reg.tags)
}

func TestEnqueue_SyncFailureSwallowed(t *testing.T) {
	reg := &recordingRegistration{err: errors.New("permission denied")}
	q := New(store.Static(store.NewMemory()), WithSyncCapability(capability{reg}))

	res := q.Enqueue(context.Background(), rsvpRequest())
	assert.True(t, res.OK())
	assert.Len(t, reg.tags, 1)
}

func TestEnqueue_NoSyncWhenNotStored(t *testing.T) {
	reg := &recordingRegistration{}
	q := New(blockedOpener(), WithSyncCapability(capability{reg}))

	res := q.Enqueue(context.Background(), rsvpRequest())
	assert.True(t, res.Degraded())
	assert.Empty(t, reg.tags)
}

func TestUnavailableStorageIsSilent(t *testing.T) {
	ctx := context.Background()
	q := New(blockedOpener())

	var (
		enq     Result[mutation.QueuedMutation]
		pending Result[[]mutation.QueuedMutation]
		cleared Result[struct{}]
	)
	require.NotPanics(t, func() {
		enq = q.Enqueue(ctx, rsvpRequest())
		pending = q.Pending(ctx)
		cleared = q.Clear(ctx)
	})

	assert.True(t, enq.Degraded())
	assert.True(t, IsStorageUnavailable(enq.Err))
	assert.Equal(t, mutation.QueuedMutation{}, enq.Value)

	assert.True(t, pending.Degraded())
	assert.NotNil(t, pending.Value)
	assert.Empty(t, pending.Value)

	assert.True(t, cleared.Degraded())
	assert.True(t, IsStorageUnavailable(cleared.Err))

	err := q.Delete(ctx, "anything")
	assert.True(t, IsStorageUnavailable(err))
}

func TestStorageFailureAfterOpen(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemory()
	q := New(store.Static(backend))
	require.NoError(t, backend.Close())

	enq := q.Enqueue(ctx, rsvpRequest())
	var se *StorageError
	require.ErrorAs(t, enq.Err, &se)
	assert.Equal(t, ErrCodeWrite, se.Code)
	assert.ErrorIs(t, enq.Err, store.ErrClosed)

	pending := q.Pending(ctx)
	require.ErrorAs(t, pending.Err, &se)
	assert.Equal(t, ErrCodeRead, se.Code)
	assert.Empty(t, pending.Value)
}

func TestEnqueue_RejectsUnreplayableRequest(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemory()
	q := New(store.Static(backend))

	res := q.Enqueue(ctx, mutation.Request{Method: "POST"})
	var se *StorageError
	require.ErrorAs(t, res.Err, &se)
	assert.Equal(t, ErrCodeInvalid, se.Code)
	assert.ErrorIs(t, res.Err, mutation.ErrMissingURL)

	stored, err := backend.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestEnqueue_RejectsRelativeURLWithoutBase(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemory()
	q := New(store.Static(backend))

	res := q.Enqueue(ctx, mutation.Request{URL: "/api/rsvp", Method: "POST"})
	require.True(t, res.Degraded())
	assert.True(t, IsInvalidRequest(res.Err))
	assert.False(t, IsStorageUnavailable(res.Err))
	assert.ErrorIs(t, res.Err, mutation.ErrInvalidURL)

	stored, err := backend.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored, "an unsendable record must not block the queue")
}

func TestEnqueue_ResolvesRelativeURLAgainstBase(t *testing.T) {
	ctx := context.Background()
	base, err := url.Parse("https://api.example.com/v1/")
	require.NoError(t, err)
	q := New(store.Static(store.NewMemory()), WithBaseURL(base))

	tests := []struct {
		in, want string
	}{
		{"/api/rsvp", "https://api.example.com/api/rsvp"},
		{"sessions/7", "https://api.example.com/v1/sessions/7"},
		{"https://other.example.com/x", "https://other.example.com/x"},
	}
	for _, tt := range tests {
		res := q.Enqueue(ctx, mutation.Request{URL: tt.in, Method: "POST"})
		require.True(t, res.OK(), tt.in)
		assert.Equal(t, tt.want, res.Value.URL)
	}

	res := q.Enqueue(ctx, mutation.Request{Method: "POST"})
	assert.ErrorIs(t, res.Err, mutation.ErrMissingURL, "an empty URL is not the base URL")
}

func TestEnqueue_RejectsInvalidMethod(t *testing.T) {
	q := New(store.Static(store.NewMemory()))
	res := q.Enqueue(context.Background(), mutation.Request{URL: "https://api.example.com/a", Method: "NOT A METHOD"})
	assert.True(t, IsInvalidRequest(res.Err))
	assert.ErrorIs(t, res.Err, mutation.ErrInvalidMethod)
}

func TestEnqueue_LockedBoltFileDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.bolt")
	holder, err := store.OpenBolt(path)
	require.NoError(t, err)
	defer holder.Close()

	q := New(store.DSNOpener("bolt://" + path))
	res := q.Enqueue(context.Background(), rsvpRequest())
	require.True(t, res.Degraded())
	assert.True(t, IsStorageUnavailable(res.Err))
}

func TestPending_FIFO(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewClockAtMillis(1_000)
	q := New(store.Static(store.NewMemory()),
		WithIDGenerator(mutation.NewFixedIDGenerator("a", "b", "c")),
		WithClock(clock.Now),
	)

	for i := 0; i < 3; i++ {
		require.True(t, q.Enqueue(ctx, rsvpRequest()).OK())
	}

	pending := q.Pending(ctx)
	require.True(t, pending.OK())
	require.Len(t, pending.Value, 3)
	assert.Equal(t, "a", pending.Value[0].ID)
	assert.Equal(t, "b", pending.Value[1].ID)
	assert.Equal(t, "c", pending.Value[2].ID)
}

func TestClearAndDelete(t *testing.T) {
	ctx := context.Background()
	q := New(store.Static(store.NewMemory()),
		WithIDGenerator(mutation.NewFixedIDGenerator("a", "b", "c")),
	)
	for i := 0; i < 3; i++ {
		require.True(t, q.Enqueue(ctx, rsvpRequest()).OK())
	}

	require.NoError(t, q.Delete(ctx, "b"))
	pending := q.Pending(ctx)
	require.Len(t, pending.Value, 2)
	assert.Equal(t, "a", pending.Value[0].ID)
	assert.Equal(t, "c", pending.Value[1].ID)

	require.True(t, q.Clear(ctx).OK())
	assert.Empty(t, q.Pending(ctx).Value)
}

func TestEnqueue_ConcurrentSQLite(t *testing.T) {
	ctx := context.Background()
	backend, err := store.OpenSQLite(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	q := New(store.Static(backend))

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, q.Enqueue(ctx, rsvpRequest()).OK())
		}()
	}
	wg.Wait()

	assert.Len(t, q.Pending(ctx).Value, writers)
}
