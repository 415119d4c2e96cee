package cli

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRequiresProbeURL(t *testing.T) {
	_, err := execute(t, "watch", "--db", tempDB(t), "--duration", "10ms")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no probe URL")
}

func TestWatchReplaysWhenOnline(t *testing.T) {
	var delivered atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		delivered.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	db := tempDB(t)
	queueURLs(t, db, srv.URL+"/a", srv.URL+"/b")

	out, err := execute(t, "watch", "--db", db, "--format", "json",
		"--probe-url", srv.URL+"/health",
		"--interval", "20ms",
		"--timeout", "1s",
		"--duration", "500ms")
	require.NoError(t, err)

	result := decodeData[WatchResult](t, out)
	assert.GreaterOrEqual(t, result.Passes, int64(1))
	assert.Equal(t, int64(2), result.Delivered)
	assert.Equal(t, 0, result.Pending)
	assert.Equal(t, int32(2), delivered.Load(), "each mutation is sent once")
}

func TestWatchStaysQuietWhileOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := srv.URL
	srv.Close()

	db := tempDB(t)
	queueURLs(t, db, deadURL+"/a")

	out, err := execute(t, "watch", "--db", db,
		"--probe-url", deadURL+"/health",
		"--interval", "20ms",
		"--timeout", "100ms",
		"--duration", "200ms")
	require.NoError(t, err)
	assert.Contains(t, out, "Stopped: 0 pass(es), delivered 0, 1 pending")
}
