package mutation

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Storage identifiers carried over from the browser client so that data
// written by either side lands under the same names.
const (
	QueueDatabase = "sq-offline-mutations"
	QueueStore    = "mutations"

	// SyncTag is the background-sync tag registered after every enqueue.
	SyncTag = "sync-mutations"

	CacheStore = "queries"

	// DefaultCacheKey is the persister slot for the primary query cache.
	DefaultCacheKey = "sq-react-query"

	// CacheTTL is how long a persisted snapshot stays restorable.
	CacheTTL = 24 * time.Hour
)

// Request is a write exactly as the caller would have sent it.
type Request struct {
	URL         string            `json:"url"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers"`
	Body        *string           `json:"body"`
	Description string            `json:"description"`
}

// QueuedMutation is a durably stored Request awaiting delivery.
type QueuedMutation struct {
	ID string `json:"id"`

	// Timestamp is the creation time in milliseconds since the Unix epoch.
	// Diagnostics only: replay order comes from the store, not from here.
	Timestamp int64 `json:"timestamp"`

	Request
}

// Created returns Timestamp as a time.Time.
func (m QueuedMutation) Created() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// Validate reports whether the record can be replayed as stored: an id, an
// absolute http(s) URL and a method that is a valid HTTP token.
func (m QueuedMutation) Validate() error {
	if m.ID == "" {
		return ErrMissingID
	}
	if m.URL == "" {
		return ErrMissingURL
	}
	if m.Method == "" {
		return ErrMissingMethod
	}
	u, err := url.Parse(m.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, m.URL)
	}
	if strings.IndexFunc(m.Method, func(r rune) bool { return !isTokenChar(r) }) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidMethod, m.Method)
	}
	return nil
}

// isTokenChar reports whether r may appear in an RFC 9110 token.
func isTokenChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("!#$%&'*+-.^_`|~", r)
}

// Snapshot is a serialized read-cache snapshot.
//
// Buster is a cache-format tag chosen by the caller; the persister stores it
// but does not interpret it.
type Snapshot struct {
	Timestamp   int64           `json:"timestamp"`
	Buster      string          `json:"buster"`
	ClientState json.RawMessage `json:"clientState"`
}

// Age returns how old the snapshot is relative to now.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(s.Timestamp))
}

// Expired reports whether the snapshot is older than CacheTTL.
// A snapshot exactly CacheTTL old is still fresh.
func (s Snapshot) Expired(now time.Time) bool {
	return s.Age(now) > CacheTTL
}

// StringPtr is a helper for building Request bodies.
func StringPtr(s string) *string {
	return &s
}
