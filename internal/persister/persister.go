// Package persister saves and restores a serialized read-cache snapshot so a
// client can start with warm data after a restart, including while offline.
//
// All operations swallow storage failures: a missing cache is always an
// acceptable outcome, so callers get "absent" rather than an error.
package persister

import (
	"context"
	"log/slog"
	"time"

	"github.com/RudyLabor/squadplanner-sub013/internal/mutation"
	"github.com/RudyLabor/squadplanner-sub013/internal/store"
)

// Persister stores one snapshot under a fixed key.
type Persister struct {
	opener *store.Opener
	key    string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Persister.
type Option func(*Persister)

// WithKey sets the storage slot. Defaults to mutation.DefaultCacheKey.
func WithKey(key string) Option {
	return func(p *Persister) { p.key = key }
}

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(p *Persister) { p.now = now }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Persister) { p.logger = l }
}

// New creates a persister over the backend produced by opener.
func New(opener *store.Opener, opts ...Option) *Persister {
	p := &Persister{
		opener: opener,
		key:    mutation.DefaultCacheKey,
		ttl:    mutation.CacheTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Key returns the slot this persister reads and writes.
func (p *Persister) Key() string {
	return p.key
}

// PersistClient overwrites the stored snapshot.
func (p *Persister) PersistClient(ctx context.Context, snap mutation.Snapshot) {
	backend, err := p.opener.Backend(ctx)
	if err != nil {
		p.logger.Debug("query cache unavailable, snapshot not persisted", "key", p.key, "error", err)
		return
	}
	if err := backend.PutSnapshot(ctx, p.key, snap); err != nil {
		p.logger.Warn("failed to persist query cache", "key", p.key, "error", err)
		return
	}
	p.logger.Debug("query cache persisted", "key", p.key, "bytes", len(snap.ClientState))
}

// RestoreClient returns the stored snapshot, or false when there is none,
// it could not be read, or it is older than the cache TTL. An expired
// snapshot is deleted on the way out.
func (p *Persister) RestoreClient(ctx context.Context) (mutation.Snapshot, bool) {
	backend, err := p.opener.Backend(ctx)
	if err != nil {
		p.logger.Debug("query cache unavailable", "key", p.key, "error", err)
		return mutation.Snapshot{}, false
	}

	snap, ok, err := backend.GetSnapshot(ctx, p.key)
	if err != nil {
		p.logger.Warn("failed to read query cache", "key", p.key, "error", err)
		return mutation.Snapshot{}, false
	}
	if !ok {
		return mutation.Snapshot{}, false
	}

	if age := snap.Age(p.now()); age > p.ttl {
		p.logger.Info("discarding expired query cache", "key", p.key, "age", age.Round(time.Second))
		if err := backend.DeleteSnapshot(ctx, p.key); err != nil {
			p.logger.Warn("failed to delete expired query cache", "key", p.key, "error", err)
		}
		return mutation.Snapshot{}, false
	}
	return snap, true
}

// RemoveClient deletes the stored snapshot. Removing an absent snapshot is a no-op.
func (p *Persister) RemoveClient(ctx context.Context) {
	backend, err := p.opener.Backend(ctx)
	if err != nil {
		p.logger.Debug("query cache unavailable", "key", p.key, "error", err)
		return
	}
	if err := backend.DeleteSnapshot(ctx, p.key); err != nil {
		p.logger.Warn("failed to remove query cache", "key", p.key, "error", err)
	}
}
