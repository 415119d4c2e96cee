package queue

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/RudyLabor/squadplanner-sub013/internal/mutation"
	"github.com/RudyLabor/squadplanner-sub013/internal/store"
	"github.com/RudyLabor/squadplanner-sub013/internal/trigger"
)

// Queue is the shared offline mutation queue. One Queue per backend; all
// callers in the process share it.
type Queue struct {
	opener *store.Opener
	ids    mutation.IDGenerator
	now    func() time.Time
	sync   trigger.SyncCapability
	base   *url.URL
	logger *slog.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithIDGenerator overrides the default random UUID generator.
func WithIDGenerator(g mutation.IDGenerator) Option {
	return func(q *Queue) { q.ids = g }
}

// WithClock sets the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithSyncCapability sets the background-sync facility notified after
// each successful enqueue.
func WithSyncCapability(c trigger.SyncCapability) Option {
	return func(q *Queue) { q.sync = c }
}

// WithBaseURL resolves relative request URLs against base at enqueue time,
// so the stored record is always absolute. Without it a relative URL is
// rejected.
func WithBaseURL(base *url.URL) Option {
	return func(q *Queue) { q.base = base }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// New creates a queue over the backend produced by opener.
func New(opener *store.Opener, opts ...Option) *Queue {
	q := &Queue{
		opener: opener,
		ids:    mutation.RandomIDGenerator{},
		now:    time.Now,
		sync:   trigger.Unsupported{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue durably stores req as a new QueuedMutation and asks for a
// background sync. The stored record is returned.
//
// Never fails the caller: when storage is unavailable nothing is stored,
// Result.Err describes why, and the zero record is returned.
func (q *Queue) Enqueue(ctx context.Context, req mutation.Request) Result[mutation.QueuedMutation] {
	if q.base != nil && req.URL != "" {
		if ref, err := url.Parse(req.URL); err == nil {
			req.URL = q.base.ResolveReference(ref).String()
		}
	}
	m := mutation.QueuedMutation{
		ID:        q.ids.Generate(),
		Timestamp: q.now().UnixMilli(),
		Request:   req,
	}
	if err := m.Validate(); err != nil {
		q.logger.Warn("mutation not queued", "description", req.Description, "error", err)
		return degraded(mutation.QueuedMutation{}, &StorageError{Code: ErrCodeInvalid, Op: "enqueue", Err: err})
	}

	backend, err := q.opener.Backend(ctx)
	if err != nil {
		q.logger.Warn("mutation queue unavailable, dropping mutation",
			"description", req.Description,
			"error", err,
		)
		return degraded(mutation.QueuedMutation{}, unavailable("enqueue", err))
	}

	if err := backend.Add(ctx, m); err != nil {
		q.logger.Warn("failed to queue mutation",
			"description", req.Description,
			"error", err,
		)
		return degraded(mutation.QueuedMutation{}, writeFailed("enqueue", err))
	}

	q.logger.Info("mutation queued",
		"id", m.ID,
		"method", m.Method,
		"url", m.URL,
		"description", m.Description,
	)

	trigger.RequestSync(ctx, q.sync, mutation.SyncTag, q.logger)
	return succeeded(m)
}

// Pending returns every queued mutation in FIFO order. On storage failure
// the value is an empty, non-nil slice.
func (q *Queue) Pending(ctx context.Context) Result[[]mutation.QueuedMutation] {
	empty := []mutation.QueuedMutation{}

	backend, err := q.opener.Backend(ctx)
	if err != nil {
		q.logger.Debug("mutation queue unavailable", "error", err)
		return degraded(empty, unavailable("pending", err))
	}

	records, err := backend.ListAll(ctx)
	if err != nil {
		q.logger.Warn("failed to list queued mutations", "error", err)
		return degraded(empty, readFailed("pending", err))
	}
	if records == nil {
		records = empty
	}
	return succeeded(records)
}

// Clear removes every queued mutation, e.g. on logout.
func (q *Queue) Clear(ctx context.Context) Result[struct{}] {
	backend, err := q.opener.Backend(ctx)
	if err != nil {
		q.logger.Debug("mutation queue unavailable", "error", err)
		return degraded(struct{}{}, unavailable("clear", err))
	}
	if err := backend.ClearAll(ctx); err != nil {
		q.logger.Warn("failed to clear mutation queue", "error", err)
		return degraded(struct{}{}, writeFailed("clear", err))
	}
	q.logger.Info("mutation queue cleared")
	return succeeded(struct{}{})
}

// Delete removes one record after the replay engine reached a terminal
// outcome for it. Unlike the other operations it returns its error, so the
// engine can stop the pass when storage goes away.
func (q *Queue) Delete(ctx context.Context, id string) error {
	backend, err := q.opener.Backend(ctx)
	if err != nil {
		return unavailable("delete", err)
	}
	if err := backend.DeleteByID(ctx, id); err != nil {
		return writeFailed("delete", err)
	}
	return nil
}
