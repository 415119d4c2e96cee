package trigger

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// SyncHandler runs the work registered under tag. Returning an error keeps
// the tag pending for the next attempt.
type SyncHandler func(ctx context.Context, tag string) error

// BackgroundSync is an in-process background-sync facility.
//
// Register records a tag; Run fires the handler for every pending tag when
// connectivity returns (or immediately when the window reports it is already
// online). Duplicate registrations coalesce into one pending tag.
//
// Thread-safety: all methods are safe for concurrent use.
type BackgroundSync struct {
	window  Window
	handler SyncHandler
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	wake    chan struct{} // buffered, size 1
}

// NewBackgroundSync creates a facility that listens on window.
// window may be nil, in which case pending tags fire as soon as they are
// registered.
func NewBackgroundSync(window Window, handler SyncHandler, logger *slog.Logger) *BackgroundSync {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackgroundSync{
		window:  window,
		handler: handler,
		logger:  logger,
		pending: make(map[string]struct{}),
		wake:    make(chan struct{}, 1),
	}
}

// Lookup implements SyncCapability; a BackgroundSync is always available.
func (b *BackgroundSync) Lookup(context.Context) Availability {
	return Available(b)
}

// Register implements Registration.
func (b *BackgroundSync) Register(ctx context.Context, tag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.pending[tag] = struct{}{}
	b.mu.Unlock()
	b.signal()
	return nil
}

// Pending returns the registered tags not yet successfully handled, sorted.
func (b *BackgroundSync) Pending() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	tags := make([]string, 0, len(b.pending))
	for tag := range b.pending {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Run dispatches pending tags until ctx is cancelled.
func (b *BackgroundSync) Run(ctx context.Context) error {
	online := make(chan struct{}, 1)
	if b.window != nil {
		unsubscribe := b.window.OnOnline(func() {
			select {
			case online <- struct{}{}:
			default:
			}
		})
		defer unsubscribe()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.wake:
			if !b.isOnline() {
				b.logger.Debug("background sync deferred until online")
				continue
			}
			b.flush(ctx)
		case <-online:
			b.flush(ctx)
		}
	}
}

// Flush fires the handler for every pending tag once, regardless of
// connectivity. Tags whose handler fails stay pending.
func (b *BackgroundSync) Flush(ctx context.Context) {
	b.flush(ctx)
}

func (b *BackgroundSync) flush(ctx context.Context) {
	for _, tag := range b.Pending() {
		if ctx.Err() != nil {
			return
		}
		// Drop before running so a registration made during the handler
		// re-arms the tag instead of being lost.
		b.mu.Lock()
		delete(b.pending, tag)
		b.mu.Unlock()

		if err := b.handler(ctx, tag); err != nil {
			b.logger.Warn("background sync failed, will retry", "tag", tag, "error", err)
			b.mu.Lock()
			b.pending[tag] = struct{}{}
			b.mu.Unlock()
			continue
		}
		b.logger.Debug("background sync completed", "tag", tag)
	}
}

func (b *BackgroundSync) isOnline() bool {
	if r, ok := b.window.(OnlineReporter); ok {
		return r.Online()
	}
	return true
}

func (b *BackgroundSync) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}
