package trigger

import (
	"context"
	"log/slog"
	"sync"
)

// Environment describes what the host process can offer.
// A nil Window means there is no connectivity source to listen to.
type Environment struct {
	Window Window
	Sync   SyncCapability
}

// ReplayFunc runs one replay pass.
type ReplayFunc func(ctx context.Context)

// Handle is returned by Init. Close detaches the online listener.
type Handle struct {
	mu          sync.Mutex
	attached    bool
	unsubscribe func()
	wg          sync.WaitGroup
}

// Close detaches the listener and waits for passes it started to finish.
// Safe to call more than once.
func (h *Handle) Close() {
	h.mu.Lock()
	unsubscribe := h.unsubscribe
	h.attached = false
	h.unsubscribe = nil
	h.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	h.wg.Wait()
}

// Init wires replay to the environment's online notifications.
//
// Each notification starts replay in its own goroutine, bound to ctx, so the
// notifier is never blocked by network I/O. Ordering between overlapping
// passes is the replay engine's concern.
//
// Without a Window, Init attaches nothing; Close on that Handle is a no-op.
func Init(ctx context.Context, env Environment, replay ReplayFunc, logger *slog.Logger) *Handle {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handle{}
	if env.Window == nil {
		logger.Debug("no window available, offline mutation sync disabled")
		return h
	}

	h.attached = true
	unsubscribe := env.Window.OnOnline(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if !h.attached || ctx.Err() != nil {
			return
		}
		logger.Info("connectivity restored, replaying queued mutations")
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			replay(ctx)
		}()
	})

	h.mu.Lock()
	h.unsubscribe = unsubscribe
	h.mu.Unlock()
	return h
}
