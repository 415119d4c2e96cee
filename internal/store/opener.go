package store

import (
	"context"
	"sync"
)

// OpenFunc opens a backend. It may be called again after a failure.
type OpenFunc func(ctx context.Context) (Backend, error)

// Opener opens a backend lazily on first use and hands out the same handle
// afterwards. A failed open is not cached: storage that was blocked at
// startup (locked file, read-only volume) is retried on the next call.
type Opener struct {
	mu      sync.Mutex
	open    OpenFunc
	backend Backend
}

// NewOpener wraps open.
func NewOpener(open OpenFunc) *Opener {
	return &Opener{open: open}
}

// DSNOpener returns an Opener for Open(dsn).
func DSNOpener(dsn string) *Opener {
	return NewOpener(func(context.Context) (Backend, error) {
		return Open(dsn)
	})
}

// Static returns an Opener that always yields b.
func Static(b Backend) *Opener {
	return &Opener{backend: b}
}

// Backend returns the open backend, opening it if needed.
func (o *Opener) Backend(ctx context.Context) (Backend, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.backend != nil {
		return o.backend, nil
	}
	if o.open == nil {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := o.open(ctx)
	if err != nil {
		return nil, err
	}
	o.backend = b
	return b, nil
}

// Close closes the backend if it was opened.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.backend == nil {
		return nil
	}
	err := o.backend.Close()
	o.backend = nil
	return err
}
