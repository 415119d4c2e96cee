package testutil

import (
	"sort"
	"sync"
)

// Window is a controllable connectivity source. It satisfies
// trigger.Window and trigger.OnlineReporter.
type Window struct {
	mu        sync.Mutex
	online    bool
	nextID    int
	listeners map[int]func()
}

// NewWindow creates a window in the given connectivity state.
func NewWindow(online bool) *Window {
	return &Window{online: online, listeners: make(map[int]func())}
}

// OnOnline registers fn; the returned func removes it.
func (w *Window) OnOnline(fn func()) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.listeners, id)
	}
}

// Online reports the current state.
func (w *Window) Online() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.online
}

// Listeners returns how many callbacks are registered.
func (w *Window) Listeners() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.listeners)
}

// GoOffline marks the window offline.
func (w *Window) GoOffline() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.online = false
}

// GoOnline marks the window online and, on an offline→online edge, calls
// every listener synchronously in registration order.
func (w *Window) GoOnline() {
	w.mu.Lock()
	if w.online {
		w.mu.Unlock()
		return
	}
	w.online = true
	ids := make([]int, 0, len(w.listeners))
	for id := range w.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, w.listeners[id])
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
