// Package connectivity detects when the network comes back by polling a
// health endpoint.
//
// Prober implements trigger.Window and trigger.OnlineReporter, so it can
// drive both trigger.Init and trigger.BackgroundSync in a long-running
// process.
package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

const (
	DefaultInterval = 15 * time.Second
	DefaultTimeout  = 5 * time.Second
)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Prober polls url with HEAD requests. Any HTTP response counts as online;
// a transport error or timeout counts as offline.
//
// The prober starts offline, so the first successful probe is an
// offline→online edge and notifies listeners.
type Prober struct {
	url      string
	doer     Doer
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	online    bool
	nextID    int
	listeners map[int]func()
}

// Option configures a Prober.
type Option func(*Prober)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(p *Prober) { p.interval = d }
}

// WithTimeout bounds each probe.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) { p.timeout = d }
}

// WithDoer replaces the default http.Client.
func WithDoer(d Doer) Option {
	return func(p *Prober) { p.doer = d }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Prober) { p.logger = l }
}

// New creates a prober for url.
func New(url string, opts ...Option) *Prober {
	p := &Prober{
		url:       url,
		doer:      http.DefaultClient,
		interval:  DefaultInterval,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
		listeners: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OnOnline registers fn to run on every offline→online transition.
func (p *Prober) OnOnline(fn func()) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// Online reports the result of the last probe.
func (p *Prober) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// Run probes immediately and then every interval until ctx is done.
func (p *Prober) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Probe(ctx)
		}
	}
}

// Probe checks connectivity once, records the result, and notifies
// listeners synchronously if the network just came back.
func (p *Prober) Probe(ctx context.Context) bool {
	up := p.check(ctx)

	p.mu.Lock()
	was := p.online
	p.online = up
	var fns []func()
	if up && !was {
		ids := make([]int, 0, len(p.listeners))
		for id := range p.listeners {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			fns = append(fns, p.listeners[id])
		}
	}
	p.mu.Unlock()

	switch {
	case up && !was:
		p.logger.Info("connectivity restored", "url", p.url)
	case !up && was:
		p.logger.Info("connectivity lost", "url", p.url)
	}
	for _, fn := range fns {
		fn()
	}
	return up
}

func (p *Prober) check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		p.logger.Warn("invalid probe url", "url", p.url, "error", err)
		return false
	}
	resp, err := p.doer.Do(req)
	if err != nil {
		p.logger.Debug("probe failed", "url", p.url, "error", err)
		return false
	}
	resp.Body.Close()
	return true
}
