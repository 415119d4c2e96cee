package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/RudyLabor/squadplanner-sub013/internal/mutation"
	"github.com/RudyLabor/squadplanner-sub013/internal/queue"
)

// maxDrain bounds how much of a response body is read before closing it.
const maxDrain = 64 << 10

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Queue is the part of queue.Queue the engine needs.
type Queue interface {
	Pending(ctx context.Context) queue.Result[[]mutation.QueuedMutation]
	Delete(ctx context.Context, id string) error
}

// Engine runs replay passes over a Queue.
type Engine struct {
	queue      Queue
	doer       Doer
	classifier Classifier
	logger     *slog.Logger

	// mu serializes passes
	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithRetryStatuses keeps mutations answered with these statuses in the
// queue instead of discarding them as client errors.
func WithRetryStatuses(statuses ...int) Option {
	return func(e *Engine) { e.classifier = NewClassifier(statuses...) }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine replaying q through doer.
func New(q Queue, doer Doer, opts ...Option) *Engine {
	e := &Engine{
		queue:      q,
		doer:       doer,
		classifier: NewClassifier(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Replay runs one pass and returns how many mutations were delivered.
func (e *Engine) Replay(ctx context.Context) int {
	report, _ := e.Run(ctx)
	return report.Delivered
}

// Run runs one pass and returns its report.
//
// The returned error is non-nil only when the queue could not be read; the
// report is then empty. Everything that happens to individual records,
// including a halted pass, is described by the report.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pending := e.queue.Pending(ctx)
	if pending.Degraded() {
		e.logger.Warn("replay skipped: mutation queue unavailable", "error", pending.Err)
		return Report{}, pending.Err
	}

	report := Report{Snapshot: len(pending.Value)}
	if report.Snapshot == 0 {
		return report, nil
	}

	e.logger.Info("replay pass starting", "pending", report.Snapshot)

	for _, m := range pending.Value {
		attempt := e.attempt(ctx, m)

		if attempt.Outcome == OutcomeDelivered || attempt.Outcome == OutcomeRejected {
			if err := e.queue.Delete(ctx, m.ID); err != nil {
				// Storage went away mid-pass; stop rather than resend later
				// records ahead of one we could not retire.
				attempt.Outcome = OutcomeHalted
				attempt.Err = fmt.Sprintf("delete after %d: %v", attempt.Status, err)
			}
		}

		report.record(attempt)
		e.logAttempt(attempt)

		if attempt.Outcome == OutcomeHalted {
			break
		}
	}

	report.Retained = report.Snapshot - report.Delivered - report.Rejected
	e.logger.Info("replay pass finished",
		"delivered", report.Delivered,
		"rejected", report.Rejected,
		"retained", report.Retained,
		"halted", report.Halted,
	)
	return report, nil
}

// attempt sends m once and classifies the result. It never panics on a
// malformed record.
func (e *Engine) attempt(ctx context.Context, m mutation.QueuedMutation) Attempt {
	a := Attempt{ID: m.ID, Method: m.Method, URL: m.URL, Description: m.Description}

	req, err := buildRequest(ctx, m)
	if err != nil {
		a.Outcome = OutcomeHalted
		a.Err = err.Error()
		return a
	}

	resp, err := e.doer.Do(req)
	if err == nil && resp == nil {
		err = errNilResponse
	}
	if err != nil {
		a.Outcome = OutcomeHalted
		a.Err = err.Error()
		return a
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	resp.Body.Close()

	a.Status = resp.StatusCode
	a.Outcome = e.classifier.Classify(resp.StatusCode)
	return a
}

var errNilResponse = errors.New("doer returned no response")

// buildRequest rebuilds the stored request verbatim. Header names are
// canonicalized by net/http; a stored Host header becomes the request's
// Host, since net/http sends that field instead of a Host header.
func buildRequest(ctx context.Context, m mutation.QueuedMutation) (*http.Request, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	var body io.Reader
	if m.Body != nil {
		body = strings.NewReader(*m.Body)
	}
	req, err := http.NewRequestWithContext(ctx, m.Method, m.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", m.ID, err)
	}
	for k, v := range m.Headers {
		if http.CanonicalHeaderKey(k) == "Host" {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}
	return req, nil
}

func (e *Engine) logAttempt(a Attempt) {
	switch a.Outcome {
	case OutcomeDelivered:
		e.logger.Debug("mutation replayed", "id", a.ID, "status", a.Status)
	case OutcomeRejected:
		e.logger.Warn("mutation rejected by server, discarding",
			"id", a.ID,
			"status", a.Status,
			"description", a.Description,
		)
	case OutcomeRetry:
		e.logger.Info("mutation kept for retry", "id", a.ID, "status", a.Status)
	case OutcomeHalted:
		e.logger.Info("replay halted, still offline", "id", a.ID, "error", a.Err)
	}
}
