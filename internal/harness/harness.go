package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/RudyLabor/squadplanner-sub013/internal/mutation"
	"github.com/RudyLabor/squadplanner-sub013/internal/queue"
	"github.com/RudyLabor/squadplanner-sub013/internal/replay"
	"github.com/RudyLabor/squadplanner-sub013/internal/store"
	"github.com/RudyLabor/squadplanner-sub013/internal/testutil"
	"github.com/RudyLabor/squadplanner-sub013/internal/trigger"
)

// startMillis is the frozen clock origin for every scenario.
const startMillis = 1_700_000_000_000

// passTimeout bounds how long an online step waits for the triggered pass.
const passTimeout = 5 * time.Second

type passResult struct {
	report replay.Report
	err    error
}

// Harness holds the wiring for one scenario run.
type Harness struct {
	backend *store.Memory
	queue   *queue.Queue
	engine  *replay.Engine
	doer    *testutil.Doer
	window  *testutil.Window
	clock   *testutil.Clock
	passes  chan passResult
	logger  *slog.Logger
}

// Run executes a scenario and returns its result.
//
// Each scenario runs on a fresh in-memory backend. The returned error is
// reserved for harness failures (a record that could not be queued, a
// triggered pass that never ran); failed expectations and assertions are
// reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := &Harness{
		backend: store.NewMemory(),
		doer:    testutil.NewDoer(),
		window:  testutil.NewWindow(scenario.Online),
		clock:   testutil.NewClockAtMillis(startMillis),
		passes:  make(chan passResult, 1),
		logger:  logger,
	}
	defer h.backend.Close()

	h.queue = queue.New(store.Static(h.backend),
		queue.WithIDGenerator(mutation.NewFixedIDGenerator(scenario.ids()...)),
		queue.WithClock(h.clock.Now),
		queue.WithLogger(logger),
	)
	h.engine = replay.New(h.queue, h.doer,
		replay.WithRetryStatuses(scenario.RetryStatuses...),
		replay.WithLogger(logger),
	)

	for url, replies := range scenario.Responses {
		scripted := make([]testutil.Reply, len(replies))
		for i, r := range replies {
			if r.Network {
				scripted[i] = testutil.Reply{Err: testutil.ErrNetwork}
			} else {
				scripted[i] = testutil.Reply{Status: r.Status}
			}
		}
		h.doer.Respond(url, scripted...)
	}

	handle := trigger.Init(ctx, trigger.Environment{Window: h.window}, func(ctx context.Context) {
		report, err := h.engine.Run(ctx)
		h.passes <- passResult{report: report, err: err}
	}, logger)
	defer handle.Close()

	result := NewResult()

	for i, r := range scenario.Queue {
		if err := h.enqueue(ctx, r, result); err != nil {
			return nil, fmt.Errorf("queue[%d]: %w", i, err)
		}
	}

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	if err := h.collect(ctx, result); err != nil {
		return nil, err
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	switch {
	case step.Enqueue != nil:
		return h.enqueue(ctx, *step.Enqueue, result)

	case step.Replay != nil:
		report, err := h.engine.Run(ctx)
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		h.recordPass(index, report, step.Replay.Expect, result)

	case step.Online != nil:
		wasOnline := h.window.Online()
		result.add(TraceEvent{Type: EventOnline})
		h.window.GoOnline()
		if wasOnline {
			if step.Online.Expect != nil {
				result.AddError(fmt.Sprintf("steps[%d]: already online, no pass was triggered", index))
			}
			return nil
		}
		select {
		case p := <-h.passes:
			if p.err != nil {
				return fmt.Errorf("triggered replay: %w", p.err)
			}
			h.recordPass(index, p.report, step.Online.Expect, result)
		case <-time.After(passTimeout):
			return fmt.Errorf("online: no replay pass within %s", passTimeout)
		}

	case step.Offline:
		result.add(TraceEvent{Type: EventOffline})
		h.window.GoOffline()
	}
	return nil
}

func (h *Harness) enqueue(ctx context.Context, r Record, result *Result) error {
	h.clock.Advance(time.Second)
	res := h.queue.Enqueue(ctx, mutation.Request{
		URL:         r.URL,
		Method:      r.Method,
		Headers:     r.Headers,
		Body:        r.Body,
		Description: r.Description,
	})
	if res.Degraded() {
		return fmt.Errorf("enqueue %s: %w", r.ID, res.Err)
	}
	result.add(TraceEvent{
		Type:   EventEnqueue,
		ID:     res.Value.ID,
		Method: res.Value.Method,
		URL:    res.Value.URL,
	})
	return nil
}

func (h *Harness) recordPass(index int, report replay.Report, expect *PassExpect, result *Result) {
	for _, a := range report.Attempts {
		result.add(TraceEvent{
			Type:    EventAttempt,
			ID:      a.ID,
			Method:  a.Method,
			URL:     a.URL,
			Status:  a.Status,
			Outcome: a.Outcome.String(),
			Error:   a.Err,
		})
	}
	result.add(TraceEvent{
		Type: EventPass,
		Pass: &PassSummary{
			Delivered: report.Delivered,
			Rejected:  report.Rejected,
			Retained:  report.Retained,
			Halted:    report.Halted,
			HaltedAt:  report.HaltedAt,
		},
	})
	result.Delivered += report.Delivered

	for _, msg := range checkPass(report, expect) {
		result.AddError(fmt.Sprintf("steps[%d]: %s", index, msg))
	}
}

func checkPass(report replay.Report, expect *PassExpect) []string {
	if expect == nil {
		return nil
	}
	var errs []string
	checkInt := func(name string, want *int, got int) {
		if want != nil && *want != got {
			errs = append(errs, fmt.Sprintf("expected %s=%d, got %d", name, *want, got))
		}
	}
	checkInt("delivered", expect.Delivered, report.Delivered)
	checkInt("rejected", expect.Rejected, report.Rejected)
	checkInt("retained", expect.Retained, report.Retained)
	if expect.Halted != nil && *expect.Halted != report.Halted {
		errs = append(errs, fmt.Sprintf("expected halted=%t, got %t", *expect.Halted, report.Halted))
	}
	return errs
}

// collect fills the final queue and request log into result.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	records, err := h.backend.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list final queue: %w", err)
	}
	for _, r := range records {
		result.Pending = append(result.Pending, r.ID)
	}
	result.Requests = append(result.Requests, h.doer.URLs()...)
	return nil
}
