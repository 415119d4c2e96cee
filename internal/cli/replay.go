package cli

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/RudyLabor/squadplanner-sub013/internal/queue"
	"github.com/RudyLabor/squadplanner-sub013/internal/replay"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Timeout       time.Duration
	RetryStatuses []int
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Send queued mutations once, in order",
		Long: `Run one replay pass over the queue.

Each mutation is sent in FIFO order. 2xx responses are delivered and removed,
4xx responses are discarded, 5xx responses are kept for the next pass. A
network error stops the pass and leaves the remaining mutations untouched.

Exit codes:
  0 - Pass completed (some mutations may be kept for retry)
  1 - Pass halted on a network error
  2 - Command error (store cannot be opened, etc.)

Examples:
  sqsync replay
  sqsync replay --retry-status 408,429 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "per-request timeout")
	cmd.Flags().IntSliceVar(&opts.RetryStatuses, "retry-status", nil, "extra statuses to keep for retry (added to config)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	engine := newEngine(s, &http.Client{Timeout: opts.Timeout}, opts.RetryStatuses)
	report, err := engine.Run(ctx)
	if err != nil {
		_ = s.out.Error(ErrCodeDegraded, "failed to read queue", err.Error())
		return WrapExitError(ExitFailure, "failed to read queue", err)
	}

	text := func(w io.Writer) { writeReportText(w, report) }
	if report.Halted {
		msg := fmt.Sprintf("replay halted at %s", report.HaltedAt)
		if err := s.out.Fail(ErrCodeHalted, msg, report, text); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return s.out.Emit(report, text)
}

// newEngine builds a replay engine over the session's queue.
func newEngine(s *session, doer replay.Doer, extraRetry []int) *replay.Engine {
	retry := append(append([]int(nil), s.cfg.Replay.RetryStatuses...), extraRetry...)
	q := queue.New(s.opener, queue.WithLogger(s.logger))
	return replay.New(q, doer,
		replay.WithRetryStatuses(retry...),
		replay.WithLogger(s.logger),
	)
}

func writeReportText(w io.Writer, report replay.Report) {
	if report.Snapshot == 0 {
		fmt.Fprintln(w, "No pending mutations.")
		return
	}
	for _, a := range report.Attempts {
		switch a.Outcome {
		case replay.OutcomeHalted:
			fmt.Fprintf(w, "  ✗ %s %s %s: %s\n", a.ID, a.Method, a.URL, a.Err)
		default:
			fmt.Fprintf(w, "  %s %s %s %s -> %d %s\n", outcomeMark(a.Outcome), a.ID, a.Method, a.URL, a.Status, a.Outcome)
		}
	}
	fmt.Fprintf(w, "Delivered %d, rejected %d, kept %d", report.Delivered, report.Rejected, report.Retained)
	if report.Halted {
		fmt.Fprintf(w, " (halted at %s)", report.HaltedAt)
	}
	fmt.Fprintln(w)
}

func outcomeMark(o replay.Outcome) string {
	switch o {
	case replay.OutcomeDelivered:
		return "✓"
	case replay.OutcomeRejected:
		return "-"
	default:
		return "…"
	}
}
