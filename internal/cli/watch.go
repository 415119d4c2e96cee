package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RudyLabor/squadplanner-sub013/internal/config"
	"github.com/RudyLabor/squadplanner-sub013/internal/connectivity"
	"github.com/RudyLabor/squadplanner-sub013/internal/mutation"
	"github.com/RudyLabor/squadplanner-sub013/internal/queue"
	"github.com/RudyLabor/squadplanner-sub013/internal/trigger"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	ProbeURL string
	Interval time.Duration
	Timeout  time.Duration
	Duration time.Duration
}

// WatchResult summarizes a watch session.
type WatchResult struct {
	Passes    int64 `json:"passes"`
	Delivered int64 `json:"delivered"`
	Pending   int   `json:"pending"`
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Replay the queue whenever connectivity returns",
		Long: `Poll a health endpoint and replay queued mutations on every
offline-to-online transition. Runs until interrupted (SIGINT/SIGTERM) or
until --duration elapses.

The process starts offline, so a reachable endpoint triggers a pass right
away.

Examples:
  sqsync watch --probe-url https://api.example.com/health
  sqsync watch --config sqsync.yaml --duration 10m`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ProbeURL, "probe-url", "", "health endpoint to poll (overrides config)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "polling interval (overrides config)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "probe and request timeout (overrides config)")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (0 = until interrupted)")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	conn := s.cfg.Connectivity
	if opts.ProbeURL != "" {
		conn.ProbeURL = opts.ProbeURL
	}
	if opts.Interval > 0 {
		conn.Interval = config.Duration(opts.Interval)
	}
	if opts.Timeout > 0 {
		conn.Timeout = config.Duration(opts.Timeout)
	}
	if conn.ProbeURL == "" {
		return NewExitError(ExitCommandError, "no probe URL: set --probe-url or connectivity.probe_url")
	}

	engine := newEngine(s, &http.Client{Timeout: conn.Timeout.Std()}, nil)

	var result WatchResult
	replayOnce := func(ctx context.Context) error {
		report, err := engine.Run(ctx)
		if err != nil {
			return err
		}
		atomic.AddInt64(&result.Passes, 1)
		atomic.AddInt64(&result.Delivered, int64(report.Delivered))
		if report.Halted {
			return fmt.Errorf("replay halted at %s", report.HaltedAt)
		}
		return nil
	}

	prober := connectivity.New(conn.ProbeURL,
		connectivity.WithInterval(conn.Interval.Std()),
		connectivity.WithTimeout(conn.Timeout.Std()),
		connectivity.WithLogger(s.logger),
	)
	background := trigger.NewBackgroundSync(prober, func(ctx context.Context, tag string) error {
		if tag != mutation.SyncTag {
			return nil
		}
		return replayOnce(ctx)
	}, s.logger)

	handle := trigger.Init(ctx, trigger.Environment{Window: prober, Sync: background}, func(ctx context.Context) {
		if err := replayOnce(ctx); err != nil {
			s.logger.Info("replay after reconnect incomplete", "error", err)
		}
	}, s.logger)
	defer handle.Close()

	q := queue.New(s.opener, queue.WithLogger(s.logger))
	if pending := q.Pending(ctx); len(pending.Value) > 0 {
		trigger.RequestSync(ctx, background, mutation.SyncTag, s.logger)
	}

	s.logger.Info("watching connectivity", "probe_url", conn.ProbeURL, "interval", conn.Interval.Std())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = prober.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		_ = background.Run(ctx)
	}()
	wg.Wait()
	handle.Close()

	// ctx is done; read the final queue without it.
	result.Pending = len(q.Pending(context.Background()).Value)

	return s.out.Emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "Stopped: %d pass(es), delivered %d, %d pending\n", result.Passes, result.Delivered, result.Pending)
	})
}
