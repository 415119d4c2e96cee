package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/RudyLabor/squadplanner-sub013/internal/mutation"
	"github.com/RudyLabor/squadplanner-sub013/internal/queue"
)

// NewPendingCommand creates the pending command.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List queued mutations in replay order",
		Example: `  sqsync pending
  sqsync pending --db bolt://./queue.bolt --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPending(rootOpts, cmd)
		},
	}
}

func runPending(opts *RootOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	res := queue.New(s.opener, queue.WithLogger(s.logger)).Pending(ctx)
	if res.Degraded() {
		_ = s.out.Error(ErrCodeDegraded, "failed to read queue", res.Err.Error())
		return WrapExitError(ExitFailure, "failed to read queue", res.Err)
	}

	return s.out.Emit(res.Value, func(w io.Writer) {
		writePendingText(w, res.Value)
	})
}

func writePendingText(w io.Writer, pending []mutation.QueuedMutation) {
	if len(pending) == 0 {
		fmt.Fprintln(w, "No pending mutations.")
		return
	}
	fmt.Fprintf(w, "%d pending mutation(s)\n", len(pending))
	for i, m := range pending {
		fmt.Fprintf(w, "  %d. %s %s %s", i+1, m.ID, m.Method, m.URL)
		if m.Description != "" {
			fmt.Fprintf(w, " (%s)", m.Description)
		}
		fmt.Fprintf(w, " queued %s\n", m.Created().UTC().Format(time.RFC3339))
	}
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear",
		Short:         "Remove every queued mutation (e.g. on logout)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			s, err := openSession(ctx, rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			res := queue.New(s.opener, queue.WithLogger(s.logger)).Clear(ctx)
			if res.Degraded() {
				_ = s.out.Error(ErrCodeDegraded, "failed to clear queue", res.Err.Error())
				return WrapExitError(ExitFailure, "failed to clear queue", res.Err)
			}
			return s.out.Emit(map[string]bool{"cleared": true}, func(w io.Writer) {
				fmt.Fprintln(w, "Mutation queue cleared.")
			})
		},
	}
}
