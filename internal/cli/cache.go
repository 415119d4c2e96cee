package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/RudyLabor/squadplanner-sub013/internal/mutation"
	"github.com/RudyLabor/squadplanner-sub013/internal/persister"
)

// CacheOptions holds flags shared by the cache subcommands.
type CacheOptions struct {
	*RootOptions
	Key       string
	Buster    string
	State     string
	StateFile string
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Persist, restore and remove query-cache snapshots",
		Long: `Manage the persisted read-cache snapshot.

Snapshots older than 24 hours are discarded on restore.`,
	}
	cmd.PersistentFlags().StringVar(&opts.Key, "key", "", "snapshot key (default from config, sq-react-query)")

	persist := &cobra.Command{
		Use:   "persist",
		Short: "Store a snapshot, replacing any previous one",
		Example: `  sqsync cache persist --buster v3 --state '{"queries":[]}'
  sqsync cache persist --state-file cache.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCachePersist(opts, cmd)
		},
	}
	persist.Flags().StringVar(&opts.Buster, "buster", "", "cache-format tag stored with the snapshot")
	persist.Flags().StringVar(&opts.State, "state", "", "client state as JSON")
	persist.Flags().StringVar(&opts.StateFile, "state-file", "", "read client state JSON from a file")
	persist.MarkFlagsMutuallyExclusive("state", "state-file")
	persist.MarkFlagsOneRequired("state", "state-file")

	restore := &cobra.Command{
		Use:           "restore",
		Short:         "Print the stored snapshot (exit 1 when absent or expired)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheRestore(opts, cmd)
		},
	}

	remove := &cobra.Command{
		Use:           "remove",
		Short:         "Delete the stored snapshot",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheRemove(opts, cmd)
		},
	}

	cmd.AddCommand(persist, restore, remove)
	return cmd
}

func newPersister(opts *CacheOptions, s *session) *persister.Persister {
	key := s.cfg.Persister.Key
	if opts.Key != "" {
		key = opts.Key
	}
	return persister.New(s.opener, persister.WithKey(key), persister.WithLogger(s.logger))
}

func runCachePersist(opts *CacheOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	state := []byte(opts.State)
	if opts.StateFile != "" {
		data, err := os.ReadFile(opts.StateFile)
		if err != nil {
			_ = newFormatter(opts.RootOptions, cmd).Error(ErrCodeRequest, "failed to read state file", err.Error())
			return WrapExitError(ExitCommandError, "failed to read state file", err)
		}
		state = data
	}
	if !json.Valid(state) {
		_ = newFormatter(opts.RootOptions, cmd).Error(ErrCodeRequest, "client state is not valid JSON", nil)
		return NewExitError(ExitCommandError, "client state is not valid JSON")
	}

	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	p := newPersister(opts, s)
	snap := mutation.Snapshot{
		Timestamp:   time.Now().UnixMilli(),
		Buster:      opts.Buster,
		ClientState: json.RawMessage(state),
	}
	p.PersistClient(ctx, snap)

	return s.out.Emit(map[string]any{"key": p.Key(), "timestamp": snap.Timestamp}, func(w io.Writer) {
		fmt.Fprintf(w, "Persisted snapshot %q (%d bytes)\n", p.Key(), len(state))
	})
}

func runCacheRestore(opts *CacheOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	p := newPersister(opts, s)
	snap, ok := p.RestoreClient(ctx)
	if !ok {
		_ = s.out.Error(ErrCodeNotFound, fmt.Sprintf("no snapshot for %q", p.Key()), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("no snapshot for %q", p.Key()))
	}

	return s.out.Emit(snap, func(w io.Writer) {
		fmt.Fprintf(w, "Snapshot %q buster=%q saved %s\n", p.Key(), snap.Buster,
			time.UnixMilli(snap.Timestamp).UTC().Format(time.RFC3339))
		fmt.Fprintln(w, string(snap.ClientState))
	})
}

func runCacheRemove(opts *CacheOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	p := newPersister(opts, s)
	p.RemoveClient(ctx)
	return s.out.Emit(map[string]any{"key": p.Key(), "removed": true}, func(w io.Writer) {
		fmt.Fprintf(w, "Removed snapshot %q\n", p.Key())
	})
}
