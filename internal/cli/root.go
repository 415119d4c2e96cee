// Package cli implements the sqsync command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/RudyLabor/squadplanner-sub013/internal/config"
	"github.com/RudyLabor/squadplanner-sub013/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Database   string // store DSN, overrides the config file
	ConfigPath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sqsync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sqsync",
		Short: "sqsync - offline mutation queue",
		Long: `Queue writes while offline and replay them, in order, once the network is back.

Mutations and query-cache snapshots are kept in a local store (SQLite by
default, or bbolt / in-memory via --db bolt://path, --db memory://).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "store DSN (path, sqlite://, bolt://, memory://)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file")

	cmd.AddCommand(NewQueueCommand(opts))
	cmd.AddCommand(NewPendingCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewCacheCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// session is the per-command wiring shared by every subcommand.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	opener *store.Opener
	out    *OutputFormatter
}

// newFormatter builds the output formatter for cmd.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openSession resolves configuration, installs logging, and opens the store.
// Flags win over the config file.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*session, error) {
	out := newFormatter(opts, cmd)

	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			_ = out.Error(ErrCodeConfig, "failed to load config", err.Error())
			return nil, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}
	if opts.Database != "" {
		cfg.Store.DSN = opts.Database
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	opener := store.DSNOpener(cfg.Store.DSN)
	if _, err := opener.Backend(ctx); err != nil {
		msg := fmt.Sprintf("failed to open store %q", cfg.Store.DSN)
		_ = out.Error(ErrCodeStore, msg, err.Error())
		return nil, WrapExitError(ExitCommandError, msg, err)
	}
	logger.Debug("store ready", "dsn", cfg.Store.DSN)

	return &session{
		cfg:    cfg,
		logger: logger,
		opener: opener,
		out:    out,
	}, nil
}

func (s *session) Close() {
	if err := s.opener.Close(); err != nil {
		s.logger.Error("error closing store", "error", err)
	}
}

// commandContext returns the command's context, or Background when the
// command is executed directly in tests.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
