package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RudyLabor/squadplanner-sub013/internal/mutation"
	"github.com/RudyLabor/squadplanner-sub013/internal/queue"
)

// QueueOptions holds flags for the queue command.
type QueueOptions struct {
	*RootOptions
	URL         string
	Method      string
	Headers     []string // "Key: Value" or "Key=Value"
	Body        string
	BodyFile    string
	Description string
	BaseURL     string
}

// NewQueueCommand creates the queue command.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueueOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Queue a mutation for later delivery",
		Long: `Store a write request durably so it can be replayed when the network is back.

Exit codes:
  0 - Mutation queued
  1 - Storage failed; nothing was queued
  2 - Command error (invalid flags, store cannot be opened)

Examples:
  sqsync queue --url https://api.example.com/sessions/7/rsvp --body '{"status":"present"}' \
      --header "Content-Type: application/json" --description "RSVP to session"
  sqsync queue --method DELETE --url https://api.example.com/messages/99
  sqsync queue --base-url https://api.example.com --url /messages/99 -X DELETE`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueue(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "", "request URL (required)")
	_ = cmd.MarkFlagRequired("url")
	cmd.Flags().StringVarP(&opts.Method, "method", "X", http.MethodPost, "HTTP method")
	cmd.Flags().StringArrayVarP(&opts.Headers, "header", "H", nil, `request header, "Key: Value" (repeatable)`)
	cmd.Flags().StringVar(&opts.Body, "body", "", "request body")
	cmd.Flags().StringVar(&opts.BodyFile, "body-file", "", "read the request body from a file")
	cmd.Flags().StringVar(&opts.Description, "description", "", "human-readable label")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "resolve a relative --url against this URL")
	cmd.MarkFlagsMutuallyExclusive("body", "body-file")

	return cmd
}

func runQueue(opts *QueueOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	queueOpts, err := baseURLOption(opts.BaseURL)
	if err != nil {
		return invalidMutation(opts, cmd, err)
	}
	req, err := buildRequest(opts, cmd)
	if err != nil {
		return invalidMutation(opts, cmd, err)
	}
	return enqueue(ctx, opts, cmd, req, queueOpts)
}

func invalidMutation(opts *QueueOptions, cmd *cobra.Command, err error) error {
	_ = newFormatter(opts.RootOptions, cmd).Error(ErrCodeRequest, "invalid mutation", err.Error())
	return WrapExitError(ExitCommandError, "invalid mutation", err)
}

func baseURLOption(raw string) ([]queue.Option, error) {
	if raw == "" {
		return nil, nil
	}
	base, err := url.Parse(raw)
	if err != nil || !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", raw)
	}
	return []queue.Option{queue.WithBaseURL(base)}, nil
}

func enqueue(ctx context.Context, opts *QueueOptions, cmd *cobra.Command, req mutation.Request, queueOpts []queue.Option) error {
	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	q := queue.New(s.opener, append(queueOpts, queue.WithLogger(s.logger))...)
	res := q.Enqueue(ctx, req)
	if queue.IsInvalidRequest(res.Err) {
		return invalidMutation(opts, cmd, res.Err)
	}
	if res.Degraded() {
		_ = s.out.Error(ErrCodeDegraded, "mutation not queued", res.Err.Error())
		return WrapExitError(ExitFailure, "mutation not queued", res.Err)
	}

	m := res.Value
	return s.out.Emit(m, func(w io.Writer) {
		fmt.Fprintf(w, "Queued %s %s %s\n", m.ID, m.Method, m.URL)
	})
}

func buildRequest(opts *QueueOptions, cmd *cobra.Command) (mutation.Request, error) {
	req := mutation.Request{
		URL:         opts.URL,
		Method:      strings.ToUpper(opts.Method),
		Headers:     map[string]string{},
		Description: opts.Description,
	}

	for _, h := range opts.Headers {
		key, value, err := parseHeader(h)
		if err != nil {
			return mutation.Request{}, err
		}
		req.Headers[key] = value
	}

	switch {
	case opts.BodyFile != "":
		data, err := os.ReadFile(opts.BodyFile)
		if err != nil {
			return mutation.Request{}, fmt.Errorf("read body file: %w", err)
		}
		req.Body = mutation.StringPtr(string(data))
	case cmd.Flags().Changed("body"):
		req.Body = mutation.StringPtr(opts.Body)
	}
	return req, nil
}

// parseHeader accepts "Key: Value" and "Key=Value".
func parseHeader(h string) (string, string, error) {
	sep := strings.IndexAny(h, ":=")
	if sep <= 0 {
		return "", "", fmt.Errorf("invalid header %q: expected \"Key: Value\"", h)
	}
	return strings.TrimSpace(h[:sep]), strings.TrimSpace(h[sep+1:]), nil
}
