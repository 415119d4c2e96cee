package harness

// Trace event types.
const (
	EventEnqueue = "enqueue"
	EventAttempt = "attempt"
	EventPass    = "pass"
	EventOnline  = "online"
	EventOffline = "offline"
)

// TraceEvent is one observable step of a scenario run.
type TraceEvent struct {
	Seq     int          `json:"seq"`
	Type    string       `json:"type"`
	ID      string       `json:"id,omitempty"`
	Method  string       `json:"method,omitempty"`
	URL     string       `json:"url,omitempty"`
	Status  int          `json:"status,omitempty"`
	Outcome string       `json:"outcome,omitempty"`
	Error   string       `json:"error,omitempty"`
	Pass    *PassSummary `json:"pass,omitempty"`
}

// PassSummary is the trace form of a replay.Report.
type PassSummary struct {
	Delivered int    `json:"delivered"`
	Rejected  int    `json:"rejected"`
	Retained  int    `json:"retained"`
	Halted    bool   `json:"halted"`
	HaltedAt  string `json:"halted_at,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	// Pending is the final queue, by id, in FIFO order.
	Pending []string `json:"pending"`

	// Requests is every URL sent, in order.
	Requests []string `json:"requests"`

	// Delivered is the sum of delivered counts over all passes.
	Delivered int `json:"delivered"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Pending:  []string{},
		Requests: []string{},
	}
}

// AddError records a failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) add(e TraceEvent) {
	e.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, e)
}
