package replay

// Attempt describes one record's fate within a pass.
type Attempt struct {
	ID          string  `json:"id" yaml:"id"`
	Method      string  `json:"method" yaml:"method"`
	URL         string  `json:"url" yaml:"url"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Status      int     `json:"status,omitempty" yaml:"status,omitempty"`
	Outcome     Outcome `json:"outcome" yaml:"outcome"`
	Err         string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report summarizes one replay pass.
type Report struct {
	// Snapshot is how many records the pass started with.
	Snapshot int `json:"snapshot"`

	Delivered int `json:"delivered"`
	Rejected  int `json:"rejected"`

	// Retained counts snapshot records still queued after the pass, whether
	// kept for retry or never attempted.
	Retained int `json:"retained"`

	// Halted is set when the pass stopped early; HaltedAt names the record.
	Halted   bool   `json:"halted"`
	HaltedAt string `json:"halted_at,omitempty"`

	Attempts []Attempt `json:"attempts"`
}

func (r *Report) record(a Attempt) {
	r.Attempts = append(r.Attempts, a)
	switch a.Outcome {
	case OutcomeDelivered:
		r.Delivered++
	case OutcomeRejected:
		r.Rejected++
	case OutcomeHalted:
		r.Halted = true
		r.HaltedAt = a.ID
	}
}
