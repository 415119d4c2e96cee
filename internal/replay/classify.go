package replay

import "fmt"

// Outcome is the classification of one replay attempt.
type Outcome int

const (
	// OutcomeDelivered: 2xx, record deleted and counted.
	OutcomeDelivered Outcome = iota + 1
	// OutcomeRejected: 4xx, record deleted, not counted.
	OutcomeRejected
	// OutcomeRetry: record kept for the next pass.
	OutcomeRetry
	// OutcomeHalted: the request could not be sent; the pass stops.
	OutcomeHalted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeRejected:
		return "rejected"
	case OutcomeRetry:
		return "retry"
	case OutcomeHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// MarshalText lets Outcome print as its name in JSON and YAML.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText parses an outcome name written by MarshalText.
func (o *Outcome) UnmarshalText(text []byte) error {
	for _, c := range []Outcome{OutcomeDelivered, OutcomeRejected, OutcomeRetry, OutcomeHalted} {
		if c.String() == string(text) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", text)
}

// Classifier maps HTTP status codes to outcomes.
//
// By status class only: 2xx delivered, 4xx rejected, everything else retry.
// Statuses listed in retry are kept even inside the 4xx range.
type Classifier struct {
	retry map[int]bool
}

// NewClassifier creates a classifier that additionally retries the given
// statuses (typically 408 and 429).
func NewClassifier(retryStatuses ...int) Classifier {
	c := Classifier{retry: make(map[int]bool, len(retryStatuses))}
	for _, s := range retryStatuses {
		c.retry[s] = true
	}
	return c
}

// Classify returns the outcome for an HTTP status code.
func (c Classifier) Classify(status int) Outcome {
	if c.retry[status] {
		return OutcomeRetry
	}
	switch {
	case status >= 200 && status < 300:
		return OutcomeDelivered
	case status >= 400 && status < 500:
		return OutcomeRejected
	default:
		// 5xx, and 1xx/3xx that the client did not resolve itself.
		return OutcomeRetry
	}
}

// Classify uses the default status-class rules.
func Classify(status int) Outcome {
	return Classifier{}.Classify(status)
}
