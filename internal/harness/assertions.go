package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		switch event.Type {
		case EventAttempt:
			fmt.Fprintf(&buf, "  [%d] attempt %s %s %s -> %s\n", event.Seq, event.ID, event.Method, event.URL, event.Outcome)
		case EventEnqueue:
			fmt.Fprintf(&buf, "  [%d] enqueue %s %s %s\n", event.Seq, event.ID, event.Method, event.URL)
		default:
			fmt.Fprintf(&buf, "  [%d] %s\n", event.Seq, event.Type)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertPending:
		return assertSequence(a.Type, nonNil(a.IDs), result.Pending, result.Trace)
	case AssertRequests:
		return assertSequence(a.Type, nonNil(a.URLs), result.Requests, result.Trace)
	case AssertDeliveredTotal:
		if result.Delivered != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d delivered", a.Count),
				Actual:   fmt.Sprintf("%d delivered", result.Delivered),
				Trace:    result.Trace,
			}
		}
		return nil
	case AssertNeverAttempted:
		return assertNeverAttempted(a.IDs, result.Trace)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertSequence(kind string, want, got []string, trace []TraceEvent) error {
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    trace,
	}
}

func assertNeverAttempted(ids []string, trace []TraceEvent) error {
	for _, event := range trace {
		if event.Type == EventAttempt && slices.Contains(ids, event.ID) {
			return &AssertionError{
				Type:     AssertNeverAttempted,
				Expected: fmt.Sprintf("no attempt for %v", ids),
				Actual:   fmt.Sprintf("%s attempted at seq %d", event.ID, event.Seq),
				Trace:    trace,
			}
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
