package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/RudyLabor/squadplanner-sub013/internal/canonjson"
)

// TraceSnapshot is what a golden file records for a scenario.
type TraceSnapshot struct {
	Name    string       `json:"name"`
	Pending []string     `json:"pending"`
	Trace   []TraceEvent `json:"trace"`
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// Snapshot renders the golden-file form of a result as canonical JSON.
func Snapshot(name string, result *Result) ([]byte, error) {
	return canonjson.Marshal(TraceSnapshot{
		Name:    name,
		Pending: result.Pending,
		Trace:   result.Trace,
	})
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	traceJSON, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)
	return nil
}
