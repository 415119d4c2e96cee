package harness

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Scenario is one replay scenario.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// RetryStatuses are passed to replay.WithRetryStatuses.
	RetryStatuses []int `yaml:"retry_statuses,omitempty"`

	// Online is the initial connectivity state.
	Online bool `yaml:"online,omitempty"`

	// Queue holds the records queued before the first step, in FIFO order.
	Queue []Record `yaml:"queue,omitempty"`

	// Responses scripts server replies per URL.
	Responses map[string][]Reply `yaml:"responses,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Record is a mutation to queue. The ID is assigned to the queued record.
type Record struct {
	ID          string            `yaml:"id"`
	Method      string            `yaml:"method"`
	URL         string            `yaml:"url"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	Body        *string           `yaml:"body,omitempty"`
	Description string            `yaml:"description,omitempty"`
}

// Reply is a scripted server reply: an HTTP status or a network failure.
type Reply struct {
	Status  int
	Network bool
}

// UnmarshalYAML accepts a status code or the word "network".
func (r *Reply) UnmarshalYAML(node *yaml.Node) error {
	if node.Value == "network" {
		*r = Reply{Network: true}
		return nil
	}
	status, err := strconv.Atoi(node.Value)
	if err != nil || status < 100 || status > 599 {
		return fmt.Errorf("line %d: reply must be a status code or \"network\", got %q", node.Line, node.Value)
	}
	*r = Reply{Status: status}
	return nil
}

// Step is one scenario action. Exactly one field must be set.
type Step struct {
	// Replay runs one pass directly on the engine.
	Replay *PassStep `yaml:"replay,omitempty"`

	// Enqueue queues a new record.
	Enqueue *Record `yaml:"enqueue,omitempty"`

	// Online restores connectivity. When the window was offline this fires
	// the sync trigger, and the pass it runs is checked against Expect.
	Online *PassStep `yaml:"online,omitempty"`

	// Offline drops connectivity.
	Offline bool `yaml:"offline,omitempty"`
}

// PassStep optionally checks the report of the pass a step runs.
type PassStep struct {
	Expect *PassExpect `yaml:"expect,omitempty"`
}

// PassExpect is a subset match on replay.Report; nil fields are not checked.
type PassExpect struct {
	Delivered *int  `yaml:"delivered,omitempty"`
	Rejected  *int  `yaml:"rejected,omitempty"`
	Retained  *int  `yaml:"retained,omitempty"`
	Halted    *bool `yaml:"halted,omitempty"`
}

// Assertion validates the final state of a scenario.
type Assertion struct {
	// Type is one of pending, requests, delivered_total, never_attempted.
	Type string `yaml:"type"`

	// IDs is used by pending (exact FIFO match) and never_attempted.
	IDs []string `yaml:"ids,omitempty"`

	// URLs is the exact request sequence (requests).
	URLs []string `yaml:"urls,omitempty"`

	// Count is the expected total of delivered mutations (delivered_total).
	Count int `yaml:"count,omitempty"`
}

const (
	AssertPending        = "pending"
	AssertRequests       = "requests"
	AssertDeliveredTotal = "delivered_total"
	AssertNeverAttempted = "never_attempted"
)

// LoadScenario reads and validates a scenario YAML file. Unknown fields are
// rejected so typos do not silently weaken a scenario.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	seen := make(map[string]bool)
	checkRecord := func(where string, r Record) error {
		switch {
		case r.ID == "":
			return fmt.Errorf("%s: id is required", where)
		case r.Method == "":
			return fmt.Errorf("%s: method is required", where)
		case r.URL == "":
			return fmt.Errorf("%s: url is required", where)
		case seen[r.ID]:
			return fmt.Errorf("%s: duplicate id %q", where, r.ID)
		}
		seen[r.ID] = true
		return nil
	}

	for i, r := range s.Queue {
		if err := checkRecord(fmt.Sprintf("queue[%d]", i), r); err != nil {
			return err
		}
	}

	for i, step := range s.Steps {
		set := 0
		if step.Replay != nil {
			set++
		}
		if step.Enqueue != nil {
			set++
			if err := checkRecord(fmt.Sprintf("steps[%d].enqueue", i), *step.Enqueue); err != nil {
				return err
			}
		}
		if step.Online != nil {
			set++
		}
		if step.Offline {
			set++
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of replay, enqueue, online, offline is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertPending, AssertRequests:
		// empty lists are meaningful: nothing pending, nothing sent
	case AssertDeliveredTotal:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertNeverAttempted:
		if len(a.IDs) == 0 {
			return fmt.Errorf("assertions[%d]: ids list is required for never_attempted", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// ids returns every record id in the order the scenario queues them.
func (s *Scenario) ids() []string {
	var ids []string
	for _, r := range s.Queue {
		ids = append(ids, r.ID)
	}
	for _, step := range s.Steps {
		if step.Enqueue != nil {
			ids = append(ids, step.Enqueue.ID)
		}
	}
	return ids
}
