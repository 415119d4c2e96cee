package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "mixed_outcomes.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "mixed_outcomes", s.Name)
	require.Len(t, s.Queue, 4)
	assert.Equal(t, "https://api.example.com/A", s.Queue[0].URL)
	assert.Equal(t, []Reply{{Status: 500}}, s.Responses["https://api.example.com/B"])
	assert.Equal(t, []Reply{{Network: true}}, s.Responses["https://api.example.com/C"])
	require.Len(t, s.Steps, 1)
	require.NotNil(t, s.Steps[0].Replay)
	require.NotNil(t, s.Steps[0].Replay.Expect)
	assert.Equal(t, 1, *s.Steps[0].Replay.Expect.Delivered)
	assert.True(t, *s.Steps[0].Replay.Expect.Halted)
	assert.Equal(t, []string{"A", "B", "C", "D"}, s.ids())
}

func TestLoadScenario_Missing(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestLoadScenario_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: tiny
description: one replay
steps:
  - replay: {}
assertions:
  - type: pending
`), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Empty(t, s.Queue)
	assert.NotNil(t, s.Steps[0].Replay)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown field",
			doc:  "name: x\ndescription: y\nstep: []\n",
			want: "failed to parse YAML",
		},
		{
			name: "missing name",
			doc:  "description: y\nsteps: [{replay: {}}]\nassertions: [{type: pending}]\n",
			want: "name is required",
		},
		{
			name: "missing steps",
			doc:  "name: x\ndescription: y\nassertions: [{type: pending}]\n",
			want: "steps list is required",
		},
		{
			name: "two actions in one step",
			doc:  "name: x\ndescription: y\nsteps: [{replay: {}, offline: true}]\nassertions: [{type: pending}]\n",
			want: "exactly one of",
		},
		{
			name: "duplicate id",
			doc: `name: x
description: y
queue: [{id: a, method: POST, url: u}]
steps: [{enqueue: {id: a, method: POST, url: u}}]
assertions: [{type: pending}]
`,
			want: `duplicate id "a"`,
		},
		{
			name: "record without url",
			doc:  "name: x\ndescription: y\nqueue: [{id: a, method: POST}]\nsteps: [{replay: {}}]\nassertions: [{type: pending}]\n",
			want: "queue[0]: url is required",
		},
		{
			name: "bad reply",
			doc:  "name: x\ndescription: y\nresponses: {u: [teapot]}\nsteps: [{replay: {}}]\nassertions: [{type: pending}]\n",
			want: "reply must be a status code",
		},
		{
			name: "unknown assertion",
			doc:  "name: x\ndescription: y\nsteps: [{replay: {}}]\nassertions: [{type: final_state}]\n",
			want: `unknown assertion type "final_state"`,
		},
		{
			name: "never_attempted without ids",
			doc:  "name: x\ndescription: y\nsteps: [{replay: {}}]\nassertions: [{type: never_attempted}]\n",
			want: "ids list is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
