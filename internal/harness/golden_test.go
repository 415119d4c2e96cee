package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoldenScenarios(t *testing.T) {
	for _, name := range []string{"mixed_outcomes", "reconnect_trigger"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestAssertGolden_UsesScenarioName(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "mixed_outcomes.yaml"))
	require.NoError(t, err)
	result, err := Run(scenario)
	require.NoError(t, err)

	require.NoError(t, AssertGolden(t, "mixed_outcomes", result))
}
