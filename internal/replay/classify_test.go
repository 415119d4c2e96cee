package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		status int
		want   Outcome
	}{
		{200, OutcomeDelivered},
		{201, OutcomeDelivered},
		{204, OutcomeDelivered},
		{299, OutcomeDelivered},
		{400, OutcomeRejected},
		{404, OutcomeRejected},
		{408, OutcomeRejected},
		{429, OutcomeRejected},
		{499, OutcomeRejected},
		{500, OutcomeRetry},
		{503, OutcomeRetry},
		{101, OutcomeRetry},
		{304, OutcomeRetry},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.status), "status %d", tt.status)
	}
}

func TestClassifier_RetryStatuses(t *testing.T) {
	c := NewClassifier(408, 429)
	assert.Equal(t, OutcomeRetry, c.Classify(408))
	assert.Equal(t, OutcomeRetry, c.Classify(429))
	assert.Equal(t, OutcomeRejected, c.Classify(404))
	assert.Equal(t, OutcomeDelivered, c.Classify(200))
}

func TestOutcome_MarshalText(t *testing.T) {
	b, err := OutcomeHalted.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "halted", string(b))
	assert.Equal(t, "unknown", Outcome(0).String())
}

func TestOutcome_UnmarshalText(t *testing.T) {
	var o Outcome
	require.NoError(t, o.UnmarshalText([]byte("retry")))
	assert.Equal(t, OutcomeRetry, o)
	assert.Error(t, o.UnmarshalText([]byte("lost")))
}
