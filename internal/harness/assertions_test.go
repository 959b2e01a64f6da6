package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runOrderScenario(t *testing.T, assertions string) *Result {
	t.Helper()
	scenario, err := ParseScenario([]byte(`
name: assertions
description: assertion evaluation
bibliographies:
  main: "@misc{a, title = {A}}"
steps:
  - marker: {id: m1, keys: "a, z"}
  - marker: {id: m2, keys: "a"}
  - settle: true
  - bibtex: main
  - marker: {id: m3, keys: "q"}
assertions:
` + assertions))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	return result
}

func TestAssertions_Pass(t *testing.T) {
	result := runOrderScenario(t, `
  - type: marker
    marker: m1
    resolved: true
    numbers: [0, 1]
    missing: [z]
  - type: order
    keys: [a, z]
  - type: references
    keys: [a, z]
  - type: pending
    kind: waiting_on_bibliography
    markers: []
  - type: marker
    marker: m3
    numbers: [-1]
    missing: [q]
  - type: push_count
    marker: m1
    count: 1
  - type: push_count
    count: 1
  - type: known
    order: true
    bibliography: true
`)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestAssertions_Fail(t *testing.T) {
	tests := []struct {
		name      string
		assertion string
		want      string
	}{
		{
			name:      "unknown marker",
			assertion: "  - {type: marker, marker: m9}\n",
			want:      "no such marker",
		},
		{
			name:      "wrong numbers",
			assertion: "  - {type: marker, marker: m2, numbers: [1]}\n",
			want:      "marker m2 numbers [1]",
		},
		{
			name:      "wrong missing",
			assertion: "  - {type: marker, marker: m2, missing: [a]}\n",
			want:      "marker m2 missing [a]",
		},
		{
			name:      "wrong resolved",
			assertion: "  - {type: marker, marker: m2, resolved: false}\n",
			want:      "resolved=true",
		},
		{
			name:      "wrong order",
			assertion: "  - {type: order, keys: [z, a]}\n",
			want:      "order [z a]",
		},
		{
			name:      "wrong references",
			assertion: "  - {type: references, keys: [a]}\n",
			want:      "references [a z]",
		},
		{
			name:      "wrong pending",
			assertion: "  - {type: pending, kind: waiting_on_order, markers: [m1]}\n",
			want:      "waiting_on_order [m1]",
		},
		{
			name:      "wrong push count",
			assertion: "  - {type: push_count, marker: m2, count: 3}\n",
			want:      "marker m2 pushed 3 times",
		},
		{
			name:      "wrong known",
			assertion: "  - {type: known, order: false}\n",
			want:      "order known=false",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := runOrderScenario(t, tt.assertion)
			assert.False(t, result.Pass)
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0], tt.want)
			assert.Contains(t, result.Errors[0], "Full trace:")
		})
	}
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertOrder,
		Expected: "order [a]",
		Actual:   "order []",
		Trace: []TraceEvent{
			{Type: TraceEventApplied, Seq: 1, Event: "document_settled"},
			{Type: TracePushRefs, Seq: 1, References: []string{}},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: order")
	assert.Contains(t, msg, "Expected: order [a]")
	assert.Contains(t, msg, "Actual: order []")
	assert.Contains(t, msg, "[1] document_settled")
	assert.Contains(t, msg, "[1] push references []")
}
