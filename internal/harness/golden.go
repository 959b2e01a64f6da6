package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/bibcite/internal/ir"
)

// TraceSnapshot is the golden-file form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	ContextID    string       `json:"context_id,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// CanonicalValue implements ir.Canonicalizer.
func (s *TraceSnapshot) CanonicalValue() any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		trace[i] = ev.CanonicalValue()
	}
	m := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
	}
	if s.ContextID != "" {
		m["context_id"] = s.ContextID
	}
	return m
}

// MarshalTrace renders a result's trace as canonical JSON.
func MarshalTrace(scenarioName, contextID string, result *Result) ([]byte, error) {
	snap := &TraceSnapshot{
		ScenarioName: scenarioName,
		ContextID:    contextID,
		Trace:        result.Trace,
	}
	return ir.MarshalCanonical(snap)
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
	return result, assertGolden(t, scenario.Name, scenario.ContextID, result)
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()
	return assertGolden(t, scenarioName, "", result)
}

func assertGolden(t *testing.T, name, contextID string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(name, contextID, result)
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
