package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios", "")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/bibliography_replaced.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalTrace(scenario.Name, "", first)
	require.NoError(t, err)
	b, err := MarshalTrace(scenario.Name, "", second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

const arrivalBibs = `
bibliographies:
  main: |
    @misc{a, title = {A}}
    @misc{b, title = {B}}
`

func TestRun_ArrivalOrderIndependent(t *testing.T) {
	orders := map[string]string{
		"bib_first": `
  - bibtex: main
  - marker: {id: m1, keys: "b"}
  - marker: {id: m2, keys: "a, b"}
  - settle: true`,
		"bib_between": `
  - marker: {id: m1, keys: "b"}
  - marker: {id: m2, keys: "a, b"}
  - bibtex: main
  - settle: true`,
		"bib_last": `
  - marker: {id: m1, keys: "b"}
  - marker: {id: m2, keys: "a, b"}
  - settle: true
  - bibtex: main`,
	}

	var hashes []string
	for name, steps := range orders {
		doc := "name: " + name + "\ndescription: arrival order\n" + arrivalBibs +
			"steps:" + steps + "\nassertions:\n  - type: marker\n    marker: m2\n    numbers: [1, 0]\n"
		scenario, err := ParseScenario([]byte(doc))
		require.NoError(t, err, name)

		result, err := Run(scenario)
		require.NoError(t, err, name)
		assert.True(t, result.Pass, "%s: %v", name, result.Errors)
		require.NotNil(t, result.Snapshot)

		h, err := result.Snapshot.Hash()
		require.NoError(t, err)
		hashes = append(hashes, h)
	}

	for _, h := range hashes[1:] {
		assert.Equal(t, hashes[0], h)
	}
}

func TestRun_ContextID(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: ctx
description: fixed context
context_id: doc-42
steps:
  - settle: true
assertions:
  - type: known
    order: true
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Equal(t, "doc-42", result.Snapshot.ContextID)
	assert.Equal(t, int64(1), result.Snapshot.Seq)
}

func TestRun_UnexpectedParseError(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: unexpected
description: parse error without expect_error
bibliographies:
  bad: "@misc{k, title = {open"
steps:
  - bibtex: bad
assertions:
  - type: known
    bibliography: false
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected parse error")
	require.Len(t, result.Trace, 1)
	assert.Equal(t, TraceParseError, result.Trace[0].Type)
	assert.Equal(t, int64(0), result.Trace[0].Seq)
}

func TestRun_ExpectedErrorNotRaised(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: no_error
description: expect_error on a valid bibliography
bibliographies:
  ok: "@misc{k, title = {K}}"
steps:
  - bibtex: ok
    expect_error: UNTERMINATED_VALUE
assertions:
  - type: known
    bibliography: true
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected error UNTERMINATED_VALUE")
}

func TestRun_WrongErrorCode(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong_code
description: expect_error with a different code
bibliographies:
  bad: "@misc{k, title = {open"
steps:
  - bibtex: bad
    expect_error: MISSING_EQUALS
assertions:
  - type: known
    bibliography: false
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "got UNTERMINATED_VALUE")
}

func TestRun_InvalidEventAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_step",
		Description: "marker step without id",
		Steps:       []Step{{Marker: &MarkerStep{Keys: "a"}}},
		Assertions:  []Assertion{{Type: AssertOrder}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps[0]")
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
