package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bibcite/internal/engine"
)

// Scenario defines a resolution scenario: a named set of bibliographies,
// the notifications delivered to the resolver, and assertions on the
// outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// ContextID fixes the resolution context ID. Defaults to "test-context".
	ContextID string `yaml:"context_id,omitempty"`

	// Bibliographies maps a name to BibTeX text. Steps load them by name.
	Bibliographies map[string]string `yaml:"bibliographies,omitempty"`

	// Steps are delivered to the resolver in order.
	Steps []Step `yaml:"steps"`

	// Assertions are checked against the final state and the trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one notification. Exactly one of Marker, Remove, Settle or
// Bibtex is set.
type Step struct {
	// Marker reports a marker created or changed.
	Marker *MarkerStep `yaml:"marker,omitempty"`

	// Remove names a marker removed from the document.
	Remove string `yaml:"remove,omitempty"`

	// Settle reports that the document's markers are stable.
	Settle bool `yaml:"settle,omitempty"`

	// Bibtex names an entry of Scenario.Bibliographies to parse and load.
	Bibtex string `yaml:"bibtex,omitempty"`

	// ExpectError is the parse error code the Bibtex step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// MarkerStep describes a marker change.
type MarkerStep struct {
	ID string `yaml:"id"`

	// Keys is the comma-separated key attribute, as written in the document.
	Keys string `yaml:"keys"`

	// Before names the marker this one precedes. Empty appends.
	Before string `yaml:"before,omitempty"`
}

// Assertion validates final state or trace contents.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Marker names the marker (marker, push_count). An empty marker in a
	// push_count assertion counts reference list pushes.
	Marker string `yaml:"marker,omitempty"`

	// Numbers are the expected citation numbers (marker).
	Numbers []int `yaml:"numbers,omitempty"`

	// Missing are the expected keys without an entry (marker).
	Missing []string `yaml:"missing,omitempty"`

	// Resolved is the expected resolved flag (marker).
	Resolved *bool `yaml:"resolved,omitempty"`

	// Keys is the expected citation order (order) or reference keys
	// (references).
	Keys []string `yaml:"keys,omitempty"`

	// Kind is the pending queue (pending): waiting_on_order or
	// waiting_on_bibliography.
	Kind string `yaml:"kind,omitempty"`

	// Markers are the expected queued markers in FIFO order (pending).
	Markers []string `yaml:"markers,omitempty"`

	// Count is the expected number of pushes (push_count).
	Count int `yaml:"count,omitempty"`

	// Order and Bibliography are the expected known flags (known).
	Order        *bool `yaml:"order,omitempty"`
	Bibliography *bool `yaml:"bibliography,omitempty"`
}

// Assertion type constants.
const (
	AssertMarker     = "marker"
	AssertOrder      = "order"
	AssertPending    = "pending"
	AssertReferences = "references"
	AssertPushCount  = "push_count"
	AssertKnown      = "known"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
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

	for i, step := range s.Steps {
		if err := validateStep(i, &step, s.Bibliographies); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step, bibs map[string]string) error {
	set := 0
	if st.Marker != nil {
		set++
	}
	if st.Remove != "" {
		set++
	}
	if st.Settle {
		set++
	}
	if st.Bibtex != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of marker, remove, settle, bibtex is required", index)
	}

	if st.Marker != nil && st.Marker.ID == "" {
		return fmt.Errorf("steps[%d].marker: id is required", index)
	}
	if st.Bibtex != "" {
		if _, ok := bibs[st.Bibtex]; !ok {
			return fmt.Errorf("steps[%d]: unknown bibliography %q", index, st.Bibtex)
		}
	}
	if st.ExpectError != "" && st.Bibtex == "" {
		return fmt.Errorf("steps[%d]: expect_error is only valid on bibtex steps", index)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertMarker:
		if a.Marker == "" {
			return fmt.Errorf("assertions[%d]: marker is required for marker", index)
		}
	case AssertOrder, AssertReferences:
	case AssertPending:
		if !validKind(a.Kind) {
			return fmt.Errorf("assertions[%d]: kind must be %s or %s", index,
				engine.WaitingOnOrder, engine.WaitingOnBibliography)
		}
	case AssertPushCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for push_count", index)
		}
	case AssertKnown:
		if a.Order == nil && a.Bibliography == nil {
			return fmt.Errorf("assertions[%d]: order or bibliography is required for known", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func validKind(kind string) bool {
	_, ok := parseKind(kind)
	return ok
}

func parseKind(kind string) (engine.PendingKind, bool) {
	switch kind {
	case engine.WaitingOnOrder.String():
		return engine.WaitingOnOrder, true
	case engine.WaitingOnBibliography.String():
		return engine.WaitingOnBibliography, true
	}
	return 0, false
}
