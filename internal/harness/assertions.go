package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/bibcite/internal/citation"
	"github.com/roach88/bibcite/internal/engine"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", ev.Seq, describe(ev))
		}
	}
	return buf.String()
}

func describe(ev TraceEvent) string {
	switch ev.Type {
	case TraceEventApplied:
		if ev.Marker != "" {
			return fmt.Sprintf("%s %s %v", ev.Event, ev.Marker, ev.Keys)
		}
		return ev.Event
	case TracePushMarker:
		return fmt.Sprintf("push %s numbers=%v missing=%v", ev.Marker, ev.Numbers, ev.Missing)
	case TracePushRefs:
		return fmt.Sprintf("push references %v", ev.References)
	case TraceParseError:
		return "parse error " + ev.Error
	}
	return ev.Type
}

// EvaluateAssertions checks every assertion against the resolver's final
// state and the recorded trace. Returns one message per failure.
func EvaluateAssertions(r *engine.Resolver, result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertMarker:
			err = assertMarker(r, a)
		case AssertOrder:
			err = assertOrder(r, a)
		case AssertPending:
			err = assertPending(r, a)
		case AssertReferences:
			err = assertReferences(r, a)
		case AssertPushCount:
			err = assertPushCount(result, a)
		case AssertKnown:
			err = assertKnown(r, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if ae, ok := err.(*AssertionError); ok {
			ae.Trace = result.Trace
		}
		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

func assertMarker(r *engine.Resolver, a Assertion) error {
	m, ok := r.Marker(citation.MarkerID(a.Marker))
	if !ok {
		return &AssertionError{
			Type:     AssertMarker,
			Expected: fmt.Sprintf("marker %s", a.Marker),
			Actual:   "no such marker",
		}
	}
	if a.Resolved != nil && *a.Resolved != m.Resolved() {
		return &AssertionError{
			Type:     AssertMarker,
			Expected: fmt.Sprintf("marker %s resolved=%t", a.Marker, *a.Resolved),
			Actual:   fmt.Sprintf("resolved=%t", m.Resolved()),
		}
	}
	if a.Numbers != nil && !slices.Equal(a.Numbers, m.Numbers) {
		return &AssertionError{
			Type:     AssertMarker,
			Expected: fmt.Sprintf("marker %s numbers %v", a.Marker, a.Numbers),
			Actual:   fmt.Sprintf("numbers %v", m.Numbers),
		}
	}
	if a.Missing != nil && !slices.Equal(a.Missing, m.Missing()) {
		return &AssertionError{
			Type:     AssertMarker,
			Expected: fmt.Sprintf("marker %s missing %v", a.Marker, a.Missing),
			Actual:   fmt.Sprintf("missing %v", m.Missing()),
		}
	}
	return nil
}

func assertOrder(r *engine.Resolver, a Assertion) error {
	got := r.Order()
	if !equalKeys(a.Keys, got) {
		return &AssertionError{
			Type:     AssertOrder,
			Expected: fmt.Sprintf("order %v", a.Keys),
			Actual:   fmt.Sprintf("order %v", got),
		}
	}
	return nil
}

func assertPending(r *engine.Resolver, a Assertion) error {
	kind, _ := parseKind(a.Kind)
	var got []string
	for _, w := range r.Pending(kind) {
		got = append(got, string(w.Marker))
	}
	if !equalKeys(a.Markers, got) {
		return &AssertionError{
			Type:     AssertPending,
			Expected: fmt.Sprintf("%s %v", a.Kind, a.Markers),
			Actual:   fmt.Sprintf("%s %v", a.Kind, got),
		}
	}
	return nil
}

func assertReferences(r *engine.Resolver, a Assertion) error {
	var got []string
	for _, ref := range r.References() {
		got = append(got, ref.Key)
	}
	if !equalKeys(a.Keys, got) {
		return &AssertionError{
			Type:     AssertReferences,
			Expected: fmt.Sprintf("references %v", a.Keys),
			Actual:   fmt.Sprintf("references %v", got),
		}
	}
	return nil
}

func assertPushCount(result *Result, a Assertion) error {
	var got int
	if a.Marker == "" {
		for _, ev := range result.Trace {
			if ev.Type == TracePushRefs {
				got++
			}
		}
	} else {
		got = len(result.Pushes(a.Marker))
	}
	if got != a.Count {
		target := "references"
		if a.Marker != "" {
			target = "marker " + a.Marker
		}
		return &AssertionError{
			Type:     AssertPushCount,
			Expected: fmt.Sprintf("%s pushed %d times", target, a.Count),
			Actual:   fmt.Sprintf("pushed %d times", got),
		}
	}
	return nil
}

func assertKnown(r *engine.Resolver, a Assertion) error {
	if a.Order != nil && *a.Order != r.OrderKnown() {
		return &AssertionError{
			Type:     AssertKnown,
			Expected: fmt.Sprintf("order known=%t", *a.Order),
			Actual:   fmt.Sprintf("order known=%t", r.OrderKnown()),
		}
	}
	if a.Bibliography != nil && *a.Bibliography != r.BibliographyKnown() {
		return &AssertionError{
			Type:     AssertKnown,
			Expected: fmt.Sprintf("bibliography known=%t", *a.Bibliography),
			Actual:   fmt.Sprintf("bibliography known=%t", r.BibliographyKnown()),
		}
	}
	return nil
}

// equalKeys treats nil and empty as equal.
func equalKeys(want, got []string) bool {
	if len(want) == 0 && len(got) == 0 {
		return true
	}
	return slices.Equal(want, got)
}
