package harness

import (
	"fmt"
	"log/slog"

	"github.com/roach88/bibcite/internal/bibliography"
	"github.com/roach88/bibcite/internal/bibtex"
	"github.com/roach88/bibcite/internal/citation"
	"github.com/roach88/bibcite/internal/engine"
	"github.com/roach88/bibcite/internal/testutil"
)

// Harness drives one Resolver through a scenario and records its trace.
type Harness struct {
	resolver *engine.Resolver
	clock    *testutil.DeterministicClock
	result   *Result
	logger   *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes resolver logs to l. Default: discarded.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh Resolver with a deterministic clock,
// so seqs in the trace start at 1. The returned error is non-nil only when
// the scenario could not be executed at all; failed steps and assertions
// are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		clock:  testutil.NewDeterministicClock(),
		result: NewResult(),
		logger: engine.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}

	ids := testutil.NewFixedIDGenerator(scenario.ContextID)
	h.resolver = engine.New(
		engine.WithIDGenerator(ids),
		engine.WithClock(h.clock),
		engine.WithLogger(h.logger),
		engine.WithMarkerSink(engine.MarkerSinkFunc(h.pushMarker)),
		engine.WithReferenceSink(engine.ReferenceSinkFunc(h.pushReferences)),
	)

	for i, step := range scenario.Steps {
		if err := h.executeStep(scenario, step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for _, msg := range EvaluateAssertions(h.resolver, h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}

	snap := h.resolver.Snapshot()
	h.result.Snapshot = &snap
	return h.result, nil
}

func (h *Harness) executeStep(scenario *Scenario, step Step) error {
	switch {
	case step.Marker != nil:
		keys := citation.ParseKeys(step.Marker.Keys)
		return h.apply(engine.MarkerChanged(
			citation.MarkerID(step.Marker.ID), keys, citation.MarkerID(step.Marker.Before)))
	case step.Remove != "":
		return h.apply(engine.MarkerRemoved(citation.MarkerID(step.Remove)))
	case step.Settle:
		return h.apply(engine.DocumentSettled())
	case step.Bibtex != "":
		return h.loadBibtex(step.Bibtex, scenario.Bibliographies[step.Bibtex], step.ExpectError)
	default:
		return fmt.Errorf("empty step")
	}
}

// apply records the event, then runs it. Pushes made during the pass land
// after the event in the trace.
func (h *Harness) apply(ev engine.Event) error {
	mark := len(h.result.Trace)
	h.result.add(TraceEvent{
		Type:   TraceEventApplied,
		Seq:    h.clock.Current() + 1,
		Event:  ev.Type.String(),
		Marker: string(ev.Marker),
		Keys:   ev.Keys,
	})
	if err := h.resolver.Recompute(ev); err != nil {
		h.result.Trace = h.result.Trace[:mark]
		return err
	}
	return nil
}

func (h *Harness) loadBibtex(name, text, expectError string) error {
	res, err := bibtex.Parse(text)
	if err != nil {
		code := string(bibtex.ErrorCodeOf(err))
		h.result.add(TraceEvent{
			Type:  TraceParseError,
			Seq:   h.clock.Current(),
			Error: code,
		})
		switch {
		case expectError == "":
			h.result.AddError(fmt.Sprintf("bibliography %q: unexpected parse error: %v", name, err))
		case expectError != code:
			h.result.AddError(fmt.Sprintf("bibliography %q: expected error %s, got %s", name, expectError, code))
		}
		return nil
	}
	if expectError != "" {
		h.result.AddError(fmt.Sprintf("bibliography %q: expected error %s, parsed %d entries", name, expectError, len(res.Entries)))
	}
	return h.apply(engine.BibliographyParsed(bibliography.New(res.Entries)))
}

func (h *Harness) pushMarker(seq int64, m citation.Marker) {
	h.result.add(TraceEvent{
		Type:    TracePushMarker,
		Seq:     seq,
		Marker:  string(m.ID),
		Keys:    m.Keys,
		Numbers: m.Numbers,
		Missing: m.Missing(),
	})
}

func (h *Harness) pushReferences(seq int64, refs []engine.Reference) {
	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = ref.Key
	}
	h.result.add(TraceEvent{
		Type:       TracePushRefs,
		Seq:        seq,
		References: keys,
	})
}
