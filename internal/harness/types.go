package harness

import "github.com/roach88/bibcite/internal/engine"

// Trace event types.
const (
	TraceEventApplied = "event"
	TracePushMarker   = "push_marker"
	TracePushRefs     = "push_references"
	TraceParseError   = "parse_error"
)

// TraceEvent is one line of a scenario trace: an event the resolver
// accepted, something it pushed, or a bibliography that failed to parse.
type TraceEvent struct {
	Type       string   `json:"type"`
	Seq        int64    `json:"seq"`
	Event      string   `json:"event,omitempty"`
	Marker     string   `json:"marker,omitempty"`
	Keys       []string `json:"keys,omitempty"`
	Numbers    []int    `json:"numbers,omitempty"`
	Missing    []string `json:"missing,omitempty"`
	References []string `json:"references,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// CanonicalValue returns the event for MarshalCanonical, omitting empty
// fields.
func (e TraceEvent) CanonicalValue() any {
	m := map[string]any{
		"type": e.Type,
		"seq":  e.Seq,
	}
	if e.Event != "" {
		m["event"] = e.Event
	}
	if e.Marker != "" {
		m["marker"] = e.Marker
	}
	if e.Keys != nil {
		m["keys"] = e.Keys
	}
	if e.Numbers != nil {
		m["numbers"] = e.Numbers
	}
	if len(e.Missing) > 0 {
		m["missing"] = e.Missing
	}
	if e.References != nil {
		m["references"] = e.References
	}
	if e.Error != "" {
		m["error"] = e.Error
	}
	return m
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held and no step failed unexpectedly.
	Pass bool `json:"pass"`

	// Trace records accepted events and resolver pushes in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion and step failure messages.
	Errors []string `json:"errors,omitempty"`

	// Snapshot is the resolver state after the last step.
	Snapshot *engine.Snapshot `json:"snapshot,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) add(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}

// Pushes returns the push_marker events for marker, in order.
func (r *Result) Pushes(marker string) []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Type == TracePushMarker && e.Marker == marker {
			out = append(out, e)
		}
	}
	return out
}
