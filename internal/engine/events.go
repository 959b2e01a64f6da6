package engine

import (
	"github.com/roach88/bibcite/internal/bibliography"
	"github.com/roach88/bibcite/internal/citation"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventMarkerChanged reports a marker created or its keys changed.
	EventMarkerChanged EventType = iota + 1
	// EventMarkerRemoved reports a marker removed from the document.
	EventMarkerRemoved
	// EventDocumentSettled reports that the set of markers is stable and
	// the citation order may be computed.
	EventDocumentSettled
	// EventBibliographyParsed reports a successfully parsed bibliography.
	EventBibliographyParsed
)

var eventTypeNames = map[EventType]string{
	EventMarkerChanged:      "marker_changed",
	EventMarkerRemoved:      "marker_removed",
	EventDocumentSettled:    "document_settled",
	EventBibliographyParsed: "bibliography_parsed",
}

// String returns the event type's snake_case name.
func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseEventType maps a snake_case name back to its EventType.
func ParseEventType(name string) (EventType, bool) {
	for t, n := range eventTypeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Event is one notification for Recompute.
//
// Marker, Keys and Before are used by marker events; Bibliography by
// EventBibliographyParsed.
type Event struct {
	Type         EventType
	Marker       citation.MarkerID
	Keys         []string
	Before       citation.MarkerID
	Bibliography *bibliography.Store
}

// MarkerChanged builds an EventMarkerChanged. before names the marker this
// one precedes in the document; empty means "append".
func MarkerChanged(id citation.MarkerID, keys []string, before citation.MarkerID) Event {
	return Event{Type: EventMarkerChanged, Marker: id, Keys: keys, Before: before}
}

// MarkerRemoved builds an EventMarkerRemoved.
func MarkerRemoved(id citation.MarkerID) Event {
	return Event{Type: EventMarkerRemoved, Marker: id}
}

// DocumentSettled builds an EventDocumentSettled.
func DocumentSettled() Event {
	return Event{Type: EventDocumentSettled}
}

// BibliographyParsed builds an EventBibliographyParsed.
func BibliographyParsed(store *bibliography.Store) Event {
	return Event{Type: EventBibliographyParsed, Bibliography: store}
}

func (ev Event) validate() error {
	switch ev.Type {
	case EventMarkerChanged, EventMarkerRemoved:
		if ev.Marker == "" {
			return newMissingMarker(ev.Type)
		}
	case EventDocumentSettled:
	case EventBibliographyParsed:
		if ev.Bibliography == nil {
			return newInvalidEvent(ev.Type, "bibliography event without a store")
		}
	default:
		return newInvalidEvent(ev.Type, "unknown event type %d", int(ev.Type))
	}
	return nil
}
