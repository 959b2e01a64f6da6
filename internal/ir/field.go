package ir

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Field identifies a well-known bibliography field.
// Unrecognized field names are kept in Fields' extra map instead.
type Field int

const (
	// FieldUnknown is returned by ParseField for names outside the known set.
	FieldUnknown Field = iota
	FieldAuthor
	FieldTitle
	FieldYear
	FieldJournal
	FieldDOI
	FieldURL
	FieldVolume
	FieldIssue
	FieldPages
	FieldPublisher
	// FieldType holds the entry's directive type ("article", "book", ...).
	FieldType
)

var fieldNames = [...]string{
	FieldUnknown:   "",
	FieldAuthor:    "author",
	FieldTitle:     "title",
	FieldYear:      "year",
	FieldJournal:   "journal",
	FieldDOI:       "doi",
	FieldURL:       "url",
	FieldVolume:    "volume",
	FieldIssue:     "issue",
	FieldPages:     "pages",
	FieldPublisher: "publisher",
	FieldType:      "type",
}

// String returns the lower-case field name.
func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// ParseField maps a field name to its Field, ignoring case.
// Returns FieldUnknown if the name is not a well-known field.
func ParseField(name string) Field {
	name = strings.ToLower(name)
	for i := FieldAuthor; int(i) < len(fieldNames); i++ {
		if fieldNames[i] == name {
			return i
		}
	}
	return FieldUnknown
}

// KnownFields returns all well-known fields in declaration order.
func KnownFields() []Field {
	fields := make([]Field, 0, len(fieldNames)-1)
	for i := FieldAuthor; int(i) < len(fieldNames); i++ {
		fields = append(fields, i)
	}
	return fields
}

// Fields is a typed field store for one entry.
//
// Well-known fields live in a Field-keyed map; anything else lands in the
// extra map under its lower-cased name. The zero value is ready to use.
type Fields struct {
	known map[Field]string
	extra map[string]string
}

// FieldsFromMap builds Fields from a plain name → value map.
func FieldsFromMap(m map[string]string) Fields {
	var f Fields
	for name, value := range m {
		f.Set(name, value)
	}
	return f
}

// Set stores value under name. The name is lower-cased; a later Set with the
// same name (in any case) replaces the earlier value.
func (f *Fields) Set(name, value string) {
	if field := ParseField(name); field != FieldUnknown {
		f.SetField(field, value)
		return
	}
	if f.extra == nil {
		f.extra = make(map[string]string)
	}
	f.extra[strings.ToLower(name)] = value
}

// SetField stores value under a well-known field.
func (f *Fields) SetField(field Field, value string) {
	if field == FieldUnknown {
		return
	}
	if f.known == nil {
		f.known = make(map[Field]string)
	}
	f.known[field] = value
}

// Get returns the value stored under name, ignoring case.
func (f Fields) Get(name string) (string, bool) {
	if field := ParseField(name); field != FieldUnknown {
		v, ok := f.known[field]
		return v, ok
	}
	v, ok := f.extra[strings.ToLower(name)]
	return v, ok
}

// Field returns the value of a well-known field, or "" if unset.
func (f Fields) Field(field Field) string {
	return f.known[field]
}

// Has reports whether a well-known field is set.
func (f Fields) Has(field Field) bool {
	_, ok := f.known[field]
	return ok
}

// Extra returns a copy of the unrecognized fields.
func (f Fields) Extra() map[string]string {
	return maps.Clone(f.extra)
}

// Len returns the total number of fields.
func (f Fields) Len() int {
	return len(f.known) + len(f.extra)
}

// Names returns all field names, sorted.
func (f Fields) Names() []string {
	names := make([]string, 0, f.Len())
	for field := range f.known {
		names = append(names, field.String())
	}
	for name := range f.extra {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Map flattens the fields into a fresh name → value map.
func (f Fields) Map() map[string]string {
	m := make(map[string]string, f.Len())
	for field, v := range f.known {
		m[field.String()] = v
	}
	for name, v := range f.extra {
		m[name] = v
	}
	return m
}

// Clone returns a deep copy.
func (f Fields) Clone() Fields {
	return Fields{known: maps.Clone(f.known), extra: maps.Clone(f.extra)}
}

// Equal reports whether both stores hold the same names and values.
func (f Fields) Equal(other Fields) bool {
	return maps.Equal(f.known, other.known) && maps.Equal(f.extra, other.extra)
}

// Each calls fn for every field in sorted name order.
func (f Fields) Each(fn func(name, value string)) {
	m := f.Map()
	for _, name := range f.Names() {
		fn(name, m[name])
	}
}

// MarshalJSON renders the fields as a flat JSON object.
// encoding/json sorts map keys, so output is deterministic.
func (f Fields) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Map())
}

// UnmarshalJSON reads a flat JSON object of string values.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("unmarshal fields: %w", err)
	}
	*f = FieldsFromMap(m)
	return nil
}

// CanonicalValue returns the fields as a map for MarshalCanonical.
func (f Fields) CanonicalValue() any {
	m := make(map[string]any, f.Len())
	for name, v := range f.Map() {
		m[name] = v
	}
	return m
}
