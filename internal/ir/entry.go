package ir

// Entry is one bibliography record.
//
// Key is the citation key used in documents, Type the directive type
// ("article", "inproceedings", ...). Entries are immutable once a
// bibliography is built: readers share pointers to the same Entry.
type Entry struct {
	Key    string `json:"key"`
	Type   string `json:"type"`
	Fields Fields `json:"fields"`
}

// Equal reports whether two entries carry the same key, type, and fields.
func (e Entry) Equal(other Entry) bool {
	return e.Key == other.Key && e.Type == other.Type && e.Fields.Equal(other.Fields)
}

// Author returns the author field.
func (e Entry) Author() string { return e.Fields.Field(FieldAuthor) }

// Title returns the title field.
func (e Entry) Title() string { return e.Fields.Field(FieldTitle) }

// Year returns the year field.
func (e Entry) Year() string { return e.Fields.Field(FieldYear) }

// CanonicalValue returns the entry as a map for MarshalCanonical.
func (e Entry) CanonicalValue() any {
	return map[string]any{
		"key":    e.Key,
		"type":   e.Type,
		"fields": e.Fields.CanonicalValue(),
	}
}

// EntriesEqual compares two entry pointers by content.
// Two nil pointers are equal; nil never equals a non-nil entry.
func EntriesEqual(a, b *Entry) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a == b || a.Equal(*b)
}
