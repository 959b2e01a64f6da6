package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		name string
		want Field
	}{
		{"author", FieldAuthor},
		{"TITLE", FieldTitle},
		{"Doi", FieldDOI},
		{"type", FieldType},
		{"note", FieldUnknown},
		{"", FieldUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseField(tt.name))
		})
	}
}

func TestFieldString(t *testing.T) {
	assert.Equal(t, "publisher", FieldPublisher.String())
	assert.Equal(t, "Field(99)", Field(99).String())
	assert.Len(t, KnownFields(), 11)
}

func TestFieldsRouting(t *testing.T) {
	var f Fields
	f.Set("Author", "Olah, Chris")
	f.Set("NOTE", "extra")

	assert.Equal(t, "Olah, Chris", f.Field(FieldAuthor))
	assert.True(t, f.Has(FieldAuthor))
	assert.False(t, f.Has(FieldTitle))

	v, ok := f.Get("note")
	require.True(t, ok)
	assert.Equal(t, "extra", v)
	assert.Equal(t, map[string]string{"note": "extra"}, f.Extra())
	assert.Equal(t, []string{"author", "note"}, f.Names())
	assert.Equal(t, 2, f.Len())
}

func TestFieldsSetReplacesCaseInsensitively(t *testing.T) {
	var f Fields
	f.Set("Keywords", "a")
	f.Set("keywords", "b")

	v, _ := f.Get("KEYWORDS")
	assert.Equal(t, "b", v)
	assert.Equal(t, 1, f.Len())
}

func TestFieldsCloneIsIndependent(t *testing.T) {
	var f Fields
	f.Set("title", "one")
	c := f.Clone()
	c.Set("title", "two")

	assert.Equal(t, "one", f.Field(FieldTitle))
	assert.False(t, f.Equal(c))
}

func TestFieldsJSON(t *testing.T) {
	f := FieldsFromMap(map[string]string{"year": "2016", "howpublished": "web"})

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"year":"2016","howpublished":"web"}`, string(data))

	var back Fields
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, f.Equal(back))
}

func TestEntriesEqual(t *testing.T) {
	a := &Entry{Key: "a", Type: "article", Fields: FieldsFromMap(map[string]string{"title": "T"})}
	b := &Entry{Key: "a", Type: "article", Fields: FieldsFromMap(map[string]string{"title": "T"})}
	c := &Entry{Key: "a", Type: "article", Fields: FieldsFromMap(map[string]string{"title": "U"})}

	assert.True(t, EntriesEqual(nil, nil))
	assert.True(t, EntriesEqual(a, b))
	assert.False(t, EntriesEqual(a, c))
	assert.False(t, EntriesEqual(a, nil))
}
