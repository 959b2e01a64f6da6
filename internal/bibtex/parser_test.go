package bibtex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bibcite/internal/ir"
)

func TestParse_SingleArticle(t *testing.T) {
	src := `@article{olah2016attention, author = {Olah, Chris and Carter, Shan}, title = {Attention and Augmented Recurrent Neural Networks}, year = {2016}}`

	entries, err := ParseEntries(src)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "olah2016attention", e.Key)
	assert.Equal(t, "article", e.Type)
	assert.Equal(t, "Olah, Chris and Carter, Shan", e.Author())
	assert.Equal(t, "Attention and Augmented Recurrent Neural Networks", e.Title())
	assert.Equal(t, "2016", e.Year())
}

func TestParse_Empty(t *testing.T) {
	for _, src := range []string{"", "   \n\t", "just some prose without directives"} {
		res, err := Parse(src)
		require.NoError(t, err)
		assert.Empty(t, res.Entries)
		assert.NotNil(t, res.Entries)
	}
}

func TestParse_SourceOrder(t *testing.T) {
	src := `
Leading prose is ignored.
@book{b, title = {B}}
% a line comment between entries
@article{a, title = {A}}
trailing words
@misc{c, title = "C"}
`
	entries, err := ParseEntries(src)
	require.NoError(t, err)

	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	assert.Equal(t, []string{"b", "a", "c"}, keys)
}

func TestParse_TrailingComma(t *testing.T) {
	entries, err := ParseEntries("@article{k, title = {T}, year = 2020,\n}")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2020", entries[0].Year())
}

func TestParse_EntryWithoutFields(t *testing.T) {
	entries, err := ParseEntries("@misc{lonely}")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "lonely", entries[0].Key)
	assert.Equal(t, 0, entries[0].Fields.Len())
}

func TestParse_EscapedBraceDoesNotClose(t *testing.T) {
	entries, err := ParseEntries(`@article{k, title = {a \} b}, year = 1999}`)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, `a \} b`, entries[0].Title())
	assert.Equal(t, "1999", entries[0].Year())
}

func TestParse_NestedBraces(t *testing.T) {
	entries, err := ParseEntries(`@article{k, title = {The {LaTeX} {\"o}ber {{deep}} value}}`)
	require.NoError(t, err)
	assert.Equal(t, `The {LaTeX} {\"o}ber {{deep}} value`, entries[0].Title())
}

func TestParse_QuotedWithEscapedQuote(t *testing.T) {
	entries, err := ParseEntries(`@article{k, title = "say \"hi\" {there}"}`)
	require.NoError(t, err)
	assert.Equal(t, `say \"hi\" {there}`, entries[0].Title())
}

func TestParse_Concatenation(t *testing.T) {
	entries, err := ParseEntries(`@article{k, title = {Part one} # " and " # {two}, month = jan # {~1}}`)
	require.NoError(t, err)
	assert.Equal(t, "Part one and two", entries[0].Title())

	month, ok := entries[0].Fields.Get("month")
	require.True(t, ok)
	assert.Equal(t, "jan~1", month)
}

func TestParse_BareValues(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"digits", "2016", "2016"},
		{"month", "feb", "feb"},
		{"month uppercase", "DEC", "dec"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := ParseEntries("@misc{k, v = " + tt.value + "}")
			require.NoError(t, err)
			got, _ := entries[0].Fields.Get("v")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_StringDefinitionsAreNotSubstituted(t *testing.T) {
	src := `@STRING{ jmlr = {Journal of Machine Learning Research} }
@article{k, journal = jmlr}`

	_, err := Parse(src)
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidValue, ErrorCodeOf(err))

	res, err := Parse(`@string{jmlr = "JMLR"} @article{k, journal = {jmlr}}`)
	require.NoError(t, err)
	require.Len(t, res.Strings, 1)
	assert.Equal(t, StringDef{Name: "jmlr", Value: "JMLR"}, res.Strings[0])
	assert.Equal(t, "jmlr", res.Entries[0].Fields.Field(ir.FieldJournal))
}

func TestParse_PreambleAndComment(t *testing.T) {
	src := `@preamble{ "\newcommand{\noopsort}[1]{}" }
@Comment{jabref-meta: {nested} stuff}
@article{k, title = {T}}`

	res, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, []string{`"\newcommand{\noopsort}[1]{}"`}, res.Preambles)
	assert.Equal(t, []string{"jabref-meta: {nested} stuff"}, res.Comments)
	require.Len(t, res.Entries, 1)
}

func TestParse_CaseFolding(t *testing.T) {
	entries, err := ParseEntries(`@ARTICLE{Key2020, TITLE = {T}, Journal = {J}}`)
	require.NoError(t, err)

	e := entries[0]
	assert.Equal(t, "Key2020", e.Key, "citation keys keep their case")
	assert.Equal(t, "article", e.Type)
	assert.Equal(t, "T", e.Title())
	assert.Equal(t, "J", e.Fields.Field(ir.FieldJournal))
}

func TestParse_WhitespaceAndComments(t *testing.T) {
	src := "@article\n{ k ,\n  % comment line\n  title\t=\n {T} ,\n  year = 2001 % trailing\n}"

	entries, err := ParseEntries(src)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "k", entries[0].Key)
	assert.Equal(t, "T", entries[0].Title())
	assert.Equal(t, "2001", entries[0].Year())
}

func TestParse_PercentInsideBodyIsLiteral(t *testing.T) {
	entries, err := ParseEntries(`@misc{k, note = {100% accurate}}`)
	require.NoError(t, err)
	note, _ := entries[0].Fields.Get("note")
	assert.Equal(t, "100% accurate", note)
}

func TestParse_DuplicateKeysKeepFirst(t *testing.T) {
	res, err := Parse(`@misc{k, title = {first}} @misc{k, title = {second}}`)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "first", res.Entries[0].Title())
	assert.Equal(t, []string{"k"}, res.Duplicates)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code ErrorCode
	}{
		{"unterminated brace", `@article{k, title = {Missing end`, ErrCodeUnterminatedValue},
		{"unterminated quote", `@article{k, title = "Missing end}`, ErrCodeUnterminatedValue},
		{"missing equals", `@article{k, title {T}}`, ErrCodeMissingEquals},
		{"invalid bare value", `@article{k, journal = nature}`, ErrCodeInvalidValue},
		{"missing open brace", `@article k, title = {T}}`, ErrCodeTokenMismatch},
		{"missing close brace", `@article{k, title = {T} year = 1}`, ErrCodeTokenMismatch},
		{"runaway key", `@article{k`, ErrCodeRunawayKey},
		{"empty value", `@article{k, title = , year = 1}`, ErrCodeTokenMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(tt.src)
			require.Error(t, err)
			assert.Nil(t, res, "no partial result on error")
			assert.True(t, IsParseError(err))
			assert.Equal(t, tt.code, ErrorCodeOf(err))
		})
	}
}

func TestParse_ErrorIsFatalForWholeInput(t *testing.T) {
	src := `@article{good, title = {Fine}}
@article{bad, title = {Broken`

	res, err := Parse(src)
	require.Error(t, err)
	assert.Nil(t, res)
}

func TestParseError_Position(t *testing.T) {
	_, err := Parse("@article{k,\n  title = {T},\n  journal = nature\n}")
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Line)
	assert.Equal(t, 13, pe.Column)
	assert.True(t, strings.HasPrefix(pe.Remaining, "nature"))
	assert.Contains(t, pe.Error(), "INVALID_VALUE")
}

func TestParseError_RemainingIsTruncated(t *testing.T) {
	_, err := Parse("@article{k, title = {" + strings.Repeat("x", 500))
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.LessOrEqual(t, len(pe.Remaining), remainingLimit+3)
}

func TestParse_Terminates(t *testing.T) {
	inputs := []string{
		"@", "@@@@", "@{", "@a{", "@a{k,", "@a{k, t=", "@a{k, t={", "@a{k, t=\"",
		"}}}}", "@a{k, t = {x} # ", "%%%%", "@a{k, t = 1 # 2 # jan}",
	}

	for _, src := range inputs {
		t.Run(src, func(t *testing.T) {
			// Must return (either way) rather than loop or panic
			assert.NotPanics(t, func() { _, _ = Parse(src) })
		})
	}
}
