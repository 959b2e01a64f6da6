package bibliography

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRun = regexp.MustCompile(`[\t\n\r ]+`)

	// {\"o}, {\" o}, {\'e}, {\v s}, ... → the bare letter
	accentMacro = regexp.MustCompile(`\{\\["^` + "`" + `.'acu~Hvs] ?([a-zA-Z])\}`)

	// {\i}, {\o} → the bare letter
	letterMacro = regexp.MustCompile(`\{\\([a-zA-Z])\}`)
)

// Normalize cleans one raw field value.
//
// Whitespace runs collapse to a single space, fixed accent macros such as
// {\"o} reduce to their base letter, remaining braces are stripped, and the
// result is NFC-normalized. Normalize is idempotent.
func Normalize(value string) string {
	v := whitespaceRun.ReplaceAllString(value, " ")
	v = accentMacro.ReplaceAllString(v, "$1")
	v = letterMacro.ReplaceAllString(v, "$1")
	v = strings.NewReplacer("{", "", "}", "").Replace(v)
	// Stripping braces can leave adjacent spaces behind.
	v = whitespaceRun.ReplaceAllString(v, " ")
	return norm.NFC.String(v)
}
