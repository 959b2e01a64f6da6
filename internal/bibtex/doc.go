// Package bibtex parses BibTeX bibliography text into ordered entries.
//
// The parser is a single-pass recursive descent over an explicit cursor
// with no backtracking. Grammar (informal):
//
//	bibtex       := directive*
//	directive    := '@' key '{' body '}'
//	body         := string_def | preamble | comment | entry
//	entry        := key ',' field (',' field)* [',']
//	field        := key '=' value
//	value        := single_value ('#' single_value)*
//	single_value := '{' braced_text '}' | '"' quoted_text '"' | bare_key
//
// Text between directives is ignored. Whitespace and '%' line comments are
// skipped between tokens but kept literally inside brace and quote bodies.
// A backslash escapes the next character inside bodies, so "\}" never
// closes a brace level.
//
// # Limitations
//
// @STRING definitions are recorded in Result.Strings but never substituted
// into values; '#' concatenation joins literal values only. A bare value
// must be all digits or a month abbreviation (jan..dec).
//
// # Errors
//
// Any grammar violation aborts the whole parse with a *ParseError carrying
// the offending remaining input. There is no partial result and no recovery.
package bibtex
