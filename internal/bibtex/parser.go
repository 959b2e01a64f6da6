package bibtex

import (
	"fmt"
	"strings"

	"github.com/roach88/bibcite/internal/ir"
)

// months are the bare values accepted besides digit runs.
var months = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// StringDef is a recorded @STRING definition. Its value is never
// substituted into later fields.
type StringDef struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Result is the outcome of a successful parse.
type Result struct {
	// Entries in source order with unique keys. Field values are raw,
	// not normalized.
	Entries []ir.Entry `json:"entries"`

	// Strings holds @STRING definitions in source order.
	Strings []StringDef `json:"strings,omitempty"`

	// Preambles holds @PREAMBLE bodies in source order.
	Preambles []string `json:"preambles,omitempty"`

	// Comments holds @COMMENT bodies in source order.
	Comments []string `json:"comments,omitempty"`

	// Duplicates lists citation keys that appeared again after their first
	// entry. The first entry wins; later ones are dropped.
	Duplicates []string `json:"duplicates,omitempty"`
}

// Parse parses src into a Result.
// Empty input (or input without any '@') yields an empty Result.
func Parse(src string) (*Result, error) {
	p := &parser{src: src}
	res := &Result{Entries: []ir.Entry{}}
	seen := make(map[string]bool)

	for p.seekDirective() {
		if err := p.directive(res, seen); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// ParseEntries parses src and returns only its entries.
func ParseEntries(src string) ([]ir.Entry, error) {
	res, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return res.Entries, nil
}

// parser is the explicit cursor over the input.
type parser struct {
	src string
	pos int
}

// seekDirective skips prose up to the next '@'.
// Returns false when the input is exhausted.
func (p *parser) seekDirective() bool {
	if i := strings.IndexByte(p.src[p.pos:], '@'); i >= 0 {
		p.pos += i
		return true
	}
	p.pos = len(p.src)
	return false
}

func (p *parser) directive(res *Result, seen map[string]bool) error {
	if err := p.match("@"); err != nil {
		return err
	}
	name, err := p.key()
	if err != nil {
		return err
	}
	if err := p.match("{"); err != nil {
		return err
	}

	switch strings.ToUpper(name) {
	case "STRING":
		def, err := p.stringDef()
		if err != nil {
			return err
		}
		res.Strings = append(res.Strings, def)
	case "PREAMBLE":
		body, err := p.rawBody()
		if err != nil {
			return err
		}
		res.Preambles = append(res.Preambles, body)
	case "COMMENT":
		body, err := p.rawBody()
		if err != nil {
			return err
		}
		res.Comments = append(res.Comments, body)
	default:
		entry, err := p.entry(name)
		if err != nil {
			return err
		}
		if seen[entry.Key] {
			res.Duplicates = append(res.Duplicates, entry.Key)
		} else {
			seen[entry.Key] = true
			res.Entries = append(res.Entries, entry)
		}
	}

	return p.match("}")
}

func (p *parser) stringDef() (StringDef, error) {
	name, value, err := p.field()
	if err != nil {
		return StringDef{}, err
	}
	return StringDef{Name: name, Value: value}, nil
}

// entry parses "key, field = value, ..." up to (not including) the closing brace.
func (p *parser) entry(typ string) (ir.Entry, error) {
	key, err := p.key()
	if err != nil {
		return ir.Entry{}, err
	}
	e := ir.Entry{Key: key, Type: strings.ToLower(typ)}
	if p.tryMatch("}") {
		return e, nil
	}
	if err := p.match(","); err != nil {
		return ir.Entry{}, err
	}

	for !p.tryMatch("}") {
		name, value, err := p.field()
		if err != nil {
			return ir.Entry{}, err
		}
		e.Fields.Set(name, value)

		if !p.tryMatch(",") {
			break
		}
		if err := p.match(","); err != nil {
			return ir.Entry{}, err
		}
	}
	return e, nil
}

// field parses "name = value".
func (p *parser) field() (string, string, error) {
	name, err := p.key()
	if err != nil {
		return "", "", err
	}
	if !p.tryMatch("=") {
		return "", "", p.errorf(ErrCodeMissingEquals, "expected '=' after field %q", name)
	}
	if err := p.match("="); err != nil {
		return "", "", err
	}
	value, err := p.value()
	if err != nil {
		return "", "", err
	}
	return name, value, nil
}

// value parses single values joined by '#'.
func (p *parser) value() (string, error) {
	first, err := p.singleValue()
	if err != nil {
		return "", err
	}
	if !p.tryMatch("#") {
		return first, nil
	}

	var b strings.Builder
	b.WriteString(first)
	for p.tryMatch("#") {
		if err := p.match("#"); err != nil {
			return "", err
		}
		next, err := p.singleValue()
		if err != nil {
			return "", err
		}
		b.WriteString(next)
	}
	return b.String(), nil
}

func (p *parser) singleValue() (string, error) {
	p.skipWhitespace()
	if p.pos >= len(p.src) {
		return "", p.errorf(ErrCodeInvalidValue, "expected value")
	}

	switch p.src[p.pos] {
	case '{':
		return p.bracedValue()
	case '"':
		return p.quotedValue()
	}

	start := p.pos
	k, err := p.key()
	if err != nil {
		return "", err
	}
	if isDigits(k) {
		return k, nil
	}
	lower := strings.ToLower(k)
	for _, m := range months {
		if lower == m {
			return lower, nil
		}
	}
	p.pos = start
	return "", p.errorf(ErrCodeInvalidValue, "bare value %q is neither a number nor a month", k)
}

// bracedValue scans a '{' body, tracking nesting depth.
// A backslash escapes the following character.
func (p *parser) bracedValue() (string, error) {
	open := p.pos
	p.pos++
	start := p.pos
	depth := 0
	escaped := false

	for ; p.pos < len(p.src); p.pos++ {
		c := p.src[p.pos]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '{':
			depth++
		case '}':
			if depth == 0 {
				v := p.src[start:p.pos]
				p.pos++
				p.skipWhitespace()
				return v, nil
			}
			depth--
		}
	}

	p.pos = open
	return "", p.errorf(ErrCodeUnterminatedValue, "unterminated braced value")
}

// quotedValue scans a '"' body up to the next unescaped quote.
func (p *parser) quotedValue() (string, error) {
	open := p.pos
	p.pos++
	start := p.pos
	escaped := false

	for ; p.pos < len(p.src); p.pos++ {
		c := p.src[p.pos]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '"':
			v := p.src[start:p.pos]
			p.pos++
			p.skipWhitespace()
			return v, nil
		}
	}

	p.pos = open
	return "", p.errorf(ErrCodeUnterminatedValue, "unterminated quoted value")
}

// rawBody reads a @PREAMBLE or @COMMENT body up to its closing brace,
// which is left for the caller to match.
func (p *parser) rawBody() (string, error) {
	start := p.pos
	depth := 0
	escaped := false

	for ; p.pos < len(p.src); p.pos++ {
		c := p.src[p.pos]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return strings.TrimSpace(p.src[start:p.pos]), nil
			}
			depth--
		}
	}

	p.pos = start
	return "", p.errorf(ErrCodeUnterminatedValue, "unterminated directive body")
}

// key reads a run of characters up to '{', '}', ',', '=' or whitespace.
func (p *parser) key() (string, error) {
	p.skipWhitespace()
	start := p.pos
	for p.pos < len(p.src) && !isKeyTerminator(p.src[p.pos]) {
		p.pos++
	}
	if p.pos >= len(p.src) {
		p.pos = start
		return "", p.errorf(ErrCodeRunawayKey, "key runs to end of input")
	}
	if p.pos == start {
		return "", p.errorf(ErrCodeTokenMismatch, "expected key")
	}
	k := p.src[start:p.pos]
	p.skipWhitespace()
	return k, nil
}

// match consumes tok (surrounded by optional whitespace) or fails.
func (p *parser) match(tok string) error {
	p.skipWhitespace()
	if !strings.HasPrefix(p.src[p.pos:], tok) {
		return p.errorf(ErrCodeTokenMismatch, "expected %q", tok)
	}
	p.pos += len(tok)
	p.skipWhitespace()
	return nil
}

// tryMatch reports whether tok is next, without consuming it.
func (p *parser) tryMatch(tok string) bool {
	p.skipWhitespace()
	return strings.HasPrefix(p.src[p.pos:], tok)
}

// skipWhitespace skips whitespace and '%' line comments.
func (p *parser) skipWhitespace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case isSpace(c):
			p.pos++
		case c == '%':
			if i := strings.IndexByte(p.src[p.pos:], '\n'); i >= 0 {
				p.pos += i + 1
			} else {
				p.pos = len(p.src)
			}
		default:
			return
		}
	}
}

func (p *parser) errorf(code ErrorCode, format string, args ...any) *ParseError {
	line, col := lineCol(p.src, p.pos)
	rest := p.src[p.pos:]
	if len(rest) > remainingLimit {
		rest = rest[:remainingLimit] + "..."
	}
	return &ParseError{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Offset:    p.pos,
		Line:      line,
		Column:    col,
		Remaining: rest,
	}
}

// lineCol converts a byte offset to a 1-based line and column.
func lineCol(src string, off int) (int, int) {
	before := src[:off]
	line := strings.Count(before, "\n") + 1
	col := off - strings.LastIndexByte(before, '\n')
	return line, col
}

func isKeyTerminator(c byte) bool {
	switch c {
	case '{', '}', ',', '=':
		return true
	}
	return isSpace(c)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
