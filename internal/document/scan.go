package document

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/roach88/bibcite/internal/citation"
	"github.com/roach88/bibcite/internal/engine"
)

const (
	citeTag         = "d-cite"
	bibliographyTag = "d-bibliography"
	bibtexMIME      = "text/bibtex"
)

// Citation is one <d-cite> element.
type Citation struct {
	ID   citation.MarkerID `json:"id"`
	Keys []string          `json:"keys"`
}

// Source is one place a bibliography comes from. Exactly one of Inline
// and Src is set.
type Source struct {
	Inline string `json:"inline,omitempty"`
	Src    string `json:"src,omitempty"`
}

// IsInline reports whether the source text is embedded in the document.
func (s Source) IsInline() bool {
	return s.Src == ""
}

// Document is the scan result.
type Document struct {
	Citations []Citation `json:"citations"`
	Sources   []Source   `json:"sources"`
}

// Scan tokenizes r and collects citations and bibliography sources.
//
// A citation takes its marker ID from its id attribute; citations without
// one, or whose id is already taken, get "cite-N" with N the 1-based
// citation index.
func Scan(r io.Reader) (*Document, error) {
	doc := &Document{Citations: []Citation{}, Sources: []Source{}}
	used := make(map[citation.MarkerID]bool)
	z := html.NewTokenizer(r)

	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return doc, nil
			}
			return nil, fmt.Errorf("scan document: %w", z.Err())

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch {
			case tok.Data == citeTag:
				c := Citation{Keys: citation.ParseKeys(attr(tok, "key"))}
				c.ID = citation.MarkerID(attr(tok, "id"))
				if c.ID == "" || used[c.ID] {
					c.ID = citation.MarkerID("cite-" + strconv.Itoa(len(doc.Citations)+1))
				}
				used[c.ID] = true
				doc.Citations = append(doc.Citations, c)

			case tok.Data == bibliographyTag:
				if src := strings.TrimSpace(attr(tok, "src")); src != "" {
					doc.Sources = append(doc.Sources, Source{Src: src})
				}

			case tok.DataAtom == atom.Script && isBibtexScript(tok):
				// The tokenizer returns script contents as one raw text token.
				if z.Next() == html.TextToken {
					doc.Sources = append(doc.Sources, Source{Inline: string(z.Text())})
				}
			}
		}
	}
}

func isBibtexScript(tok html.Token) bool {
	return strings.EqualFold(strings.TrimSpace(attr(tok, "type")), bibtexMIME)
}

func attr(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// Events returns one EventMarkerChanged per citation in source order,
// followed by EventDocumentSettled.
func (d *Document) Events() []engine.Event {
	events := make([]engine.Event, 0, len(d.Citations)+1)
	for _, c := range d.Citations {
		events = append(events, engine.MarkerChanged(c.ID, c.Keys, ""))
	}
	return append(events, engine.DocumentSettled())
}

// InlineBibtex concatenates every inline bibliography block.
func (d *Document) InlineBibtex() string {
	var b strings.Builder
	for _, s := range d.Sources {
		if s.IsInline() {
			b.WriteString(s.Inline)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// ExternalSources returns the src of every referenced bibliography.
func (d *Document) ExternalSources() []string {
	var srcs []string
	for _, s := range d.Sources {
		if !s.IsInline() {
			srcs = append(srcs, s.Src)
		}
	}
	return srcs
}
