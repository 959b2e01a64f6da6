package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/bibcite/internal/bibliography"
	"github.com/roach88/bibcite/internal/bibtex"
	"github.com/roach88/bibcite/internal/ir"
)

// Error codes for CLI output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E002" // File read error
	ErrCodeNoSource    = "E003" // Document names no bibliography
	ErrCodeParseFailed = "E004" // BibTeX parse error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeInvalidData = "E006" // Structured bibliography rejected
	ErrCodeStoreFailed = "E007" // Database error
	ErrCodeTestFailed  = "E008" // Scenario failures
)

// LoadError reports a bibliography that could not be loaded.
// Line and Column are 1-based and zero when unknown.
type LoadError struct {
	Code    string
	Message string
	Source  string
	Line    int
	Column  int
	Err     error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Source, e.Line, e.Column, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadResult is a loaded bibliography.
type LoadResult struct {
	Bibliography *bibliography.Store
	Source       string   // file path or "inline"
	SourceHash   string   // ir.SourceHash of the raw text
	Keys         []string // citation keys in source order, duplicates removed
	Duplicates   []string
	Cached       bool
}

// bibliographyCache is the part of the store the loader uses.
type bibliographyCache interface {
	LoadBibliography(ctx context.Context, sourceHash string) (*bibliography.Store, bool, error)
	SaveBibliography(ctx context.Context, sourceHash, source string, bib *bibliography.Store, seq int64) error
}

// readSource reads a bibliography file, mapping failures to LoadErrors.
func readSource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("file not found: %s", path), Source: path, Err: err}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("read %s: %v", path, err), Source: path, Err: err}
	}
	return data, nil
}

// LoadBibliographyFile reads and loads a .bib or structured bibliography.
func LoadBibliographyFile(path string) (*LoadResult, error) {
	data, err := readSource(path)
	if err != nil {
		return nil, err
	}
	return loadBibliography(path, data)
}

// loadBibliography builds a Store from data. The format is picked by the
// source name: structured extensions go through LoadStructured, everything
// else is parsed as BibTeX.
func loadBibliography(source string, data []byte) (*LoadResult, error) {
	var entries []ir.Entry
	var duplicates []string

	if bibliography.IsStructured(source) {
		loaded, err := bibliography.LoadStructured(source, data)
		if err != nil {
			return nil, structuredLoadError(source, err)
		}
		entries = loaded
	} else {
		res, err := bibtex.Parse(string(data))
		if err != nil {
			return nil, parseLoadError(source, err)
		}
		entries = res.Entries
		duplicates = res.Duplicates
	}

	seen := make(map[string]bool, len(entries))
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if seen[e.Key] {
			continue
		}
		seen[e.Key] = true
		keys = append(keys, e.Key)
	}

	return &LoadResult{
		Bibliography: bibliography.New(entries),
		Source:       source,
		SourceHash:   ir.SourceHash(string(data)),
		Keys:         keys,
		Duplicates:   duplicates,
	}, nil
}

// loadCached consults cache before parsing and saves what it parses.
// A nil cache parses unconditionally.
func loadCached(ctx context.Context, cache bibliographyCache, source string, data []byte, seq int64) (*LoadResult, error) {
	if cache == nil {
		return loadBibliography(source, data)
	}

	hash := ir.SourceHash(string(data))
	bib, ok, err := cache.LoadBibliography(ctx, hash)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStoreFailed, Message: err.Error(), Source: source, Err: err}
	}
	if ok {
		return &LoadResult{
			Bibliography: bib,
			Source:       source,
			SourceHash:   hash,
			Keys:         bib.Keys(),
			Cached:       true,
		}, nil
	}

	res, err := loadBibliography(source, data)
	if err != nil {
		return nil, err
	}
	if err := cache.SaveBibliography(ctx, hash, source, res.Bibliography, seq); err != nil {
		return nil, &LoadError{Code: ErrCodeStoreFailed, Message: err.Error(), Source: source, Err: err}
	}
	return res, nil
}

func parseLoadError(source string, err error) error {
	var pe *bibtex.ParseError
	if errors.As(err, &pe) {
		return &LoadError{
			Code:    ErrCodeParseFailed,
			Message: pe.Error(),
			Source:  source,
			Line:    pe.Line,
			Column:  pe.Column,
			Err:     err,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Source: source, Err: err}
}

func structuredLoadError(source string, err error) error {
	var le *bibliography.LoadError
	if errors.As(err, &le) {
		out := &LoadError{Code: ErrCodeInvalidData, Message: le.Message, Source: source, Err: err}
		if le.Pos.IsValid() {
			out.Line = le.Pos.Line()
			out.Column = le.Pos.Column()
		}
		return out
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Source: source, Err: err}
}

// loadErrorCode returns the CLI code for err.
func loadErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}
