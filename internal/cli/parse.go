package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/bibcite/internal/ir"
)

// ParseResult is the output of the parse command.
type ParseResult struct {
	Source     string     `json:"source"`
	Count      int        `json:"count"`
	Entries    []ir.Entry `json:"entries"`
	Duplicates []string   `json:"duplicates,omitempty"`
}

// RenderText prints one block per entry, fields in name order.
func (r ParseResult) RenderText(w io.Writer) {
	for _, e := range r.Entries {
		fmt.Fprintf(w, "%s (%s)\n", e.Key, e.Type)
		e.Fields.Each(func(name, value string) {
			if name == ir.FieldType.String() {
				return
			}
			fmt.Fprintf(w, "  %s = %s\n", name, value)
		})
	}
	for _, key := range r.Duplicates {
		fmt.Fprintf(w, "warning: duplicate key %s ignored\n", key)
	}
	fmt.Fprintf(w, "%d entries\n", r.Count)
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <bibliography>",
		Short: "Parse a bibliography and print its normalized entries",
		Long: `Parse a BibTeX file, or a structured bibliography (.json, .cue, .yaml),
and print its entries after normalization, in source order.

Examples:
  bibcite parse refs.bib
  bibcite parse refs.bib --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runParse(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := LoadBibliographyFile(path)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d entries from %s (%s)", loaded.Bibliography.Len(), path, loaded.SourceHash)

	result := ParseResult{
		Source:     path,
		Count:      len(loaded.Keys),
		Entries:    make([]ir.Entry, 0, len(loaded.Keys)),
		Duplicates: loaded.Duplicates,
	}
	for _, key := range loaded.Keys {
		e, _ := loaded.Bibliography.Lookup(key)
		result.Entries = append(result.Entries, *e)
	}
	return formatter.Success(result)
}

// reportLoadError prints err and maps it to an exit code: missing or
// unreadable files are command errors, bad content is a failure.
func reportLoadError(formatter *OutputFormatter, err error) error {
	code := loadErrorCode(err)
	var details any
	var le *LoadError
	if errors.As(err, &le) && le.Line > 0 {
		details = map[string]any{"source": le.Source, "line": le.Line, "column": le.Column}
	}
	_ = formatter.Error(code, err.Error(), details)

	switch code {
	case ErrCodeParseFailed, ErrCodeInvalidData:
		return WrapExitError(ExitFailure, "load bibliography", err)
	default:
		return WrapExitError(ExitCommandError, "load bibliography", err)
	}
}
