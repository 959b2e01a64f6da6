package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bibcite/internal/bibliography"
	"github.com/roach88/bibcite/internal/citation"
	"github.com/roach88/bibcite/internal/document"
	"github.com/roach88/bibcite/internal/engine"
	"github.com/roach88/bibcite/internal/store"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Bib       string // bibliography file, overrides the document's sources
	DB        string // SQLite database for caching and history
	ContextID string // fixed context ID (default: generated)
}

// MarkerOutput is one resolved marker.
type MarkerOutput struct {
	ID       string   `json:"id"`
	Keys     []string `json:"keys"`
	Numbers  []int    `json:"numbers"`
	Missing  []string `json:"missing,omitempty"`
	Resolved bool     `json:"resolved"`
}

// ReferenceOutput is one row of the reference list.
type ReferenceOutput struct {
	Number int    `json:"number"`
	Key    string `json:"key"`
	Found  bool   `json:"found"`
	Author string `json:"author,omitempty"`
	Title  string `json:"title,omitempty"`
	Year   string `json:"year,omitempty"`
}

// ResolveResult is the output of the resolve command.
type ResolveResult struct {
	Document         string            `json:"document"`
	ContextID        string            `json:"context_id"`
	Seq              int64             `json:"seq"`
	Bibliography     string            `json:"bibliography,omitempty"`
	BibliographyHash string            `json:"bibliography_hash,omitempty"`
	Cached           bool              `json:"cached,omitempty"`
	Markers          []MarkerOutput    `json:"markers"`
	References       []ReferenceOutput `json:"references"`
	Pending          []string          `json:"pending,omitempty"`
	SnapshotHash     string            `json:"snapshot_hash"`
}

// RenderText prints markers with 1-based numbers ("?" while unresolved),
// then the reference list and any deferred work.
func (r ResolveResult) RenderText(w io.Writer) {
	for _, m := range r.Markers {
		fmt.Fprintf(w, "%-12s %-12s %s\n", m.ID, displayNumbers(m.Numbers), citation.FormatKeys(m.Keys))
	}
	if len(r.References) > 0 {
		fmt.Fprintln(w, "\nReferences:")
		for _, ref := range r.References {
			if !ref.Found {
				fmt.Fprintf(w, "  [%d] %s (not found)\n", ref.Number+1, ref.Key)
				continue
			}
			fmt.Fprintf(w, "  [%d] %s %s\n", ref.Number+1, ref.Key, describeReference(ref))
		}
	}
	if len(r.Pending) > 0 {
		fmt.Fprintf(w, "\nDeferred: %s\n", strings.Join(r.Pending, ", "))
	}
}

func displayNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		if n == citation.Unresolved {
			parts[i] = "?"
		} else {
			parts[i] = strconv.Itoa(n + 1)
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func describeReference(ref ReferenceOutput) string {
	var parts []string
	for _, s := range []string{ref.Author, ref.Title, ref.Year} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ". ")
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <document.html>",
		Short: "Number a document's citations",
		Long: `Scan an HTML document for <d-cite> markers, resolve them against the
bibliography, and print each marker's numbers and the reference list.

The bibliography comes from --bib, or else from the document itself:
inline <script type="text/bibtex"> blocks and <d-bibliography src="...">
files relative to the document. A bibliography that fails to parse leaves
every citation deferred.

With --db, parsed bibliographies are cached by content hash and the final
resolution is recorded (see "bibcite history").

Examples:
  bibcite resolve post.html
  bibcite resolve post.html --bib refs.bib --db bibcite.db
  bibcite resolve post.html --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Bib, "bib", "", "bibliography file (.bib, .json, .cue, .yaml)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite database for bibliography cache and history")
	cmd.Flags().StringVar(&opts.ContextID, "context", "", "fixed resolution context ID")

	return cmd
}

func runResolve(opts *ResolveOptions, docPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	doc, err := scanDocument(docPath)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	formatter.VerboseLog("Found %d citation(s) and %d bibliography source(s) in %s",
		len(doc.Citations), len(doc.Sources), docPath)

	clock := engine.NewClock()
	var cache bibliographyCache
	var st *store.Store
	if opts.DB != "" {
		st, err = store.Open(opts.DB)
		if err != nil {
			_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "open database", err)
		}
		defer st.Close()

		maxSeq, err := st.MaxSeq(ctx)
		if err != nil {
			_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "read database", err)
		}
		clock = engine.NewClockAt(maxSeq)
		cache = st
	}

	resolverOpts := []engine.ResolverOption{
		engine.WithLogger(logger),
		engine.WithClock(clock),
	}
	if opts.ContextID != "" {
		resolverOpts = append(resolverOpts, engine.WithContextID(opts.ContextID))
	}
	r := engine.New(resolverOpts...)

	if _, err := r.Apply(doc.Events()...); err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "resolve document", err)
	}

	result := ResolveResult{Document: docPath}

	source, data, err := bibliographySource(opts.Bib, docPath, doc)
	var loadErr error
	switch {
	case err != nil:
		loadErr = err
	case data == nil:
		formatter.VerboseLog("No bibliography source; citations stay deferred")
	default:
		loaded, err := loadCached(ctx, cache, source, data, clock.Current()+1)
		if err != nil {
			loadErr = err
			break
		}
		for _, key := range loaded.Duplicates {
			logger.Warn("duplicate citation key ignored", "key", key, "source", source)
		}
		if err := r.LoadBibliography(loaded.Bibliography); err != nil {
			loadErr = err
			break
		}
		result.Bibliography = source
		result.Cached = loaded.Cached
		formatter.VerboseLog("Loaded %d entries from %s (cached: %t)", loaded.Bibliography.Len(), source, loaded.Cached)
	}
	if loadErr != nil {
		logger.Warn("bibliography not loaded, citations stay deferred", "error", loadErr)
	}

	snap := r.Snapshot()
	if st != nil {
		if err := st.WriteResolution(ctx, snap); err != nil {
			_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "record resolution", err)
		}
	}
	if err := fillResolveResult(&result, snap); err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "resolve document", err)
	}

	if loadErr != nil {
		return outputResolveWithError(formatter, result, loadErr)
	}
	if formatter.Format == "json" {
		return formatter.Encode(CLIResponse{Status: "ok", Data: result, ContextID: result.ContextID})
	}
	return formatter.Success(result)
}

func scanDocument(path string) (*document.Document, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("file not found: %s", path), Source: path, Err: err}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: err.Error(), Source: path, Err: err}
	}
	defer f.Close()

	doc, err := document.Scan(f)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: err.Error(), Source: path, Err: err}
	}
	return doc, nil
}

// bibliographySource picks the bibliography for a document. It returns a
// nil data slice when there is none.
//
// --bib wins. Otherwise a single external file is used as is (so it may be
// structured); inline blocks and several external files are concatenated
// as BibTeX.
func bibliographySource(bibFlag, docPath string, doc *document.Document) (string, []byte, error) {
	if bibFlag != "" {
		data, err := readSource(bibFlag)
		return bibFlag, data, err
	}

	inline := doc.InlineBibtex()
	external := doc.ExternalSources()
	for i, src := range external {
		if !filepath.IsAbs(src) {
			external[i] = filepath.Join(filepath.Dir(docPath), src)
		}
	}

	if len(external) == 1 && strings.TrimSpace(inline) == "" {
		data, err := readSource(external[0])
		return external[0], data, err
	}
	if len(external) == 0 && len(doc.Sources) == 0 {
		return "", nil, nil
	}

	var b strings.Builder
	b.WriteString(inline)
	for _, path := range external {
		if bibliography.IsStructured(path) {
			return "", nil, &LoadError{
				Code:    ErrCodeInvalidData,
				Message: fmt.Sprintf("structured bibliography %s must be the only source", path),
				Source:  path,
			}
		}
		data, err := readSource(path)
		if err != nil {
			return "", nil, err
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return docPath + "#bibliography", []byte(b.String()), nil
}

func fillResolveResult(result *ResolveResult, snap engine.Snapshot) error {
	result.ContextID = snap.ContextID
	result.Seq = snap.Seq
	result.BibliographyHash = snap.BibliographyHash

	result.Markers = make([]MarkerOutput, len(snap.Markers))
	for i, m := range snap.Markers {
		result.Markers[i] = MarkerOutput{
			ID:       string(m.ID),
			Keys:     m.Keys,
			Numbers:  m.Numbers,
			Missing:  m.Missing(),
			Resolved: m.Resolved(),
		}
	}

	result.References = make([]ReferenceOutput, len(snap.References))
	for i, ref := range snap.References {
		out := ReferenceOutput{Number: ref.Number, Key: ref.Key, Found: ref.Entry != nil}
		if ref.Entry != nil {
			out.Author = ref.Entry.Author()
			out.Title = ref.Entry.Title()
			out.Year = ref.Entry.Year()
		}
		result.References[i] = out
	}

	for _, w := range snap.Pending {
		result.Pending = append(result.Pending, fmt.Sprintf("%s (%s)", w.Marker, w.Kind))
	}

	hash, err := snap.Hash()
	if err != nil {
		return err
	}
	result.SnapshotHash = hash
	return nil
}

// outputResolveWithError prints the deferred resolution together with the
// bibliography error. Bad content exits 1, a missing file exits 2.
func outputResolveWithError(formatter *OutputFormatter, result ResolveResult, loadErr error) error {
	code := loadErrorCode(loadErr)
	if formatter.Format == "json" {
		if err := formatter.Encode(CLIResponse{
			Status:    "error",
			Data:      result,
			Error:     &CLIError{Code: code, Message: loadErr.Error()},
			ContextID: result.ContextID,
		}); err != nil {
			return err
		}
	} else {
		result.RenderText(formatter.Writer)
		fmt.Fprintf(formatter.Writer, "\nError [%s]: %s\n", code, loadErr.Error())
	}

	exit := ExitCommandError
	if code == ErrCodeParseFailed || code == ErrCodeInvalidData {
		exit = ExitFailure
	}
	return WrapExitError(exit, "load bibliography", loadErr)
}
