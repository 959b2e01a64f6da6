package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/bibcite/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB             string
	ContextID      string
	Bibliographies bool
}

// HistoryResult is the output of the history command.
type HistoryResult struct {
	Resolutions    []store.Resolution       `json:"resolutions"`
	Bibliographies []store.BibliographyInfo `json:"bibliographies,omitempty"`
}

// RenderText prints one row per recorded resolution.
func (r HistoryResult) RenderText(w io.Writer) {
	if len(r.Resolutions) == 0 {
		fmt.Fprintln(w, "No resolutions recorded.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SEQ\tCONTEXT\tMARKERS\tUNRESOLVED\tPENDING\tSNAPSHOT")
		for _, res := range r.Resolutions {
			unresolved := 0
			for _, m := range res.Markers {
				if !m.Resolved {
					unresolved++
				}
			}
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%s\n",
				res.Seq, res.ContextID, len(res.Markers), unresolved, res.Pending, shortHash(res.SnapshotHash))
		}
		tw.Flush()
	}

	if len(r.Bibliographies) > 0 {
		fmt.Fprintln(w, "\nCached bibliographies:")
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, b := range r.Bibliographies {
			fmt.Fprintf(tw, "  %s\t%s\t%d entries\tseq %d\n", shortHash(b.Hash), b.Source, b.EntryCount, b.Seq)
		}
		tw.Flush()
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded resolutions",
		Long: `List resolutions recorded by "bibcite resolve --db", oldest first.

Examples:
  bibcite history --db bibcite.db
  bibcite history --db bibcite.db --context post-1 --bibliographies`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite database path (required)")
	cmd.Flags().StringVar(&opts.ContextID, "context", "", "only show this resolution context")
	cmd.Flags().BoolVar(&opts.Bibliographies, "bibliographies", false, "also list cached bibliographies")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Opening creates the file; history of a database that does not exist
	// is a usage error, not an empty list.
	if _, err := os.Stat(opts.DB); errors.Is(err, os.ErrNotExist) {
		msg := fmt.Sprintf("database not found: %s", opts.DB)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer st.Close()

	result := HistoryResult{}
	result.Resolutions, err = st.ReadResolutions(ctx, opts.ContextID)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read history", err)
	}
	if opts.Bibliographies {
		result.Bibliographies, err = st.ListBibliographies(ctx)
		if err != nil {
			_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "read bibliographies", err)
		}
	}
	return formatter.Success(result)
}
