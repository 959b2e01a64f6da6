package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inlineDoc = `<html><body>
<p>First <d-cite key="b"></d-cite>, then <d-cite key="a, b"></d-cite>
and <d-cite key="c"></d-cite>.</p>
<script type="text/bibtex">
@misc{a, title = {Alpha}, author = {Ann}, year = 2001}
@misc{b, title = {Beta}}
</script>
</body></html>`

type resolveResponse struct {
	Status    string        `json:"status"`
	Data      ResolveResult `json:"data"`
	Error     *CLIError     `json:"error"`
	ContextID string        `json:"context_id"`
}

func resolveJSON(t *testing.T, args ...string) (resolveResponse, error) {
	t.Helper()
	out, _, err := executeCommand(t, append([]string{"resolve", "--format", "json"}, args...)...)
	var resp resolveResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp, err
}

func TestResolveCommand_InlineBibliography(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "post.html", inlineDoc)

	resp, err := resolveJSON(t, doc, "--context", "post-1")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "post-1", resp.ContextID)

	res := resp.Data
	require.Len(t, res.Markers, 3)
	assert.Equal(t, []int{0}, res.Markers[0].Numbers)
	assert.Equal(t, []int{1, 0}, res.Markers[1].Numbers)
	assert.Equal(t, []int{2}, res.Markers[2].Numbers)
	assert.Equal(t, []string{"c"}, res.Markers[2].Missing)
	for _, m := range res.Markers {
		assert.True(t, m.Resolved, m.ID)
	}

	require.Len(t, res.References, 3)
	assert.Equal(t, "b", res.References[0].Key)
	assert.Equal(t, "a", res.References[1].Key)
	assert.Equal(t, "Ann", res.References[1].Author)
	assert.Equal(t, "2001", res.References[1].Year)
	assert.False(t, res.References[2].Found)
	assert.Empty(t, res.Pending)
	assert.NotEmpty(t, res.SnapshotHash)
	assert.NotEmpty(t, res.BibliographyHash)
}

func TestResolveCommand_Text(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "post.html", inlineDoc)

	out, _, err := executeCommand(t, "resolve", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "[2, 1]")
	assert.Contains(t, out, "References:")
	assert.Contains(t, out, "[2] a Ann. Alpha. 2001")
	assert.Contains(t, out, "[3] c (not found)")
}

func TestResolveCommand_BibFlag(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "post.html", `<d-cite key="x"></d-cite><d-cite key="y"></d-cite>`)
	bib := writeFile(t, dir, "refs.yaml", "x:\n  type: book\n  title: X\ny:\n  title: Y\n")

	resp, err := resolveJSON(t, doc, "--bib", bib)
	require.NoError(t, err)
	assert.Equal(t, bib, resp.Data.Bibliography)
	require.Len(t, resp.Data.Markers, 2)
	assert.Empty(t, resp.Data.Markers[0].Missing)
	assert.Equal(t, []int{1}, resp.Data.Markers[1].Numbers)
}

func TestResolveCommand_ExternalSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "refs.bib", "@misc{k, title = {K}}")
	doc := writeFile(t, dir, "post.html", `<d-cite key="k"></d-cite><d-bibliography src="refs.bib"></d-bibliography>`)

	resp, err := resolveJSON(t, doc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "refs.bib"), resp.Data.Bibliography)
	require.Len(t, resp.Data.References, 1)
	assert.True(t, resp.Data.References[0].Found)
}

func TestResolveCommand_NoBibliographyDefers(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "post.html", `<d-cite id="intro" key="k"></d-cite>`)

	resp, err := resolveJSON(t, doc)
	require.NoError(t, err)
	require.Len(t, resp.Data.Markers, 1)
	assert.Equal(t, "intro", resp.Data.Markers[0].ID)
	assert.False(t, resp.Data.Markers[0].Resolved)
	assert.Equal(t, []int{-1}, resp.Data.Markers[0].Numbers)
	assert.Equal(t, []string{"intro (waiting_on_bibliography)"}, resp.Data.Pending)
	assert.Empty(t, resp.Data.References)
}

func TestResolveCommand_ParseErrorDefers(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "post.html", `<d-cite key="k"></d-cite>
<script type="text/bibtex">@article{k, title = {Missing end</script>`)

	resp, err := resolveJSON(t, doc)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeParseFailed, resp.Error.Code)

	require.Len(t, resp.Data.Markers, 1)
	assert.False(t, resp.Data.Markers[0].Resolved)
	assert.Len(t, resp.Data.Pending, 1)
	assert.Empty(t, resp.Data.BibliographyHash)
}

func TestResolveCommand_MissingBibFile(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "post.html", `<d-cite key="k"></d-cite>`)

	resp, err := resolveJSON(t, doc, "--bib", filepath.Join(dir, "nope.bib"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestResolveCommand_MissingDocument(t *testing.T) {
	_, _, err := executeCommand(t, "resolve", filepath.Join(t.TempDir(), "nope.html"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestResolveCommand_DatabaseCache(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "post.html", inlineDoc)
	db := filepath.Join(dir, "bibcite.db")

	first, err := resolveJSON(t, doc, "--db", db, "--context", "post-1")
	require.NoError(t, err)
	assert.False(t, first.Data.Cached)
	assert.Equal(t, int64(5), first.Data.Seq)

	second, err := resolveJSON(t, doc, "--db", db, "--context", "post-1")
	require.NoError(t, err)
	assert.True(t, second.Data.Cached)
	assert.Equal(t, int64(10), second.Data.Seq)

	// Same document, same bibliography content.
	assert.Equal(t, first.Data.SnapshotHash, second.Data.SnapshotHash)
	assert.Equal(t, first.Data.BibliographyHash, second.Data.BibliographyHash)
}
