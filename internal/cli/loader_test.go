package cli

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bibcite/internal/bibliography"
	"github.com/roach88/bibcite/internal/ir"
)

type memoryCache struct {
	stores map[string]*bibliography.Store
	saves  int
	err    error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{stores: map[string]*bibliography.Store{}}
}

func (c *memoryCache) LoadBibliography(_ context.Context, hash string) (*bibliography.Store, bool, error) {
	if c.err != nil {
		return nil, false, c.err
	}
	s, ok := c.stores[hash]
	return s, ok, nil
}

func (c *memoryCache) SaveBibliography(_ context.Context, hash, _ string, bib *bibliography.Store, _ int64) error {
	c.saves++
	c.stores[hash] = bib
	return nil
}

func TestLoadBibliography_Bibtex(t *testing.T) {
	res, err := loadBibliography("refs.bib", []byte("@misc{b, title = {B}}\n@misc{a, title = {A}}\n@misc{b, title = {B2}}"))
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a"}, res.Keys)
	assert.Equal(t, []string{"b"}, res.Duplicates)
	assert.Equal(t, 2, res.Bibliography.Len())
	assert.Equal(t, ir.SourceHash("@misc{b, title = {B}}\n@misc{a, title = {A}}\n@misc{b, title = {B2}}"), res.SourceHash)
	assert.False(t, res.Cached)
}

func TestLoadBibliography_ParseError(t *testing.T) {
	_, err := loadBibliography("refs.bib", []byte("@misc{k,\n  title = {open"))
	require.Error(t, err)

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeParseFailed, le.Code)
	assert.Equal(t, "refs.bib", le.Source)
	assert.Positive(t, le.Line)
	assert.Contains(t, err.Error(), "refs.bib:")
}

func TestLoadBibliography_StructuredError(t *testing.T) {
	_, err := loadBibliography("refs.json", []byte(`[{"type": "misc"}]`))
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidData, loadErrorCode(err))
}

func TestLoadBibliographyFile_NotFound(t *testing.T) {
	_, err := LoadBibliographyFile(filepath.Join(t.TempDir(), "missing.bib"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotFound, loadErrorCode(err))
}

func TestLoadCached(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache()
	data := []byte("@misc{k, title = {K}}")

	first, err := loadCached(ctx, cache, "refs.bib", data, 1)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, cache.saves)

	second, err := loadCached(ctx, cache, "refs.bib", data, 2)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, cache.saves)
	assert.Equal(t, first.Bibliography.Hash(), second.Bibliography.Hash())
	assert.Equal(t, []string{"k"}, second.Keys)
}

func TestLoadCached_ParseErrorNotSaved(t *testing.T) {
	cache := newMemoryCache()
	_, err := loadCached(context.Background(), cache, "refs.bib", []byte("@misc{k, title = {open"), 1)
	require.Error(t, err)
	assert.Equal(t, 0, cache.saves)
}

func TestLoadCached_StoreError(t *testing.T) {
	cache := newMemoryCache()
	cache.err = errors.New("disk on fire")

	_, err := loadCached(context.Background(), cache, "refs.bib", []byte("@misc{k, title = {K}}"), 1)
	require.Error(t, err)
	assert.Equal(t, ErrCodeStoreFailed, loadErrorCode(err))
}

func TestLoadCached_NilCache(t *testing.T) {
	res, err := loadCached(context.Background(), nil, "refs.bib", []byte("@misc{k, title = {K}}"), 1)
	require.NoError(t, err)
	assert.False(t, res.Cached)
}
