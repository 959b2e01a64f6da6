package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceHashDeterminism(t *testing.T) {
	h1 := SourceHash("@article{a, title={x}}")
	h2 := SourceHash("@article{a, title={x}}")

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
	assert.NotEqual(t, h1, SourceHash("@article{b, title={x}}"))
}

func TestEntriesHashIgnoresFieldInsertionOrder(t *testing.T) {
	var f1, f2 Fields
	f1.Set("title", "T")
	f1.Set("year", "2016")
	f2.Set("year", "2016")
	f2.Set("title", "T")

	h1 := MustEntriesHash([]Entry{{Key: "a", Type: "article", Fields: f1}})
	h2 := MustEntriesHash([]Entry{{Key: "a", Type: "article", Fields: f2}})
	assert.Equal(t, h1, h2)
}

func TestEntriesHashChangesWithContent(t *testing.T) {
	a := []Entry{{Key: "a", Type: "article"}}
	b := []Entry{{Key: "a", Type: "book"}}

	assert.NotEqual(t, MustEntriesHash(a), MustEntriesHash(b))
}

func TestDomainSeparation(t *testing.T) {
	// Same payload under different domains must not collide
	snap, err := SnapshotHash("x")
	require.NoError(t, err)
	assert.NotEqual(t, SourceHash(`"x"`), snap)
}
