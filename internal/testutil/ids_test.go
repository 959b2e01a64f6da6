package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator(t *testing.T) {
	gen := NewFixedIDGenerator("ctx-1")
	assert.Equal(t, "ctx-1", gen.Generate())
	assert.Equal(t, "ctx-1", gen.Generate())

	assert.Equal(t, "test-context", NewFixedIDGenerator("").Generate())
}

func TestSequentialIDGenerator(t *testing.T) {
	gen := NewSequentialIDGenerator("cite")
	assert.Equal(t, "cite-1", gen.Generate())
	assert.Equal(t, "cite-2", gen.Generate())
}
