package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOrder_FirstAppearance(t *testing.T) {
	o := NewOrder([]string{"b"}, []string{"a", "b"}, []string{"c"})

	assert.Equal(t, []string{"b", "a", "c"}, o.Keys())
	assert.Equal(t, 0, o.Index("b"))
	assert.Equal(t, 1, o.Index("a"))
	assert.Equal(t, 2, o.Index("c"))
	assert.Equal(t, Unresolved, o.Index("zzz"))
}

func TestOrder_NoDuplicates(t *testing.T) {
	o := NewOrder([]string{"a", "a", "b"}, []string{"b", "a"}, []string{"a"})

	keys := o.Keys()
	seen := make(map[string]bool)
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate key %q", k)
		seen[k] = true
	}
	assert.Equal(t, 2, o.Len())
}

func TestOrder_Zero(t *testing.T) {
	var o Order
	assert.Equal(t, 0, o.Len())
	assert.Equal(t, Unresolved, o.Index("a"))
	assert.False(t, o.Contains("a"))
	assert.True(t, o.Equal(NewOrder()))
}

func TestOrder_KeysIsCopy(t *testing.T) {
	o := NewOrder([]string{"a", "b"})
	keys := o.Keys()
	keys[0] = "mutated"
	assert.Equal(t, 0, o.Index("a"))
	assert.Equal(t, []string{"a", "b"}, o.Keys())
}
