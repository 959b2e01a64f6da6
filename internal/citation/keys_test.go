package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKeys(t *testing.T) {
	tests := []struct {
		name string
		attr string
		want []string
	}{
		{"single", "olah2016attention", []string{"olah2016attention"}},
		{"trimmed", " a ,b,\tc\n", []string{"a", "b", "c"}},
		{"empty items dropped", "a,,b, ,", []string{"a", "b"}},
		{"empty", "", []string{}},
		{"duplicates kept", "a, a", []string{"a", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseKeys(tt.attr))
		})
	}
}

func TestFormatKeys(t *testing.T) {
	assert.Equal(t, "a, b", FormatKeys(ParseKeys("a,b")))
}
