package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"Game Night!", "game-night"},
		{"  Already-Slugged  ", "already-slugged"},
		{"Multiple   Spaces & Symbols!!", "multiple-spaces-symbols"},
		{"UPPER", "upper"},
		{"123 go", "123-go"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "Slugify(%q)", tt.in)
	}
}
