package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase and punctuation", "Hello, World!", "hello world"},
		{"strips html", "<p>Breaking <b>news</b></p>", "breaking news"},
		{"strips urls", "read more at https://example.com/a?b=1 today", "read more at today"},
		{"strips emails", "contact tips@example.com now", "contact now"},
		{"collapses whitespace", "  a\t b \n c  ", "a b c"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"go", "1", "22", "released"}, Tokenize("Go 1.22 released!"))
	assert.Empty(t, Tokenize(""))
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 3, WordCount("<p>one two</p> three"))
	assert.Equal(t, 0, WordCount(""))
}

func TestTruncateBytes(t *testing.T) {
	assert.Equal(t, "short", TruncateBytes("short", 100))
	assert.Equal(t, "abc", TruncateBytes("abcdef", 3))
	assert.Equal(t, "", TruncateBytes("abc", 0))

	// A cut landing inside a multi-byte rune backs up to the boundary.
	s := strings.Repeat("é", 10) // 2 bytes each
	cut := TruncateBytes(s, 5)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, "éé", cut)
}

func TestIsStopword(t *testing.T) {
	assert.True(t, IsStopword("the"))
	assert.True(t, IsStopword("and"))
	assert.False(t, IsStopword("economy"))
}
