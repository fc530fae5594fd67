package tokenizer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerms_SplitsAndLowercases(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"plain words", "red car", []string{"red", "car"}},
		{"punctuation separates", "Hello, World!", []string{"hello", "world"}},
		{"digits are word runes", "go1 24x7", []string{"go1", "24x7"}},
		{"cyrillic", "Матч Футбол", []string{"матч", "футбол"}},
		{"yo letter", "ЁЖИК ёлка", []string{"ёжик", "ёлка"}},
		{"mixed scripts in one run", "abcабв", []string{"abcабв"}},
		{"non supported letters separate", "naïve", []string{"na", "ve"}},
		{"empty", "", nil},
		{"only separators", " ,.;-- ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := terms(tt.input)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTerms_StripsMarkup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"tags dropped", "<p>red <b>car</b></p>", []string{"red", "car"}},
		{"tag separates words", "red<br>car", []string{"red", "car"}},
		{"attributes dropped", `<a href="http://x.org/page">link</a>`, []string{"link"}},
		{"script body dropped", "before<script>var secret = 1;</script>after", []string{"before", "after"}},
		{"script with attributes", `a <script type="text/javascript">hidden()</script> b`, []string{"a", "b"}},
		{"style case insensitive", "x<STYLE>.c{color:red}</Style>y", []string{"x", "y"}},
		{"tags inside script still parsed", "<script>if (a<b) {}</script>z", []string{"z"}},
		{"unterminated tag swallows rest", "visible <div class='never", []string{"visible"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, terms(tt.input))
		})
	}
}

func TestScan_TruncatesLongTokens(t *testing.T) {
	long := strings.Repeat("я", 100)
	tokens := Tokenize(long + " tail")

	require.Len(t, tokens, 2)
	assert.Equal(t, DefaultMaxTokenLen, utf8.RuneCountInString(tokens[0].Term))
	assert.Equal(t, DefaultMaxTokenLen, tokens[0].Length)
	assert.Equal(t, "tail", tokens[1].Term)
}

func TestScan_CustomCap(t *testing.T) {
	var got []Token
	New(3).Scan("abcdef gh", func(tok Token) { got = append(got, tok) })
	assert.Equal(t, []Token{{Term: "abc", Length: 3}, {Term: "gh", Length: 2}}, got)
}

func TestScan_LengthIsPreStem(t *testing.T) {
	tokens := Tokenize("walking")
	require.Len(t, tokens, 1)
	assert.Equal(t, "walk", tokens[0].Term)
	assert.Equal(t, 7, tokens[0].Length)
}

func TestScan_DecomposedYoIsOneLetter(t *testing.T) {
	// е + combining diaeresis composes to ё under NFC.
	decomposed := "\u0435\u0308ж"
	assert.Equal(t, []string{"ёж"}, terms(decomposed))
}

func TestIsWordRune(t *testing.T) {
	for _, r := range "azAZ09АЯаяЁё" {
		assert.True(t, IsWordRune(r), "rune %q", r)
	}
	for _, r := range " \t-_.,!é中" {
		assert.False(t, IsWordRune(r), "rune %q", r)
	}
}

func BenchmarkTokenize(b *testing.B) {
	text := strings.Repeat(`<div class="news"><h1>Матч закончился</h1><p>The teams played
		a long match, scoring goals and running hard.</p><script>track()</script></div>`, 50)
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = Tokenize(text)
	}
}

func terms(text string) []string {
	var out []string
	for _, tok := range Tokenize(text) {
		out = append(out, tok.Term)
	}
	return out
}
