// Package tokenizer turns raw HTML document text into normalised, stemmed
// terms. Markup is stripped by a small state machine, the text is scanned
// rune by rune, and maximal runs of word characters (Latin letters and
// digits, Cyrillic letters) become tokens.
package tokenizer

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultMaxTokenLen caps the number of runes kept per token. Runes past the
// cap are dropped from the same token rather than starting a new one.
const DefaultMaxTokenLen = 63

// Token is a single normalised term together with the rune length of the
// word it came from (after the length cap, before stemming).
type Token struct {
	Term   string
	Length int
}

// Tokenizer scans documents into tokens. The zero value is not usable; use
// New.
type Tokenizer struct {
	maxLen int
}

// New returns a Tokenizer capping tokens at maxLen runes. Non-positive
// values fall back to DefaultMaxTokenLen.
func New(maxLen int) *Tokenizer {
	if maxLen <= 0 {
		maxLen = DefaultMaxTokenLen
	}
	return &Tokenizer{maxLen: maxLen}
}

// Scan streams the tokens of one document to emit, in document order.
// Markup state does not carry over between calls.
func (t *Tokenizer) Scan(text string, emit func(Token)) {
	filter := newHTMLFilter()
	buf := make([]rune, 0, t.maxLen)
	runLen := 0

	flush := func() {
		if runLen == 0 {
			return
		}
		emit(Token{Term: Stem(string(buf)), Length: len(buf)})
		buf = buf[:0]
		runLen = 0
	}

	for _, r := range norm.NFC.String(text) {
		if !filter.feed(r) {
			// Markup separates words just like whitespace does.
			flush()
			continue
		}
		if !IsWordRune(r) {
			flush()
			continue
		}
		runLen++
		if len(buf) < t.maxLen {
			buf = append(buf, unicode.ToLower(r))
		}
	}
	flush()
}

// Tokenize collects every token of text using the default length cap.
func Tokenize(text string) []Token {
	var tokens []Token
	New(DefaultMaxTokenLen).Scan(text, func(tok Token) {
		tokens = append(tokens, tok)
	})
	return tokens
}

// IsWordRune reports whether r can be part of a word: an ASCII letter or
// digit, or a letter of the Russian alphabet including Ё/ё.
func IsWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r >= 'А' && r <= 'я':
		return true
	case r == 'Ё' || r == 'ё':
		return true
	}
	return false
}
